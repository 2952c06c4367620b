// Package worker runs the periodic month-end close.
package worker

import (
	"context"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/service"

	"github.com/sirupsen/logrus"
)

// BatchCloser is implemented by service.BankedHoursService.
type BatchCloser interface {
	CloseMonthForAllUsers(ctx context.Context, year, month int) (*service.BatchResult, error)
	PruneAll(ctx context.Context) (int64, error)
}

// MonthCloser closes the previous month for every user once per month. A month with
// failed users is retried on the next tick; closing is idempotent.
type MonthCloser struct {
	closer   BatchCloser
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *logrus.Logger

	lastClosed string
}

func NewMonthCloser(closer BatchCloser, interval time.Duration, loc *time.Location) *MonthCloser {
	if interval <= 0 {
		interval = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}

	return &MonthCloser{
		closer:   closer,
		interval: interval,
		loc:      loc,
		now:      time.Now,
		logger:   logging.New(),
	}
}

// Run ticks immediately and then every interval until ctx is done.
func (w *MonthCloser) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.interval).Info("Month closer started")

	for {
		if _, err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			w.logger.WithError(err).Error("Month close failed")
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Month closer stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick closes the month before the current one unless that already succeeded.
func (w *MonthCloser) Tick(ctx context.Context) (bool, error) {
	now := w.now().In(w.loc)
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, w.loc).AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())
	key := models.MonthKey(year, month)

	if w.lastClosed == key {
		return false, nil
	}

	batch, err := w.closer.CloseMonthForAllUsers(ctx, year, month)
	if err != nil {
		return false, err
	}

	fields := logrus.Fields{
		"year_month": key,
		"succeeded":  batch.Succeeded,
		"failed":     batch.Failed,
	}
	if batch.Failed > 0 {
		w.logger.WithFields(fields).Warn("Month closed with failures, will retry")
	} else {
		w.lastClosed = key
		w.logger.WithFields(fields).Info("Month closed for all users")
	}

	if _, err := w.closer.PruneAll(ctx); err != nil {
		w.logger.WithError(err).Warn("Retention pass failed")
	}

	return true, nil
}
