package service

import (
	"context"
	"strings"
	"time"

	"timebank/internal/lock"
	"timebank/internal/logging"
	"timebank/internal/metrics"
	"timebank/internal/models"
	"timebank/internal/repository"
	"timebank/pkg/duration"

	"github.com/sirupsen/logrus"
)

// Notifier receives a copy of every committed record. Implementations must not block.
type Notifier interface {
	RecordUpdated(action models.EventType, record models.ClockRecord)
}

type noopNotifier struct{}

func (noopNotifier) RecordUpdated(models.EventType, models.ClockRecord) {}

// ClockService owns the daily ClockRecord of every user and its state machine.
// Each mutation runs under a per-(user, date) lock and is written with a version check.
type ClockService struct {
	repo           repository.ClockRecordRepository
	locker         lock.Locker
	notifier       Notifier
	loc            *time.Location
	strictClockOut bool
	now            func() time.Time
	logger         *logrus.Logger
}

type ClockOption func(*ClockService)

func WithLocker(l lock.Locker) ClockOption {
	return func(s *ClockService) { s.locker = l }
}

func WithNotifier(n Notifier) ClockOption {
	return func(s *ClockService) { s.notifier = n }
}

// WithLocation sets the zone used to derive the record date of a timestamp.
func WithLocation(loc *time.Location) ClockOption {
	return func(s *ClockService) { s.loc = loc }
}

// WithStrictClockOut rejects ClockOut on a closed record or while a break is open.
func WithStrictClockOut(strict bool) ClockOption {
	return func(s *ClockService) { s.strictClockOut = strict }
}

func NewClockService(repo repository.ClockRecordRepository, opts ...ClockOption) *ClockService {
	s := &ClockService{
		repo:     repo,
		locker:   lock.NewKeyedMutex(),
		notifier: noopNotifier{},
		loc:      time.Local,
		now:      time.Now,
		logger:   logging.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation inspects the current record (nil when absent) and returns the record to
// store. changed=false means nothing is written and nobody is notified.
type mutation func(current *models.ClockRecord) (next *models.ClockRecord, changed bool, err error)

func (s *ClockService) apply(ctx context.Context, event models.EventType, userID uint, date string, fn mutation) (record *models.ClockRecord, err error) {
	fields := logrus.Fields{
		"event":   event,
		"user_id": userID,
		"date":    date,
	}
	defer func() {
		metrics.ObserveClockEvent(string(event), err, IsRejection(err))
	}()

	if userID == 0 {
		return nil, invalidInput("user is required")
	}

	unlock, err := s.locker.Lock(ctx, models.RecordKey(userID, date))
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to lock clock record")
		return nil, storageError("lock record", err)
	}
	defer unlock()

	current, err := s.repo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to load clock record")
		return nil, storageError("load record", err)
	}

	next, changed, err := fn(current)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("Clock event rejected")
		return nil, err
	}
	if !changed {
		s.logger.WithFields(fields).Debug("Clock event left record unchanged")
		return next, nil
	}

	if current == nil {
		err = s.repo.Create(ctx, next)
	} else {
		err = s.repo.Update(ctx, next)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to store clock record")
		return nil, storageError("store record", err)
	}

	s.logger.WithFields(logrus.Fields{
		"event":        event,
		"user_id":      userID,
		"date":         date,
		"state":        next.State(),
		"total_horas":  next.TotalHoras,
		"total_pausas": next.TotalPausas,
	}).Info("Clock record updated")

	s.notifier.RecordUpdated(event, next.Clone())
	return next, nil
}

// DateOf returns the record date a timestamp belongs to.
func (s *ClockService) DateOf(ts time.Time) string {
	return ts.In(s.loc).Format(models.DateLayout)
}

// ClockIn opens the day. Repeating it on an open record keeps the first entrada.
func (s *ClockService) ClockIn(ctx context.Context, userID uint, ts time.Time) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventClockIn, userID, s.DateOf(ts), func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			record := models.NewClockRecord(userID, s.DateOf(ts))
			record.Entrada = &ts
			return record, true, nil
		}

		switch current.State() {
		case models.StateClosed:
			return nil, false, invalidTransition("day %s is already closed", current.Date)
		case models.StateOpenWorking, models.StateOpenBreak:
			return current, false, nil
		}

		current.Entrada = &ts
		return current, true, nil
	})
}

func (s *ClockService) StartBreak(ctx context.Context, userID uint, ts time.Time) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventStartBreak, userID, s.DateOf(ts), func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}

		switch current.State() {
		case models.StateClosed:
			return nil, false, invalidTransition("day %s is already closed", current.Date)
		case models.StateOpenBreak:
			return nil, false, invalidTransition("a break is already open")
		case models.StateAbsent:
			return nil, false, invalidTransition("not clocked in")
		}

		current.Pausas = append(current.Pausas, models.PauseInterval{Inicio: &ts})
		return current, true, nil
	})
}

func (s *ClockService) EndBreak(ctx context.Context, userID uint, ts time.Time) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventEndBreak, userID, s.DateOf(ts), func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}

		if current.State() == models.StateClosed {
			return nil, false, invalidTransition("day %s is already closed", current.Date)
		}

		idx := current.Pausas.Open()
		if idx < 0 {
			return nil, false, invalidTransition("no open break")
		}
		if ts.Before(*current.Pausas[idx].Inicio) {
			return nil, false, invalidInput("break cannot end before it starts")
		}

		current.Pausas[idx].Fim = &ts

		// pauses count from entrada, or from midnight when it is missing
		from := current.Entrada
		if from == nil {
			day, err := current.Day(s.loc)
			if err != nil {
				return nil, false, invalidInput("malformed record date %q", current.Date)
			}
			from = &day
		}
		current.TotalPausas = duration.FormatMinutes(duration.PauseDurationWithin(current.Pausas, *from, ts))
		return current, true, nil
	})
}

// ClockOut closes the day. If the fresh worked value is zero the stored totals are
// kept, so a spurious repeat cannot erase a valid day.
func (s *ClockService) ClockOut(ctx context.Context, userID uint, ts time.Time) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventClockOut, userID, s.DateOf(ts), func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}
		if current.Entrada == nil {
			return nil, false, invalidTransition("not clocked in")
		}

		if s.strictClockOut {
			switch current.State() {
			case models.StateClosed:
				return nil, false, invalidTransition("day %s is already closed", current.Date)
			case models.StateOpenBreak:
				return nil, false, invalidTransition("end the open break first")
			}
		}

		current.Saida = &ts

		worked := duration.WorkedDuration(current.Entrada, current.Saida, current.Pausas)
		if worked == 0 {
			s.logger.WithFields(logrus.Fields{
				"user_id":     userID,
				"date":        current.Date,
				"total_horas": current.TotalHoras,
			}).Warn("Clock out computed zero worked time, keeping previous totals")
			return current, true, nil
		}

		current.TotalHoras = duration.FormatMinutes(worked)
		current.TotalPausas = duration.FormatMinutes(duration.PauseDuration(current.Pausas))
		return current, true, nil
	})
}

// ManualCreate writes a closed day directly, bypassing the state machine. The day
// carries a pending justification until an admin decides on it.
func (s *ClockService) ManualCreate(ctx context.Context, userID uint, date string, entrada, saida time.Time, breakDuration, reason string) (*models.ClockRecord, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, invalidInput("date %q must be YYYY-MM-DD", date)
	}
	if entrada.IsZero() || saida.IsZero() {
		return nil, invalidInput("entrada and saida are required")
	}
	if saida.Before(entrada) {
		return nil, invalidInput("saida is before entrada")
	}

	breakMinutes := duration.ParseMinutes(breakDuration)
	if breakMinutes < 0 {
		return nil, invalidInput("break duration cannot be negative")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "manual entry"
	}

	return s.apply(ctx, models.EventManualCreate, userID, date, func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		record := current
		if record == nil {
			record = models.NewClockRecord(userID, date)
		}

		now := s.now()
		breakText := duration.FormatMinutes(breakMinutes)
		worked := duration.Span(&entrada, &saida) - breakMinutes
		if worked < 0 {
			worked = 0
		}

		record.Entrada = &entrada
		record.Saida = &saida
		record.Pausas = nil
		record.TotalPausas = breakText
		record.TotalHoras = duration.FormatMinutes(worked)
		record.Manual = true
		record.Justification = &models.Justification{
			Reason:      reason,
			Status:      models.JustificationPending,
			ManualBreak: &breakText,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return record, true, nil
	})
}

// SubmitJustification attaches or replaces the pending correction request of a day.
func (s *ClockService) SubmitJustification(ctx context.Context, userID uint, date, reason string, req models.Overrides, attachment string) (*models.ClockRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalidInput("reason is required")
	}
	if req.NewEntry != nil && req.NewExit != nil && req.NewExit.Before(*req.NewEntry) {
		return nil, invalidInput("new exit is before new entry")
	}

	return s.apply(ctx, models.EventJustificationSubmitted, userID, date, func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}
		if current.HasJustification() && current.Justification.IsApproved() {
			return nil, false, invalidTransition("justification already approved")
		}

		now := s.now()
		j := &models.Justification{
			Reason:     reason,
			Status:     models.JustificationPending,
			Attachment: attachment,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if current.HasJustification() {
			j.CreatedAt = current.Justification.CreatedAt
			j.ManualBreak = current.Justification.ManualBreak
		}
		req.Apply(j)

		current.Justification = j
		return current, true, nil
	})
}

// ApproveJustification is the correction path: it may rewrite a closed day. The
// manual break, when present, replaces the recorded pauses so it is subtracted once.
func (s *ClockService) ApproveJustification(ctx context.Context, userID uint, date string, overrides models.Overrides) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventJustification, userID, date, func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}

		now := s.now()
		j := &models.Justification{CreatedAt: now}
		if current.HasJustification() {
			copied := *current.Justification
			j = &copied
		}
		overrides.Apply(j)

		entrada := current.Entrada
		if j.NewEntry != nil {
			entrada = j.NewEntry
		}
		saida := current.Saida
		if j.NewExit != nil {
			saida = j.NewExit
		}
		if entrada != nil && saida != nil && saida.Before(*entrada) {
			return nil, false, invalidInput("resolved saida is before entrada")
		}

		breakMinutes := duration.PauseDuration(current.Pausas)
		if j.ManualBreak != nil {
			breakMinutes = duration.ParseMinutes(*j.ManualBreak)
		}

		worked := duration.WorkedDuration(entrada, saida, nil) - breakMinutes
		if worked < 0 {
			worked = 0
		}

		j.Status = models.JustificationApproved
		j.UpdatedAt = now

		current.Entrada = entrada
		current.Saida = saida
		current.TotalHoras = duration.FormatMinutes(worked)
		current.TotalPausas = duration.FormatMinutes(breakMinutes)
		current.Justification = j
		return current, true, nil
	})
}

// RejectJustification closes a pending request without touching the totals.
func (s *ClockService) RejectJustification(ctx context.Context, userID uint, date, note string) (*models.ClockRecord, error) {
	return s.apply(ctx, models.EventJustificationRejected, userID, date, func(current *models.ClockRecord) (*models.ClockRecord, bool, error) {
		if current == nil {
			return nil, false, ErrRecordNotFound
		}
		if !current.HasJustification() || !current.Justification.IsPending() {
			return nil, false, invalidTransition("no pending justification")
		}

		j := *current.Justification
		j.Status = models.JustificationRejected
		j.AdminNote = note
		j.UpdatedAt = s.now()

		current.Justification = &j
		return current, true, nil
	})
}

// GetRecord returns the day of a user or ErrRecordNotFound.
func (s *ClockService) GetRecord(ctx context.Context, userID uint, date string) (*models.ClockRecord, error) {
	record, err := s.repo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, storageError("load record", err)
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// GetState returns the state of the day ts belongs to; a missing record is StateAbsent.
func (s *ClockService) GetState(ctx context.Context, userID uint, ts time.Time) (models.ClockState, error) {
	record, err := s.repo.GetByUserAndDate(ctx, userID, s.DateOf(ts))
	if err != nil {
		return models.StateAbsent, storageError("load record", err)
	}
	return record.State(), nil
}

func (s *ClockService) ListMonth(ctx context.Context, userID uint, year, month int) ([]*models.ClockRecord, error) {
	if month < 1 || month > 12 {
		return nil, invalidInput("month %d out of range", month)
	}

	records, err := s.repo.GetByUserIDAndMonth(ctx, userID, year, month)
	if err != nil {
		return nil, storageError("list records", err)
	}
	return records, nil
}

func (s *ClockService) History(ctx context.Context, userID uint, limit int) ([]*models.ClockRecord, error) {
	records, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, storageError("list records", err)
	}
	return records, nil
}
