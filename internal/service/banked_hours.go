package service

import (
	"context"
	"errors"
	"time"

	"timebank/internal/logging"
	"timebank/internal/metrics"
	"timebank/internal/models"
	"timebank/internal/repository"
	"timebank/pkg/duration"

	"github.com/sirupsen/logrus"
)

const DefaultBankWindow = 6

// MonthlySummarizer is implemented by SummaryService.
type MonthlySummarizer interface {
	MonthlySummary(ctx context.Context, userID uint, year, month int) (*MonthlySummary, error)
}

// UserLister lists the users swept by the batch month close.
type UserLister interface {
	GetActive(ctx context.Context) ([]*models.User, error)
}

type CloseResult struct {
	Entry             *models.BankedHoursEntry `json:"entry"`
	Summary           *MonthlySummary          `json:"summary"`
	AccumulatedBefore int                      `json:"accumulated_before"`
	AccumulatedAfter  int                      `json:"accumulated_after"`
	Pruned            int64                    `json:"pruned"`
}

type UserCloseResult struct {
	UserID uint         `json:"user_id"`
	Result *CloseResult `json:"result,omitempty"`
	Err    error        `json:"-"`
}

type BatchResult struct {
	Year      int               `json:"year"`
	Month     int               `json:"month"`
	Results   []UserCloseResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

func (b *BatchResult) Failures() []UserCloseResult {
	var failed []UserCloseResult
	for _, r := range b.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// BankedHoursService closes months into BankedHoursEntry rows and derives the
// rolling balance from the latest window of them.
type BankedHoursService struct {
	repo      repository.BankedHoursRepository
	summaries MonthlySummarizer
	users     UserLister
	window    int
	now       func() time.Time
	logger    *logrus.Logger
}

func NewBankedHoursService(
	repo repository.BankedHoursRepository,
	summaries MonthlySummarizer,
	users UserLister,
	window int,
) *BankedHoursService {
	if window <= 0 {
		window = DefaultBankWindow
	}

	return &BankedHoursService{
		repo:      repo,
		summaries: summaries,
		users:     users,
		window:    window,
		now:       time.Now,
		logger:    logging.New(),
	}
}

// Retained is how many entries a user keeps: the balance window plus the latest month,
// so the balance going into the next month is still exact.
func (s *BankedHoursService) Retained() int {
	return s.window + 1
}

// AccumulatedBalance sums the saldo of the latest window entries strictly before the month.
func (s *BankedHoursService) AccumulatedBalance(ctx context.Context, userID uint, year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, invalidInput("month %d out of range", month)
	}

	entries, err := s.repo.GetLatestBefore(ctx, userID, models.MonthKey(year, month), s.window)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load banked hours window")
		return 0, storageError("load banked hours", err)
	}

	total := 0
	for _, e := range entries {
		total += e.SaldoMinutes
	}
	return total, nil
}

func (s *BankedHoursService) CloseMonth(ctx context.Context, userID uint, year, month int) (*CloseResult, error) {
	summary, err := s.summaries.MonthlySummary(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	return s.CloseMonthWithSummary(ctx, summary)
}

// CloseMonthWithSummary stores the month's saldo and prunes old entries. Closing again
// with an unchanged saldo returns the stored entry untouched.
func (s *BankedHoursService) CloseMonthWithSummary(ctx context.Context, summary *MonthlySummary) (*CloseResult, error) {
	if summary == nil || summary.UserID == 0 {
		return nil, invalidInput("summary is required")
	}

	fields := logrus.Fields{
		"user_id": summary.UserID,
		"year":    summary.Year,
		"month":   summary.Month,
	}
	key := models.MonthKey(summary.Year, summary.Month)

	before, err := s.AccumulatedBalance(ctx, summary.UserID, summary.Year, summary.Month)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.GetByUserAndMonth(ctx, summary.UserID, key)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to load banked hours entry")
		return nil, storageError("load banked hours entry", err)
	}

	if entry == nil || entry.SaldoMinutes != summary.SaldoMinutes {
		entry = &models.BankedHoursEntry{
			UserID:       summary.UserID,
			YearMonth:    key,
			Year:         summary.Year,
			Month:        summary.Month,
			SaldoMinutes: summary.SaldoMinutes,
			Saldo:        duration.FormatMinutes(summary.SaldoMinutes),
			ClosedAt:     s.now().UTC(),
		}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			s.logger.WithError(err).WithFields(fields).Error("Failed to store banked hours entry")
			return nil, storageError("store banked hours entry", err)
		}

		stored, err := s.repo.GetByUserAndMonth(ctx, summary.UserID, key)
		if err != nil {
			return nil, storageError("reload banked hours entry", err)
		}
		if stored != nil {
			entry = stored
		}
	}

	pruned, err := s.RetentionPrune(ctx, summary.UserID)
	if err != nil {
		return nil, err
	}

	result := &CloseResult{
		Entry:             entry,
		Summary:           summary,
		AccumulatedBefore: before,
		AccumulatedAfter:  before + entry.SaldoMinutes,
		Pruned:            pruned,
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     summary.UserID,
		"year_month":  key,
		"saldo":       entry.Saldo,
		"accumulated": duration.FormatMinutes(result.AccumulatedAfter),
	}).Info("Month closed")

	return result, nil
}

// RetentionPrune keeps the latest Retained() entries of the user and deletes the rest.
func (s *BankedHoursService) RetentionPrune(ctx context.Context, userID uint) (int64, error) {
	entries, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to list banked hours entries")
		return 0, storageError("list banked hours", err)
	}

	keep := s.Retained()
	if len(entries) <= keep {
		return 0, nil
	}

	cutoff := entries[len(entries)-keep].YearMonth
	deleted, err := s.repo.DeleteBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, storageError("prune banked hours", err)
	}

	metrics.EntriesPruned.Add(float64(deleted))
	return deleted, nil
}

// PruneAll applies retention to every user owning entries. It keeps going after a
// failure and returns the joined errors.
func (s *BankedHoursService) PruneAll(ctx context.Context) (int64, error) {
	ids, err := s.repo.GetUserIDs(ctx)
	if err != nil {
		return 0, storageError("list banked hours users", err)
	}

	var (
		total int64
		errs  []error
	)
	for _, id := range ids {
		deleted, err := s.RetentionPrune(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += deleted
	}

	s.logger.WithFields(logrus.Fields{
		"users":   len(ids),
		"deleted": total,
	}).Info("Banked hours retention applied")

	return total, errors.Join(errs...)
}

// History returns the stored entries of a user, oldest first.
func (s *BankedHoursService) History(ctx context.Context, userID uint) ([]*models.BankedHoursEntry, error) {
	entries, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("list banked hours", err)
	}
	return entries, nil
}

// CloseMonthForAllUsers closes the month for every active user, one after another.
// A failing user is recorded in its result and does not stop the sweep; the only
// returned error is failing to list users.
func (s *BankedHoursService) CloseMonthForAllUsers(ctx context.Context, year, month int) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	if month < 1 || month > 12 {
		return nil, invalidInput("month %d out of range", month)
	}

	users, err := s.users.GetActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list users for month close")
		return nil, storageError("list users", err)
	}

	batch := &BatchResult{
		Year:    year,
		Month:   month,
		Results: make([]UserCloseResult, 0, len(users)),
	}

	for _, user := range users {
		res := UserCloseResult{UserID: user.ID}

		if err := ctx.Err(); err != nil {
			res.Err = err
		} else {
			res.Result, res.Err = s.CloseMonth(ctx, user.ID, year, month)
		}

		if res.Err != nil {
			batch.Failed++
			metrics.MonthCloses.WithLabelValues(metrics.OutcomeError).Inc()
			s.logger.WithError(res.Err).WithFields(logrus.Fields{
				"user_id": user.ID,
				"year":    year,
				"month":   month,
			}).Error("Failed to close month for user")
		} else {
			batch.Succeeded++
			metrics.MonthCloses.WithLabelValues(metrics.OutcomeOK).Inc()
		}
		batch.Results = append(batch.Results, res)
	}

	s.logger.WithFields(logrus.Fields{
		"year":      year,
		"month":     month,
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
	}).Info("Batch month close finished")

	return batch, nil
}
