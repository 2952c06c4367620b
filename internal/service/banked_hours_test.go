package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"timebank/internal/models"
	"timebank/pkg/duration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	saldo map[uint]int
	fail  map[uint]error
}

func (s *stubSummarizer) MonthlySummary(_ context.Context, userID uint, year, month int) (*MonthlySummary, error) {
	if err := s.fail[userID]; err != nil {
		return nil, err
	}
	return &MonthlySummary{
		UserID:       userID,
		Year:         year,
		Month:        month,
		SaldoMinutes: s.saldo[userID],
		Saldo:        duration.FormatMinutes(s.saldo[userID]),
	}, nil
}

type stubUsers struct {
	users []*models.User
	err   error
}

func (s stubUsers) GetActive(context.Context) ([]*models.User, error) {
	return s.users, s.err
}

func summaryFor(userID uint, year, month, saldo int) *MonthlySummary {
	return &MonthlySummary{UserID: userID, Year: year, Month: month, SaldoMinutes: saldo}
}

func TestBankedHours_AccumulatesPreviousMonths(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, stubUsers{}, 0)

	_, err := svc.CloseMonthWithSummary(ctx, summaryFor(1, 2024, 1, -360))
	require.NoError(t, err)
	res, err := svc.CloseMonthWithSummary(ctx, summaryFor(1, 2024, 2, 180))
	require.NoError(t, err)
	assert.Equal(t, -360, res.AccumulatedBefore)
	assert.Equal(t, -180, res.AccumulatedAfter)
	assert.Equal(t, "3h 0m", res.Entry.Saldo)

	acc, err := svc.AccumulatedBalance(ctx, 1, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "-3h 0m", duration.FormatMinutes(acc))

	res, err = svc.CloseMonthWithSummary(ctx, summaryFor(1, 2024, 3, 60))
	require.NoError(t, err)
	assert.Equal(t, -180, res.AccumulatedBefore)
	assert.Equal(t, "2024-03", res.Entry.YearMonth)

	acc, err = svc.AccumulatedBalance(ctx, 2, 2024, 3)
	require.NoError(t, err)
	assert.Zero(t, acc)
}

func TestBankedHours_CloseTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	summarizer := &stubSummarizer{saldo: map[uint]int{1: -125}}
	svc := NewBankedHoursService(repos.bank, summarizer, stubUsers{}, 0)

	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 5, 0, 0, time.UTC) }
	first, err := svc.CloseMonth(ctx, 1, 2024, 4)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	second, err := svc.CloseMonth(ctx, 1, 2024, 4)
	require.NoError(t, err)

	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, first.Entry.SaldoMinutes, second.Entry.SaldoMinutes)
	assert.Equal(t, "-2h 5m", second.Entry.Saldo)
	assert.True(t, first.Entry.ClosedAt.Equal(second.Entry.ClosedAt))

	// a changed saldo overwrites the same row
	summarizer.saldo[1] = 30
	third, err := svc.CloseMonth(ctx, 1, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, first.Entry.ID, third.Entry.ID)
	assert.Equal(t, "0h 30m", third.Entry.Saldo)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestBankedHours_WindowIgnoresLaterAndOlderEntries(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, stubUsers{}, 0)

	for month := 1; month <= 8; month++ {
		require.NoError(t, repos.bank.Upsert(ctx, &models.BankedHoursEntry{
			UserID:       1,
			YearMonth:    models.MonthKey(2023, month),
			Year:         2023,
			Month:        month,
			SaldoMinutes: month * 60,
			Saldo:        duration.FormatMinutes(month * 60),
			ClosedAt:     time.Now(),
		}))
	}
	for _, month := range []int{9, 10} {
		require.NoError(t, repos.bank.Upsert(ctx, &models.BankedHoursEntry{
			UserID:       1,
			YearMonth:    models.MonthKey(2023, month),
			Year:         2023,
			Month:        month,
			SaldoMinutes: 1000,
			Saldo:        duration.FormatMinutes(1000),
			ClosedAt:     time.Now(),
		}))
	}

	acc, err := svc.AccumulatedBalance(ctx, 1, 2023, 9)
	require.NoError(t, err)
	assert.Equal(t, (3+4+5+6+7+8)*60, acc)

	acc, err = svc.AccumulatedBalance(ctx, 1, 2023, 3)
	require.NoError(t, err)
	assert.Equal(t, (1+2)*60, acc)

	_, err = svc.AccumulatedBalance(ctx, 1, 2023, 13)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBankedHours_RetentionKeepsWindowPlusLatest(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, stubUsers{}, 0)

	var last *CloseResult
	for month := 1; month <= 10; month++ {
		res, err := svc.CloseMonthWithSummary(ctx, summaryFor(1, 2023, month, month*10))
		require.NoError(t, err)
		last = res
	}
	assert.Equal(t, int64(1), last.Pruned)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, svc.Retained())
	assert.Equal(t, "2023-04", history[0].YearMonth)

	acc, err := svc.AccumulatedBalance(ctx, 1, 2023, 11)
	require.NoError(t, err)
	assert.Equal(t, (5+6+7+8+9+10)*10, acc)
}

func TestBankedHours_PruneAll(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, stubUsers{}, 2)

	for _, userID := range []uint{1, 2} {
		for month := 1; month <= 5; month++ {
			require.NoError(t, repos.bank.Upsert(ctx, &models.BankedHoursEntry{
				UserID:       userID,
				YearMonth:    models.MonthKey(2024, month),
				Year:         2024,
				Month:        month,
				SaldoMinutes: 10,
				Saldo:        "0h 10m",
				ClosedAt:     time.Now(),
			}))
		}
	}

	deleted, err := svc.PruneAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	for _, userID := range []uint{1, 2} {
		history, err := svc.History(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, history, 3)
	}
}

func TestBankedHours_CloseMonthForAllUsersContinuesOnError(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	summarizer := &stubSummarizer{
		saldo: map[uint]int{1: 60, 3: -60},
		fail:  map[uint]error{2: ErrStorage},
	}
	users := stubUsers{users: []*models.User{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := NewBankedHoursService(repos.bank, summarizer, users, 0)

	batch, err := svc.CloseMonthForAllUsers(ctx, 2024, 4)
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	failures := batch.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, uint(2), failures[0].UserID)
	assert.ErrorIs(t, failures[0].Err, ErrStorage)

	assert.Equal(t, "1h 0m", batch.Results[0].Result.Entry.Saldo)
	assert.Equal(t, "-1h 0m", batch.Results[2].Result.Entry.Saldo)
}

func TestBankedHours_CloseMonthForAllUsersCancelled(t *testing.T) {
	repos := newTestRepos(t)
	users := stubUsers{users: []*models.User{{ID: 1}, {ID: 2}}}
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, users, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := svc.CloseMonthForAllUsers(ctx, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Failed)
	assert.ErrorIs(t, batch.Results[0].Err, context.Canceled)
}

func TestBankedHours_CloseMonthForAllUsersListFailure(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewBankedHoursService(repos.bank, &stubSummarizer{}, stubUsers{err: errors.New("db down")}, 0)

	_, err := svc.CloseMonthForAllUsers(context.Background(), 2024, 4)
	assert.ErrorIs(t, err, ErrStorage)
}
