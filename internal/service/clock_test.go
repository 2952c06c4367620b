package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"timebank/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClock(t *testing.T, opts ...ClockOption) (*ClockService, *recordingNotifier, testRepos) {
	t.Helper()
	repos := newTestRepos(t)
	notifier := &recordingNotifier{}

	opts = append([]ClockOption{WithNotifier(notifier), WithLocation(time.UTC)}, opts...)
	return NewClockService(repos.records, opts...), notifier, repos
}

func TestClock_FullDay(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestClock(t)

	rec, err := svc.ClockIn(ctx, 1, at(2, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, "1_2024-04-02", rec.ID)
	assert.Equal(t, models.StateOpenWorking, rec.State())

	rec, err = svc.StartBreak(ctx, 1, at(2, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateOpenBreak, rec.State())

	rec, err = svc.EndBreak(ctx, 1, at(2, 13, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateOpenWorking, rec.State())
	assert.Equal(t, "1h 0m", rec.TotalPausas)

	rec, err = svc.ClockOut(ctx, 1, at(2, 17, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, rec.State())
	assert.Equal(t, "8h 0m", rec.TotalHoras)
	assert.Equal(t, "1h 0m", rec.TotalPausas)

	stored, err := svc.GetRecord(ctx, 1, "2024-04-02")
	require.NoError(t, err)
	assert.Equal(t, "8h 0m", stored.TotalHoras)
	assert.Equal(t, 4, stored.Version)
	require.Len(t, stored.Pausas, 1)
	assert.True(t, stored.Pausas[0].Fim.Equal(at(2, 13, 0)))

	assert.Equal(t, []models.EventType{
		models.EventClockIn,
		models.EventStartBreak,
		models.EventEndBreak,
		models.EventClockOut,
	}, notifier.Actions())
}

func TestClock_RepeatClockInKeepsEntrada(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(2, 8, 0))
	require.NoError(t, err)

	rec, err := svc.ClockIn(ctx, 1, at(2, 9, 30))
	require.NoError(t, err)
	assert.True(t, rec.Entrada.Equal(at(2, 8, 0)))

	_, err = svc.StartBreak(ctx, 1, at(2, 10, 0))
	require.NoError(t, err)
	rec, err = svc.ClockIn(ctx, 1, at(2, 10, 5))
	require.NoError(t, err)
	assert.True(t, rec.Entrada.Equal(at(2, 8, 0)))

	assert.Len(t, notifier.Actions(), 2, "no-op clock in is not a mutation")
}

func TestClock_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.StartBreak(ctx, 1, at(2, 9, 0))
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = svc.EndBreak(ctx, 1, at(2, 9, 0))
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = svc.ClockOut(ctx, 1, at(2, 9, 0))
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.ClockIn(ctx, 1, at(2, 8, 0))
	require.NoError(t, err)

	_, err = svc.EndBreak(ctx, 1, at(2, 9, 0))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.StartBreak(ctx, 1, at(2, 10, 0))
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, 1, at(2, 10, 5))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.EndBreak(ctx, 1, at(2, 9, 59))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.EndBreak(ctx, 1, at(2, 10, 30))
	require.NoError(t, err)
	_, err = svc.ClockOut(ctx, 1, at(2, 17, 0))
	require.NoError(t, err)

	_, err = svc.StartBreak(ctx, 1, at(2, 17, 30))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = svc.ClockIn(ctx, 1, at(2, 18, 0))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	rec, err := svc.GetRecord(ctx, 1, "2024-04-02")
	require.NoError(t, err)
	assert.Len(t, rec.Pausas, 1)

	_, err = svc.ClockIn(ctx, 0, at(2, 8, 0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClock_RepeatClockOutKeepsNonZeroTotals(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(3, 8, 0))
	require.NoError(t, err)

	first, err := svc.ClockOut(ctx, 1, at(3, 17, 0))
	require.NoError(t, err)
	require.Equal(t, "9h 0m", first.TotalHoras)

	// the second call computes zero worked minutes
	second, err := svc.ClockOut(ctx, 1, at(3, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, "9h 0m", second.TotalHoras)
	assert.Equal(t, "0h 0m", second.TotalPausas)
	assert.True(t, second.Saida.Equal(at(3, 8, 0)), "permissive mode overwrites saida")

	stored, err := svc.GetRecord(ctx, 1, "2024-04-03")
	require.NoError(t, err)
	assert.Equal(t, "9h 0m", stored.TotalHoras)
}

func TestClock_ClockOutWithOpenBreak(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(3, 8, 0))
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, 1, at(3, 12, 0))
	require.NoError(t, err)

	rec, err := svc.ClockOut(ctx, 1, at(3, 16, 0))
	require.NoError(t, err)
	assert.Equal(t, "8h 0m", rec.TotalHoras, "open pause counts as zero")
	assert.Equal(t, models.StateClosed, rec.State())
}

func TestClock_ClosedDayRejectsBreakEvents(t *testing.T) {
	tests := []struct {
		name  string
		event func(svc *ClockService) (*models.ClockRecord, error)
	}{
		{
			name: "end break",
			event: func(svc *ClockService) (*models.ClockRecord, error) {
				return svc.EndBreak(context.Background(), 1, at(3, 17, 0))
			},
		},
		{
			name: "start break",
			event: func(svc *ClockService) (*models.ClockRecord, error) {
				return svc.StartBreak(context.Background(), 1, at(3, 17, 0))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, notifier, _ := newTestClock(t)

			_, err := svc.ClockIn(ctx, 1, at(3, 8, 0))
			require.NoError(t, err)
			_, err = svc.StartBreak(ctx, 1, at(3, 12, 0))
			require.NoError(t, err)
			_, err = svc.ClockOut(ctx, 1, at(3, 16, 0))
			require.NoError(t, err)
			events := len(notifier.Actions())

			_, err = tt.event(svc)
			assert.ErrorIs(t, err, ErrInvalidStateTransition)

			rec, err := svc.GetRecord(ctx, 1, "2024-04-03")
			require.NoError(t, err)
			assert.Equal(t, models.StateClosed, rec.State())
			assert.Equal(t, "8h 0m", rec.TotalHoras)
			assert.Equal(t, "0h 0m", rec.TotalPausas)
			assert.Len(t, rec.Pausas, 1)
			assert.Len(t, notifier.Actions(), events)
		})
	}
}

func TestClock_StrictClockOut(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t, WithStrictClockOut(true))

	_, err := svc.ClockIn(ctx, 1, at(3, 8, 0))
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, 1, at(3, 12, 0))
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, 1, at(3, 16, 0))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.EndBreak(ctx, 1, at(3, 12, 30))
	require.NoError(t, err)
	_, err = svc.ClockOut(ctx, 1, at(3, 16, 0))
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, 1, at(3, 17, 0))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestClock_ConcurrentStartBreak(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(4, 8, 0))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.StartBreak(ctx, 1, at(4, 12, i))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, ErrInvalidStateTransition) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, rejected)

	rec, err := svc.GetRecord(ctx, 1, "2024-04-04")
	require.NoError(t, err)
	assert.Len(t, rec.Pausas, 1)
}

func TestClock_ManualCreate(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestClock(t)

	rec, err := svc.ManualCreate(ctx, 2, "2024-04-05", at(5, 9, 0), at(5, 18, 0), "1h 0m", "forgot to clock")
	require.NoError(t, err)
	assert.Equal(t, "8h 0m", rec.TotalHoras)
	assert.Equal(t, "1h 0m", rec.TotalPausas)
	assert.True(t, rec.Manual)
	assert.Equal(t, models.StateClosed, rec.State())
	require.True(t, rec.HasJustification())
	assert.True(t, rec.Justification.IsPending())
	assert.Equal(t, "1h 0m", *rec.Justification.ManualBreak)
	assert.Equal(t, []models.EventType{models.EventManualCreate}, notifier.Actions())

	_, err = svc.ManualCreate(ctx, 2, "2024-04-06", at(6, 18, 0), at(6, 9, 0), "0h 0m", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ManualCreate(ctx, 2, "06/04/2024", at(6, 9, 0), at(6, 18, 0), "0h 0m", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ManualCreate(ctx, 2, "2024-04-06", at(6, 9, 0), at(6, 18, 0), "-1h 0m", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClock_ApproveJustificationWithManualBreak(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(8, 8, 0))
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, 1, at(8, 12, 0))
	require.NoError(t, err)
	_, err = svc.EndBreak(ctx, 1, at(8, 12, 30))
	require.NoError(t, err)
	_, err = svc.ClockOut(ctx, 1, at(8, 17, 30))
	require.NoError(t, err)

	rec, err := svc.ApproveJustification(ctx, 1, "2024-04-08", models.Overrides{
		NewEntry:    ptr(at(8, 8, 15)),
		NewExit:     ptr(at(8, 17, 15)),
		ManualBreak: ptr("0h 45m"),
	})
	require.NoError(t, err)

	assert.Equal(t, "8h 15m", rec.TotalHoras)
	assert.Equal(t, "0h 45m", rec.TotalPausas)
	assert.True(t, rec.Entrada.Equal(at(8, 8, 15)))
	assert.True(t, rec.Saida.Equal(at(8, 17, 15)))
	assert.True(t, rec.Justification.IsApproved())
	assert.Len(t, rec.Pausas, 1, "recorded pauses are kept")
}

func TestClock_ApproveJustificationUsesPauses(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ClockIn(ctx, 1, at(9, 8, 0))
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, 1, at(9, 12, 0))
	require.NoError(t, err)
	_, err = svc.EndBreak(ctx, 1, at(9, 13, 0))
	require.NoError(t, err)
	_, err = svc.ClockOut(ctx, 1, at(9, 17, 0))
	require.NoError(t, err)

	_, err = svc.SubmitJustification(ctx, 1, "2024-04-09", "stayed late", models.Overrides{
		NewExit: ptr(at(9, 18, 0)),
	}, "")
	require.NoError(t, err)

	rec, err := svc.ApproveJustification(ctx, 1, "2024-04-09", models.Overrides{AdminNote: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "9h 0m", rec.TotalHoras)
	assert.Equal(t, "1h 0m", rec.TotalPausas)
	assert.Equal(t, "stayed late", rec.Justification.Reason)
	assert.Equal(t, "ok", rec.Justification.AdminNote)

	_, err = svc.SubmitJustification(ctx, 1, "2024-04-09", "again", models.Overrides{}, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.ApproveJustification(ctx, 1, "2024-04-10", models.Overrides{})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClock_RejectJustification(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	_, err := svc.ManualCreate(ctx, 1, "2024-04-10", at(10, 9, 0), at(10, 17, 0), "0h 30m", "")
	require.NoError(t, err)

	rec, err := svc.RejectJustification(ctx, 1, "2024-04-10", "no evidence")
	require.NoError(t, err)
	assert.True(t, rec.Justification.IsRejected())
	assert.Equal(t, "no evidence", rec.Justification.AdminNote)
	assert.Equal(t, "7h 30m", rec.TotalHoras)

	_, err = svc.RejectJustification(ctx, 1, "2024-04-10", "twice")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.SubmitJustification(ctx, 1, "2024-04-10", "", models.Overrides{}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClock_ListMonthAndState(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestClock(t)

	state, err := svc.GetState(ctx, 1, at(11, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateAbsent, state)

	for _, day := range []int{11, 12, 15} {
		_, err := svc.ClockIn(ctx, 1, at(day, 8, 0))
		require.NoError(t, err)
	}
	_, err = svc.ClockIn(ctx, 1, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	records, err := svc.ListMonth(ctx, 1, 2024, 4)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-04-11", records[0].Date)
	assert.Equal(t, "2024-04-15", records[2].Date)

	history, err := svc.History(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-05-02", history[0].Date)

	state, err = svc.GetState(ctx, 1, at(11, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, models.StateOpenWorking, state)

	_, err = svc.ListMonth(ctx, 1, 2024, 13)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
