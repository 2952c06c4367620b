package service

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"timebank/internal/database"
	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	logging.SetOutput(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

type testRepos struct {
	records repository.ClockRecordRepository
	dates   repository.SpecialDateRepository
	goals   repository.GoalOverrideRepository
	bank    repository.BankedHoursRepository
	users   repository.UserRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db := newTestDB(t)

	records, err := repository.NewGormClockRecordRepository(db)
	require.NoError(t, err)
	dates, err := repository.NewGormSpecialDateRepository(db)
	require.NoError(t, err)
	goals, err := repository.NewGormGoalOverrideRepository(db)
	require.NoError(t, err)
	bank, err := repository.NewGormBankedHoursRepository(db)
	require.NoError(t, err)
	users, err := repository.NewGormUserRepository(db)
	require.NoError(t, err)

	return testRepos{
		records: records,
		dates:   dates,
		goals:   goals,
		bank:    bank,
		users:   users,
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	actions []models.EventType
	records []models.ClockRecord
}

func (n *recordingNotifier) RecordUpdated(action models.EventType, record models.ClockRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
	n.records = append(n.records, record)
}

func (n *recordingNotifier) Actions() []models.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.EventType(nil), n.actions...)
}

// at returns 2024-04-<day> hh:mm UTC.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.April, day, hour, minute, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
