package main

import (
	"bytes"
	"io"
	"testing"
	"time"

	"timebank/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.SetOutput(io.Discard)
}

func TestPeriodArg(t *testing.T) {
	fallback := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	year, month, err := periodArg(nil, fallback)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	year, month, err = periodArg([]string{"2023-12"}, fallback)
	require.NoError(t, err)
	assert.Equal(t, 2023, year)
	assert.Equal(t, 12, month)

	_, _, err = periodArg([]string{"12/2023"}, fallback)
	assert.Error(t, err)
}

func TestParseUser(t *testing.T) {
	id, err := parseUser("7")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = parseUser("0")
	assert.Error(t, err)
	_, err = parseUser("ana")
	assert.Error(t, err)
}

func TestCloseMonthCommand(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:cli_close_month?mode=memory&cache=shared")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--env", "missing.env", "close-month", "2024-04"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"month": 4`)
	assert.Contains(t, out.String(), `"failed": 0`)
}

func TestSummaryCommand_InvalidUser(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:cli_summary?mode=memory&cache=shared")

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--env", "missing.env", "summary", "nobody"})

	assert.Error(t, root.Execute())
}
