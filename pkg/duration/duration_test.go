package duration

import (
	"bytes"
	"io"
	"testing"
	"time"

	"timebank/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) *time.Time {
	t := time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	return &t
}

func TestWorkedDurationSubtractsClosedPauses(t *testing.T) {
	pauses := []Pause{{Inicio: at(12, 0), Fim: at(13, 0)}}

	assert.Equal(t, 480, WorkedDuration(at(8, 0), at(17, 0), pauses))
	assert.Equal(t, 60, PauseDuration(pauses))
	assert.Equal(t, "8h 0m", FormatMinutes(WorkedDuration(at(8, 0), at(17, 0), pauses)))
	assert.Equal(t, "1h 0m", FormatMinutes(PauseDuration(pauses)))
}

func TestWorkedDurationMissingEndpoints(t *testing.T) {
	assert.Zero(t, WorkedDuration(nil, at(17, 0), nil))
	assert.Zero(t, WorkedDuration(at(8, 0), nil, nil))
	assert.Zero(t, WorkedDuration(&time.Time{}, at(17, 0), nil))
}

func TestWorkedDurationClampsAtZero(t *testing.T) {
	assert.Zero(t, WorkedDuration(at(17, 0), at(8, 0), nil))

	pauses := []Pause{{Inicio: at(8, 0), Fim: at(12, 0)}}
	assert.Zero(t, WorkedDuration(at(9, 0), at(10, 0), pauses))
}

func TestPauseDurationIgnoresOpenAndMalformed(t *testing.T) {
	pauses := []Pause{
		{Inicio: at(10, 0), Fim: at(10, 15)},
		{Inicio: at(12, 0)},
		{Fim: at(14, 0)},
		{Inicio: at(16, 0), Fim: at(15, 0)},
	}

	assert.Equal(t, 15, PauseDuration(pauses))
	assert.Equal(t, 9*60-15, WorkedDuration(at(8, 0), at(17, 0), pauses))
}

func TestPauseDurationLogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(io.Discard) })

	pauses := []Pause{
		{Fim: at(14, 0)},
		{Inicio: at(16, 0), Fim: at(15, 0)},
	}
	assert.Zero(t, PauseDuration(pauses))
	assert.Contains(t, buf.String(), "Skipping malformed pause interval")
	assert.Contains(t, buf.String(), "ends before it starts")
}

func TestParseMinutesSinglePart(t *testing.T) {
	assert.Equal(t, 30, ParseMinutes("30m"))
	assert.Equal(t, 45, ParseMinutes("45min"))
	assert.Equal(t, -90, ParseMinutes("-1h 30m"))
	assert.Equal(t, 120, ParseMinutes("2h"))
	assert.Equal(t, "0h 30m", FormatMinutes(ParseMinutes("30m")))
}

func TestPauseDurationWithin(t *testing.T) {
	pauses := []Pause{
		{Inicio: at(6, 30), Fim: at(7, 30)},
		{Inicio: at(12, 0), Fim: at(12, 45)},
		{Inicio: at(15, 0)},
	}

	assert.Equal(t, 75, PauseDurationWithin(pauses, *at(7, 0), *at(13, 0)))
	assert.Equal(t, 15, PauseDurationWithin(pauses, *at(8, 0), *at(12, 15)))
	assert.Zero(t, PauseDurationWithin(pauses, *at(13, 0), *at(14, 0)))
}

func TestWorkedDurationProperty(t *testing.T) {
	for start := 0; start < 10*60; start += 37 {
		for length := 0; length < 12*60; length += 53 {
			entrada := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC).Add(time.Duration(start) * time.Minute)
			saida := entrada.Add(time.Duration(length) * time.Minute)

			var pauses []Pause
			sum := 0
			cursor := entrada
			for cursor.Add(20*time.Minute).Before(saida) && len(pauses) < 3 {
				ps := cursor.Add(5 * time.Minute)
				pe := ps.Add(10 * time.Minute)
				pauses = append(pauses, Pause{Inicio: &ps, Fim: &pe})
				sum += 10
				cursor = pe
			}

			want := length - sum
			if want < 0 {
				want = 0
			}
			require.Equal(t, want, WorkedDuration(&entrada, &saida, pauses))
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{
		0:     "0h 0m",
		45:    "0h 45m",
		480:   "8h 0m",
		-360:  "-6h 0m",
		-30:   "-0h 30m",
		10560: "176h 0m",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMinutes(in))
	}
}

func TestParseMinutes(t *testing.T) {
	cases := map[string]int{
		"8h 0m":     480,
		"0h 45m":    45,
		"1h 30min":  90,
		"-6h 0m":    -360,
		" 2h 5m ":   125,
		"3h":        180,
		"":          0,
		"garbage":   0,
		"h m":       0,
		"12:30":     0,
		"-":         0,
		"1h 5m xyz": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseMinutes(in), "input %q", in)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for m := -5000; m <= 5000; m += 7 {
		require.Equal(t, m, ParseMinutes(FormatMinutes(m)))
	}
	for _, m := range []int{0, 1, -1, 59, -59, 60, -60, 1 << 20, -(1 << 20)} {
		require.Equal(t, m, ParseMinutes(FormatMinutes(m)))
	}
}
