package holidays

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendar = `{
  "year": 2024,
  "months": [
    {"month": 1, "days": "1,2,8+"},
    {"month": 2, "days": "22*, 23"}
  ],
  "holidays": [
    {"date": "2024-03-08", "description": "Regional day", "scope": [3, 4]}
  ]
}`

func TestParse(t *testing.T) {
	days, err := Parse([]byte(calendar))
	require.NoError(t, err)
	require.Len(t, days, 5)

	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), days[2].Date)
	assert.Equal(t, 23, days[3].Day, "shortened days are skipped")
	assert.Equal(t, "Regional day", days[4].Description)
	assert.Equal(t, []uint{3, 4}, days[4].Scope)

	assert.Len(t, ForMonth(days, 2024, 1), 3)
	assert.Len(t, ForMonth(days, 2024, 3), 1)
	assert.Empty(t, ForMonth(days, 2023, 1))
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad json":    `{`,
		"bad day":     `{"year": 2024, "months": [{"month": 1, "days": "x"}]}`,
		"bad month":   `{"year": 2024, "months": [{"month": 13, "days": "1"}]}`,
		"no such day": `{"year": 2024, "months": [{"month": 2, "days": "30"}]}`,
		"bad date":    `{"year": 2024, "holidays": [{"date": "08.03.2024"}]}`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.json")
	require.NoError(t, os.WriteFile(path, []byte(calendar), 0o600))

	days, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, days, 5)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
