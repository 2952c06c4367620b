package holidays

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CalendarJSON is the yearly holiday calendar file.
//
//	{
//	  "year": 2024,
//	  "months": [{"month": 1, "days": "1,2+,8"}],
//	  "holidays": [{"date": "2024-03-08", "description": "Women's Day", "scope": [3, 4]}]
//	}
//
// Days in "months" apply to everyone. A "*" suffix marks a shortened workday and is
// skipped; a "+" suffix marks a moved holiday and is kept.
type CalendarJSON struct {
	Year     int            `json:"year"`
	Months   []MonthDays    `json:"months"`
	Holidays []NamedHoliday `json:"holidays"`
}

type MonthDays struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type NamedHoliday struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Scope       []uint `json:"scope"`
}

// Holiday is one parsed calendar date.
type Holiday struct {
	Date        time.Time
	Year        int
	Month       int
	Day         int
	Description string
	Scope       []uint
}

func ParseFile(filePath string) ([]Holiday, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]Holiday, error) {
	var calendar CalendarJSON
	if err := json.Unmarshal(data, &calendar); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	result := []Holiday{}
	seen := map[string]bool{}

	add := func(h Holiday) {
		key := h.Date.Format("2006-01-02") + fmt.Sprint(h.Scope)
		if seen[key] {
			return
		}
		seen[key] = true
		result = append(result, h)
	}

	for _, monthData := range calendar.Months {
		if monthData.Month < 1 || monthData.Month > 12 {
			return nil, fmt.Errorf("invalid month %d", monthData.Month)
		}

		for _, dayStr := range strings.Split(monthData.Days, ",") {
			dayStr = strings.TrimSpace(dayStr)
			if dayStr == "" || strings.HasSuffix(dayStr, "*") {
				continue
			}
			dayStr = strings.TrimSuffix(dayStr, "+")

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(calendar.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.UTC)
			if date.Month() != time.Month(monthData.Month) {
				return nil, fmt.Errorf("day %d does not exist in month %d", day, monthData.Month)
			}

			add(Holiday{
				Date:  date,
				Year:  calendar.Year,
				Month: monthData.Month,
				Day:   day,
			})
		}
	}

	for _, named := range calendar.Holidays {
		date, err := time.Parse("2006-01-02", named.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holiday date '%s': %w", named.Date, err)
		}

		add(Holiday{
			Date:        date,
			Year:        date.Year(),
			Month:       int(date.Month()),
			Day:         date.Day(),
			Description: named.Description,
			Scope:       named.Scope,
		})
	}

	return result, nil
}

// ForMonth filters days to one month.
func ForMonth(days []Holiday, year, month int) []Holiday {
	result := []Holiday{}
	for _, day := range days {
		if day.Year == year && day.Month == month {
			result = append(result, day)
		}
	}
	return result
}
