// Package duration holds the time arithmetic shared by the clock ledger and the
// monthly aggregation. Every function is pure and tolerant of partial data: a
// missing endpoint or a malformed pause counts as zero instead of failing.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"timebank/internal/logging"

	"github.com/sirupsen/logrus"
)

// Pause is one break inside a daily record. A nil End means the break is still open.
type Pause struct {
	Inicio *time.Time `json:"inicio"`
	Fim    *time.Time `json:"fim"`
}

// IsOpen reports whether the pause has started but not ended yet.
func (p Pause) IsOpen() bool {
	return p.Inicio != nil && p.Fim == nil
}

// Span returns whole minutes between start and end, or 0 when either is missing.
// The result may be negative; callers clamp.
func Span(start, end *time.Time) int {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return 0
	}
	return int(end.Sub(*start) / time.Minute)
}

// WorkedDuration is the gross entrada..saida span minus every closed pause, never below zero.
func WorkedDuration(entrada, saida *time.Time, pauses []Pause) int {
	if entrada == nil || saida == nil || entrada.IsZero() || saida.IsZero() {
		return 0
	}

	worked := Span(entrada, saida) - PauseDuration(pauses)
	if worked < 0 {
		return 0
	}
	return worked
}

// PauseDuration sums the closed pauses, never below zero.
func PauseDuration(pauses []Pause) int {
	total := 0
	for i, p := range pauses {
		if p.Inicio == nil || p.Fim == nil || p.Inicio.IsZero() || p.Fim.IsZero() {
			if !p.IsOpen() {
				logging.New().WithField("index", i).Warn("Skipping malformed pause interval")
			}
			continue
		}

		minutes := Span(p.Inicio, p.Fim)
		if minutes < 0 {
			logging.New().WithFields(logrus.Fields{
				"index":  i,
				"inicio": p.Inicio.Format(time.RFC3339),
				"fim":    p.Fim.Format(time.RFC3339),
			}).Warn("Skipping pause interval that ends before it starts")
			continue
		}
		total += minutes
	}

	if total < 0 {
		return 0
	}
	return total
}

// PauseDurationWithin sums the closed pauses clipped to [from, to].
func PauseDurationWithin(pauses []Pause, from, to time.Time) int {
	clipped := make([]Pause, 0, len(pauses))
	for _, p := range pauses {
		// open and malformed pauses are left for PauseDuration to skip
		if p.Inicio == nil || p.Fim == nil || p.Fim.Before(*p.Inicio) {
			clipped = append(clipped, p)
			continue
		}

		start, end := *p.Inicio, *p.Fim
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if !end.After(start) {
			continue
		}
		clipped = append(clipped, Pause{Inicio: &start, Fim: &end})
	}
	return PauseDuration(clipped)
}

// FormatMinutes renders minutes as "<sign><H>h <M>m", e.g. "8h 0m" or "-0h 30m".
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%dh %dm", sign, minutes/60, minutes%60)
}

var durationPattern = regexp.MustCompile(`^(-)?\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m(?:in)?)?$`)

// ParseMinutes is the inverse of FormatMinutes. It accepts "Xh Ym" and "Xh Ymin" with an
// optional leading "-"; either part may be omitted ("3h", "30m"). Anything else parses to 0.
func ParseMinutes(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	match := durationPattern.FindStringSubmatch(text)
	if match == nil || (match[2] == "" && match[3] == "") {
		return 0
	}

	hours, _ := strconv.Atoi(match[2])
	minutes, _ := strconv.Atoi(match[3])

	total := hours*60 + minutes
	if match[1] == "-" {
		total = -total
	}
	return total
}
