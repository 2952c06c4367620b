package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"timebank/internal/models"
	"timebank/pkg/duration"
)

var dateLayouts = []string{models.DateLayout, "02.01.2006"}

func (h *Handler) parseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if day, err := time.ParseInLocation(layout, text, h.loc); err == nil {
			return day, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", text)
}

// parseMonth accepts "2024-04" and "04.2024".
func parseMonth(text string) (int, int, error) {
	for _, layout := range []string{"2006-01", "01.2006"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Year(), int(t.Month()), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid month %q, use YYYY-MM", text)
}

// monthArg falls back to the current month when args is empty.
func (h *Handler) monthArg(args []string) (int, int, error) {
	if len(args) == 0 {
		now := h.now().In(h.loc)
		return now.Year(), int(now.Month()), nil
	}
	return parseMonth(args[0])
}

// clockOn combines a day with "HH:MM".
func (h *Handler) clockOn(day time.Time, text string) (time.Time, error) {
	t, err := time.Parse("15:04", text)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, use HH:MM", text)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, h.loc), nil
}

func parseUserID(text string) (uint, error) {
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", text)
	}
	return uint(id), nil
}

// parseMinutesArg accepts plain minutes or the "Xh Ym" form.
func parseMinutesArg(text string) (int, error) {
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	m := duration.ParseMinutes(text)
	if m == 0 && !strings.HasPrefix(strings.TrimPrefix(text, "-"), "0") {
		return 0, fmt.Errorf("invalid duration %q", text)
	}
	return m, nil
}

// splitOptions separates key=value tokens from the free text around them.
func splitOptions(args []string) (map[string]string, string) {
	opts := make(map[string]string)
	var rest []string
	for _, arg := range args {
		if key, value, ok := strings.Cut(arg, "="); ok && key != "" {
			opts[strings.ToLower(key)] = value
			continue
		}
		rest = append(rest, arg)
	}
	return opts, strings.Join(rest, " ")
}

// overridesFrom reads entry=, exit=, break= and abono= options for the given day.
func (h *Handler) overridesFrom(day time.Time, opts map[string]string) (models.Overrides, error) {
	var o models.Overrides

	if v, ok := opts["entry"]; ok {
		t, err := h.clockOn(day, v)
		if err != nil {
			return o, err
		}
		o.NewEntry = &t
	}
	if v, ok := opts["exit"]; ok {
		t, err := h.clockOn(day, v)
		if err != nil {
			return o, err
		}
		o.NewExit = &t
	}
	if v, ok := opts["break"]; ok {
		m, err := parseMinutesArg(v)
		if err != nil {
			return o, err
		}
		s := duration.FormatMinutes(m)
		o.ManualBreak = &s
	}
	if v, ok := opts["abono"]; ok {
		m, err := parseMinutesArg(v)
		if err != nil {
			return o, err
		}
		s := duration.FormatMinutes(m)
		o.AbonoHoras = &s
	}

	return o, nil
}
