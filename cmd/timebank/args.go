package main

import (
	"fmt"
	"strconv"
	"time"
)

// periodArg reads an optional YYYY-MM argument, defaulting to fallback's month.
func periodArg(args []string, fallback time.Time) (int, int, error) {
	if len(args) == 0 || args[0] == "" {
		return fallback.Year(), int(fallback.Month()), nil
	}

	t, err := time.Parse("2006-01", args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, use YYYY-MM", args[0])
	}
	return t.Year(), int(t.Month()), nil
}

func parseUser(text string) (uint, error) {
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", text)
	}
	return uint(id), nil
}
