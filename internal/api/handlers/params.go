package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dvloznov/finance-insights/internal/analysis"
)

const dateLayout = "2006-01-02"

// parseWindow reads start_date and end_date (both inclusive, YYYY-MM-DD)
// into a half-open window. Missing bounds fall back to the trailing window
// of lookbackMonths ending today.
func parseWindow(query url.Values, now time.Time, lookbackMonths int) (time.Time, time.Time, error) {
	start, end := analysis.DefaultWindow(now, lookbackMonths)

	if s := query.Get("start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid start_date format")
		}
		start = t
	}
	if s := query.Get("end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid end_date format")
		}
		end = t.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}

// parseMonths reads a month count in [1, max]. Counts above max are
// rejected rather than clamped so callers notice.
func parseMonths(query url.Values, key string, fallback, max int) (int, error) {
	s := query.Get(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > max {
		return 0, fmt.Errorf("%s must be an integer between 1 and %d", key, max)
	}
	return n, nil
}
