package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic-records/internal/ports/clock"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidRange  = errors.New("invalid range: from is after to")
)

const (
	PeriodDay    = "day"
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodCustom = "custom"
)

// ResolvePeriod traduce la etiqueta a una ventana [from, to] inclusiva.
// week = los últimos 7 días incluyendo hoy; month = del 1 a hoy.
// from/to sólo se usan con custom.
func ResolvePeriod(period string, today, from, to time.Time) (time.Time, time.Time, error) {
	today = clock.DateOf(today)

	switch strings.ToLower(strings.TrimSpace(period)) {
	case PeriodDay:
		return today, today, nil
	case PeriodWeek:
		return today.AddDate(0, 0, -6), today, nil
	case PeriodMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today, nil
	case PeriodCustom:
		if from.IsZero() || to.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: custom period needs from and to", ErrInvalidPeriod)
		}
		return clock.DateOf(from), clock.DateOf(to), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
}
