package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the yyyy-mm layout used for month keys.
const MonthLayout = "2006-01"

// Month identifies a calendar month bucket.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a yyyy-mm month key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month a timestamp falls into.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Contains reports whether the date falls into the month.
func (m Month) Contains(d Date) bool {
	return d.MonthKey() == m
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
