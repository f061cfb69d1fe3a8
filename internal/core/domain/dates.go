package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date (must be YYYY-MM-DD)")
)

// Clock abstracts the wall clock so that "today" can be simulated in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reports the current time in a fixed location. A nil Location
// means the process local time zone.
type RealClock struct {
	Location *time.Location
}

func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// AdvanceDays moves the clock by whole calendar days, keeping the wall time.
func (c *FakeClock) AdvanceDays(n int) {
	c.mu.Lock()
	c.t = c.t.AddDate(0, 0, n)
	c.mu.Unlock()
}

// DateKey returns the calendar date of t in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD string as UTC midnight of that calendar
// date. Day arithmetic on the result never crosses a DST transition.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// dayIndex maps t's local calendar date to UTC midnight of the same date.
func dayIndex(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
