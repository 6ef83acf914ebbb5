package core

import (
	"fmt"
	"time"
)

// Clock resolves "today" in the business timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock for a fixed UTC offset in hours.
func NewClock(offsetHours int) *Clock {
	return &Clock{loc: ZoneFromOffset(offsetHours), now: time.Now}
}

// NewClockAt creates a clock with an explicit time source, used in tests.
func NewClockAt(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// ZoneFromOffset builds a fixed zone such as "UTC+3".
func ZoneFromOffset(hours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", hours)
	return time.FixedZone(name, hours*3600)
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today returns the current business date.
func (c *Clock) Today() Date {
	return DateOf(c.now(), c.loc)
}

// DaysAgo returns the business date n days before today.
func (c *Clock) DaysAgo(n int) Date {
	return c.Today().AddDays(-n)
}
