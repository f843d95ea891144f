// Package session replaces the implicit per-session key/value state of the
// hosted UI with an explicit context object and an explicit sign-out policy.
package session

import (
	"fmt"
	"time"
)

// Policy controls automatic sign-out. Both fields are required configuration;
// there is no silently-defaulted variant.
type Policy struct {
	CutoffHour int
	IdleLimit  time.Duration
	Location   *time.Location
}

// NewPolicy validates the sign-out settings. Hour 0 is rejected: the cutoff
// instant would be the midnight starting the day, ending every shift the
// moment it begins. Use 23 for a station that closes late.
func NewPolicy(cutoffHour, idleMinutes int, loc *time.Location) (Policy, error) {
	if cutoffHour < 1 || cutoffHour > 23 {
		return Policy{}, fmt.Errorf("cutoff hour must be 1-23: %d", cutoffHour)
	}
	if idleMinutes <= 0 {
		return Policy{}, fmt.Errorf("idle limit must be positive: %d", idleMinutes)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Policy{CutoffHour: cutoffHour, IdleLimit: time.Duration(idleMinutes) * time.Minute, Location: loc}, nil
}

// GuardResult is the typed outcome of a policy check.
type GuardResult string

const (
	GuardOK          GuardResult = "OK"
	GuardIdleTimeout GuardResult = "IDLE_TIMEOUT"
	GuardDailyCutoff GuardResult = "DAILY_CUTOFF"
)

// Context is one volunteer's working state for the current shift.
type Context struct {
	Email          string
	VisitID        int
	ShiftStartedAt time.Time
	LastActivityAt time.Time
	ScannedName    string
}

func New(email string, now time.Time) *Context {
	return &Context{Email: email, ShiftStartedAt: now, LastActivityAt: now}
}

// Reset clears everything back to signed-out.
func (c *Context) Reset() {
	*c = Context{}
}

// Touch records user activity.
func (c *Context) Touch(now time.Time) {
	c.LastActivityAt = now
}

// Guard checks the sign-out policy against now. It does not mutate the
// context; callers end the shift and Reset on a non-OK result.
func (c *Context) Guard(p Policy, now time.Time) GuardResult {
	local := now.In(p.Location)

	if !c.LastActivityAt.IsZero() && local.Sub(c.LastActivityAt.In(p.Location)) > p.IdleLimit {
		return GuardIdleTimeout
	}

	cutoff := time.Date(local.Year(), local.Month(), local.Day(), p.CutoffHour, 0, 0, 0, p.Location)
	if !local.Before(cutoff) {
		return GuardDailyCutoff
	}
	return GuardOK
}

// MinutesActive reports how long the shift has been running.
func (c *Context) MinutesActive(now time.Time) int {
	if c.ShiftStartedAt.IsZero() {
		return 0
	}
	mins := int(now.Sub(c.ShiftStartedAt).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}
