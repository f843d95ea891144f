package session

import (
	"testing"
	"time"
)

func mustPolicy(t *testing.T, cutoffHour, idleMinutes int) Policy {
	t.Helper()
	p, err := NewPolicy(cutoffHour, idleMinutes, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewPolicyValidation(t *testing.T) {
	cases := []struct {
		name        string
		cutoffHour  int
		idleMinutes int
		wantErr     bool
	}{
		{name: "valid", cutoffHour: 20, idleMinutes: 30},
		{name: "late closing", cutoffHour: 23, idleMinutes: 30},
		{name: "hour zero would end shifts instantly", cutoffHour: 0, idleMinutes: 30, wantErr: true},
		{name: "hour too high", cutoffHour: 24, idleMinutes: 30, wantErr: true},
		{name: "negative hour", cutoffHour: -1, idleMinutes: 30, wantErr: true},
		{name: "zero idle", cutoffHour: 20, idleMinutes: 0, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPolicy(tc.cutoffHour, tc.idleMinutes, time.UTC)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	policy := mustPolicy(t, 20, 30)
	signIn := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name         string
		lastActivity time.Time
		now          time.Time
		want         GuardResult
	}{
		{
			name:         "active before cutoff",
			lastActivity: signIn,
			now:          signIn.Add(10 * time.Minute),
			want:         GuardOK,
		},
		{
			name:         "exactly at idle limit stays in",
			lastActivity: signIn,
			now:          signIn.Add(30 * time.Minute),
			want:         GuardOK,
		},
		{
			name:         "past idle limit",
			lastActivity: signIn,
			now:          signIn.Add(31 * time.Minute),
			want:         GuardIdleTimeout,
		},
		{
			name:         "at cutoff hour",
			lastActivity: time.Date(2026, 8, 30, 19, 45, 0, 0, time.UTC),
			now:          time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC),
			want:         GuardDailyCutoff,
		},
		{
			name:         "past cutoff hour",
			lastActivity: time.Date(2026, 8, 30, 20, 25, 0, 0, time.UTC),
			now:          time.Date(2026, 8, 30, 20, 30, 0, 0, time.UTC),
			want:         GuardDailyCutoff,
		},
		{
			name:         "idle reported before cutoff",
			lastActivity: time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC),
			now:          time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC),
			want:         GuardIdleTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := New("vol@example.org", signIn)
			ctx.Touch(tc.lastActivity)
			if got := ctx.Guard(policy, tc.now); got != tc.want {
				t.Fatalf("Guard = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestGuardUsesPolicyTimezone(t *testing.T) {
	// 20:00 UTC is 16:00 in fixed UTC-4; a 20:00 local cutoff has not been
	// reached yet there.
	loc := time.FixedZone("UTC-4", -4*3600)
	policy, err := NewPolicy(20, 30, loc)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)
	ctx := New("vol@example.org", now.Add(-5*time.Minute))
	ctx.Touch(now.Add(-5 * time.Minute))

	if got := ctx.Guard(policy, now); got != GuardOK {
		t.Fatalf("Guard = %s, want OK", got)
	}
}

func TestTouchAndReset(t *testing.T) {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	ctx := New("vol@example.org", start)
	ctx.VisitID = 12
	ctx.ScannedName = "Heinz tomato soup"

	later := start.Add(45 * time.Minute)
	ctx.Touch(later)
	if !ctx.LastActivityAt.Equal(later) {
		t.Fatalf("LastActivityAt = %v", ctx.LastActivityAt)
	}
	if got := ctx.MinutesActive(later); got != 45 {
		t.Fatalf("MinutesActive = %d", got)
	}

	ctx.Reset()
	if ctx.Email != "" || ctx.VisitID != 0 || ctx.ScannedName != "" || !ctx.ShiftStartedAt.IsZero() {
		t.Fatalf("context not cleared: %+v", ctx)
	}
	if got := ctx.MinutesActive(later); got != 0 {
		t.Fatalf("MinutesActive after reset = %d", got)
	}
}
