package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestExamDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	tests := []struct {
		name     string
		duration *int
		started  time.Time
		want     time.Time
	}{
		{name: "no duration uses end time", duration: nil, started: start, want: end},
		{name: "duration shortens the attempt", duration: intPtr(45), started: start.Add(10 * time.Minute), want: start.Add(55 * time.Minute)},
		{name: "late start is capped at end time", duration: intPtr(90), started: start.Add(100 * time.Minute), want: end},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Exam{StartTime: start, EndTime: end, DurationMinutes: tt.duration}
			assert.Equal(t, tt.want, e.Deadline(tt.started))
		})
	}
}

func TestExamInWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := &Exam{StartTime: start, EndTime: start.Add(time.Hour)}

	assert.False(t, e.InWindow(start.Add(-time.Second)))
	assert.True(t, e.InWindow(start))
	assert.True(t, e.InWindow(start.Add(time.Hour)))
	assert.False(t, e.InWindow(start.Add(time.Hour+time.Second)))
}

func TestPolicyExceeded(t *testing.T) {
	tests := []struct {
		name   string
		policy ProctoringPolicy
		count  int
		want   bool
	}{
		{name: "lenient never exceeds", policy: ProctoringPolicy{StrictMode: false, MaxSwitchCount: intPtr(0)}, count: 10, want: false},
		{name: "unlimited never exceeds", policy: ProctoringPolicy{StrictMode: true}, count: 10, want: false},
		{name: "at the limit", policy: ProctoringPolicy{StrictMode: true, MaxSwitchCount: intPtr(2)}, count: 2, want: false},
		{name: "over the limit", policy: ProctoringPolicy{StrictMode: true, MaxSwitchCount: intPtr(2)}, count: 3, want: true},
		{name: "zero tolerance", policy: ProctoringPolicy{StrictMode: true, MaxSwitchCount: intPtr(0)}, count: 1, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Exceeded(tt.count))
		})
	}
}

func TestPlatformPermits(t *testing.T) {
	assert.True(t, PlatformBoth.Permits(PlatformMobile))
	assert.True(t, Platform("").Permits(PlatformDesktop))
	assert.True(t, PlatformDesktop.Permits(PlatformDesktop))
	assert.False(t, PlatformDesktop.Permits(PlatformMobile))
	assert.False(t, PlatformMobile.Permits(""))
}

func TestBlurDoesNotCount(t *testing.T) {
	assert.True(t, EventTabSwitch.CountsAsSwitch())
	assert.True(t, EventExitFullscreen.CountsAsSwitch())
	assert.False(t, EventBlur.CountsAsSwitch())
	assert.False(t, ProctoringEventType("copy_paste").Valid())
}
