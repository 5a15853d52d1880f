package notify

import (
	"testing"
	"time"
)

func TestPlanExpandsSettings(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	scheduled := time.Date(2026, 9, 5, 8, 0, 0, 0, time.UTC)
	pastScheduled := now.Add(-time.Hour)

	tests := []struct {
		name     string
		settings Settings
		start    time.Time
		want     []SendKind
	}{
		{
			name:     "immediate only",
			settings: Settings{SendNow: true},
			start:    start,
			want:     []SendKind{SendImmediate},
		},
		{
			name:     "all three ordered by time",
			settings: Settings{SendNow: true, Reminder24h: true, ScheduledAt: &scheduled},
			start:    start,
			want:     []SendKind{SendImmediate, SendScheduled, SendReminder},
		},
		{
			name:     "reminder dropped when session under a day away",
			settings: Settings{Reminder24h: true},
			start:    now.Add(2 * time.Hour),
			want:     nil,
		},
		{
			name:     "scheduled time in the past dropped",
			settings: Settings{ScheduledAt: &pastScheduled},
			start:    start,
			want:     nil,
		},
		{
			name:     "no settings yields empty plan",
			settings: Settings{},
			start:    start,
			want:     nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sends := Plan(tc.settings, tc.start, now)
			if len(sends) != len(tc.want) {
				t.Fatalf("expected %d sends, got %d (%s)", len(tc.want), len(sends), Describe(sends))
			}
			for i, kind := range tc.want {
				if sends[i].Kind != kind {
					t.Fatalf("expected send %d to be %s, got %s", i, kind, sends[i].Kind)
				}
			}
		})
	}
}

func TestPlanReminderTime(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

	sends := Plan(Settings{Reminder24h: true}, start, now)
	if len(sends) != 1 {
		t.Fatalf("expected one send, got %d", len(sends))
	}
	want := start.Add(-24 * time.Hour)
	if !sends[0].At.Equal(want) {
		t.Fatalf("expected reminder at %v, got %v", want, sends[0].At)
	}
}
