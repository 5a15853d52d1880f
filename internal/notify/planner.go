package notify

import (
	"fmt"
	"sort"
	"time"
)

// SendKind labels why a planned send exists.
type SendKind string

const (
	SendImmediate SendKind = "immediate"
	SendReminder  SendKind = "reminder"
	SendScheduled SendKind = "scheduled"
)

// reminderLead is how far before the session start the reminder fires.
const reminderLead = 24 * time.Hour

// Settings captures the delivery choices made when convoking a session.
type Settings struct {
	SendNow     bool
	Reminder24h bool
	ScheduledAt *time.Time
}

// PlannedSend is one resolved point in time at which notices go out.
type PlannedSend struct {
	At   time.Time
	Kind SendKind
}

// Plan expands the settings into concrete send times relative to now and the
// session start. Past send times are dropped rather than fired late: a
// reminder for a session under 24 hours away, or a scheduled time already
// behind us, produces no entry. Results are ordered by time.
func Plan(settings Settings, sessionStart, now time.Time) []PlannedSend {
	var sends []PlannedSend

	if settings.SendNow {
		sends = append(sends, PlannedSend{At: now, Kind: SendImmediate})
	}
	if settings.Reminder24h && !sessionStart.IsZero() {
		at := sessionStart.Add(-reminderLead)
		if at.After(now) {
			sends = append(sends, PlannedSend{At: at, Kind: SendReminder})
		}
	}
	if settings.ScheduledAt != nil && settings.ScheduledAt.After(now) {
		sends = append(sends, PlannedSend{At: *settings.ScheduledAt, Kind: SendScheduled})
	}

	sort.Slice(sends, func(i, j int) bool { return sends[i].At.Before(sends[j].At) })
	return sends
}

// Describe renders a plan for logs.
func Describe(sends []PlannedSend) string {
	if len(sends) == 0 {
		return "no sends planned"
	}
	out := ""
	for i, s := range sends {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s at %s", s.Kind, s.At.Format(time.RFC3339))
	}
	return out
}
