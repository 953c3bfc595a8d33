// Package quota defines the append-only message-attempt log and the
// rolling hour/day/month window accounting built on top of it.
package quota

import (
	"context"
	"time"
)

// Window identifies one of the three counting windows.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

// Event is one processed inbound message attempt. Events are written for
// every attempt, including gated ones, and are never mutated.
type Event struct {
	ID          string
	TenantID    uint
	Sender      string
	HourBucket  string
	DayBucket   string
	MonthBucket string
	Category    string
	Allowed     bool
	CreatedAt   time.Time
}

// Buckets are the window keys for one instant. Keys use the server-local
// clock with no timezone adjustment: calendar hour, day, and month.
type Buckets struct {
	Hour  string
	Day   string
	Month string
}

// BucketsAt computes the window keys for t.
func BucketsAt(t time.Time) Buckets {
	return Buckets{
		Hour:  t.Format("2006010215"),
		Day:   t.Format("20060102"),
		Month: t.Format("200601"),
	}
}

// Allowance is the standing of one window: messages used against its
// ceiling. A zero limit means unlimited.
type Allowance struct {
	Window Window `json:"window"`
	Used   int64  `json:"used"`
	Limit  int64  `json:"limit"`
}

// Remaining returns how many messages are left in the window; unlimited
// windows report -1.
func (a Allowance) Remaining() int64 {
	if a.Limit == 0 {
		return -1
	}
	if a.Used >= a.Limit {
		return 0
	}
	return a.Limit - a.Used
}

// Exceeded reports whether the window's ceiling is hit.
func (a Allowance) Exceeded() bool {
	return a.Limit != 0 && a.Used >= a.Limit
}

// Decision is the outcome of a limit check. Allowances for all three
// windows are always populated so callers can render "X of Y remaining";
// DeniedWindow is set to the tightest violated window when not allowed.
type Decision struct {
	Allowed      bool
	DeniedWindow Window
	Allowances   []Allowance
}

// Repository is the durable append-only event log.
type Repository interface {
	Append(ctx context.Context, event *Event) error
	CountHour(ctx context.Context, tenantID uint, bucket string) (int64, error)
	CountDay(ctx context.Context, tenantID uint, bucket string) (int64, error)
	CountMonth(ctx context.Context, tenantID uint, bucket string) (int64, error)
}
