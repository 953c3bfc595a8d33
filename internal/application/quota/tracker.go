// Package quota implements the tracker that gates inbound messages
// against tier ceilings and records every attempt in the append-only log.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	quotadomain "github.com/replygate/replygate/internal/domain/quota"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/logger"
)

// Tracker checks tier ceilings and appends attempt records. Counting and
// recording are deliberately separate calls: the pipeline records every
// attempt, including denied ones, exactly once.
type Tracker struct {
	repo   quotadomain.Repository
	logger logger.Interface
	now    func() time.Time
}

func NewTracker(repo quotadomain.Repository, log logger.Interface) *Tracker {
	return &Tracker{
		repo:   repo,
		logger: log.Named("quota"),
		now:    time.Now,
	}
}

// Check computes the three window counts for the tenant and compares each
// against its tier ceilings. The tightest violated window (hour before
// day before month) drives the denial.
func (t *Tracker) Check(ctx context.Context, tn *tenant.Tenant) (quotadomain.Decision, error) {
	buckets := quotadomain.BucketsAt(t.now())
	limits := tn.Tier().Limits()

	hourUsed, err := t.repo.CountHour(ctx, tn.ID(), buckets.Hour)
	if err != nil {
		return quotadomain.Decision{}, fmt.Errorf("count hour window: %w", err)
	}
	dayUsed, err := t.repo.CountDay(ctx, tn.ID(), buckets.Day)
	if err != nil {
		return quotadomain.Decision{}, fmt.Errorf("count day window: %w", err)
	}
	monthUsed, err := t.repo.CountMonth(ctx, tn.ID(), buckets.Month)
	if err != nil {
		return quotadomain.Decision{}, fmt.Errorf("count month window: %w", err)
	}

	allowances := []quotadomain.Allowance{
		{Window: quotadomain.WindowHour, Used: hourUsed, Limit: limits.PerHour},
		{Window: quotadomain.WindowDay, Used: dayUsed, Limit: limits.PerDay},
		{Window: quotadomain.WindowMonth, Used: monthUsed, Limit: limits.PerMonth},
	}

	decision := quotadomain.Decision{Allowed: true, Allowances: allowances}
	for _, a := range allowances {
		if a.Exceeded() {
			decision.Allowed = false
			decision.DeniedWindow = a.Window
			break
		}
	}
	return decision, nil
}

// Record appends one attempt event. Callers invoke it exactly once per
// inbound event that reaches the quota gate or beyond.
func (t *Tracker) Record(ctx context.Context, tenantID uint, sender, category string, allowed bool) error {
	now := t.now()
	buckets := quotadomain.BucketsAt(now)

	event := &quotadomain.Event{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Sender:      sender,
		HourBucket:  buckets.Hour,
		DayBucket:   buckets.Day,
		MonthBucket: buckets.Month,
		Category:    category,
		Allowed:     allowed,
		CreatedAt:   now,
	}

	if err := t.repo.Append(ctx, event); err != nil {
		return fmt.Errorf("append quota event: %w", err)
	}
	t.logger.Debugw("quota event recorded",
		"tenant_id", tenantID, "allowed", allowed, "category", category)
	return nil
}
