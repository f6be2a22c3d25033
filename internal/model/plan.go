// Package model defines domain entities for the application.
package model

import "time"

// Well-known plan names seeded by migration.
const (
	PlanNameFree     = "free"
	PlanNamePro      = "pro"
	PlanNameBusiness = "business"
)

// Plan represents a subscription tier. Read-mostly reference data
// seeded by migration.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LinkLimit    int       `json:"link_limit_per_month"` // 0 means unlimited
	DurationDays int       `json:"duration_days"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// Unlimited reports whether the plan places no ceiling on link creation.
func (p *Plan) Unlimited() bool {
	return p.LinkLimit <= 0
}

// Subscription ties a user to a plan and anchors the quota billing period.
// Quota periods roll every Plan.DurationDays from StartedAt, not per
// calendar month.
type Subscription struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	PlanID    string     `json:"plan_id"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PeriodIndex returns the zero-based billing period the given instant
// falls into, anchored to StartedAt.
func (s *Subscription) PeriodIndex(now time.Time, durationDays int) int64 {
	if durationDays <= 0 {
		durationDays = 30
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	period := time.Duration(durationDays) * 24 * time.Hour
	return int64(elapsed / period)
}

// PeriodStart returns the instant the current billing period began.
func (s *Subscription) PeriodStart(now time.Time, durationDays int) time.Time {
	if durationDays <= 0 {
		durationDays = 30
	}
	period := time.Duration(durationDays) * 24 * time.Hour
	return s.StartedAt.Add(time.Duration(s.PeriodIndex(now, durationDays)) * period)
}

// PeriodEnd returns the instant the current billing period rolls over.
func (s *Subscription) PeriodEnd(now time.Time, durationDays int) time.Time {
	if durationDays <= 0 {
		durationDays = 30
	}
	period := time.Duration(durationDays) * 24 * time.Hour
	idx := s.PeriodIndex(now, durationDays)
	return s.StartedAt.Add(time.Duration(idx+1) * period)
}
