// Package quota enforces per-plan link creation ceilings.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/linkcut/linkcut/internal/cache"
	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/repository"
)

// Denial reasons returned in Decision.Reason.
const (
	ReasonQuotaExceeded      = "quota_exceeded"
	ReasonSubscriptionLapsed = "subscription_lapsed"
)

// SubscriptionStore resolves the active subscription and plan for a
// user, and recounts period usage from the store of record when the
// cached counter is gone.
type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, *model.Plan, error)
	GetPlanByName(ctx context.Context, name string) (*model.Plan, error)
	CountLinksCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
}

// Counter is the atomic per-period usage counter, normally Redis-backed.
// The counter is a cache of the durable creation count, not the source
// of truth: a reserve against an absent counter fails with
// cache.ErrQuotaCounterMissing and the enforcer reseeds it before
// retrying.
type Counter interface {
	ReserveQuotaSlot(ctx context.Context, ownerID, periodKey string, ceiling int64, ttl time.Duration) (*cache.QuotaResult, error)
	SeedQuotaCounter(ctx context.Context, ownerID, periodKey string, used int64, ttl time.Duration) error
	ReleaseQuotaSlot(ctx context.Context, ownerID, periodKey string) error
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Reason    string
	Remaining int64 // -1 means unlimited
	PeriodKey string
}

// Enforcer applies plan ceilings to link creation. Reservation happens
// before the code is generated, and failed creations hand their slot
// back through Release.
type Enforcer struct {
	subs    SubscriptionStore
	counter Counter
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Enforcer.
func New(subs SubscriptionStore, counter Counter, logger *slog.Logger) *Enforcer {
	return &Enforcer{
		subs:    subs,
		counter: counter,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckAndReserve claims one creation slot for the owner in the current
// billing period. Callers must Release the returned PeriodKey if the
// creation later fails for unrelated reasons.
func (e *Enforcer) CheckAndReserve(ctx context.Context, ownerID string) (*Decision, error) {
	now := e.now().UTC()

	sub, plan, err := e.subs.GetActiveSubscription(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			// Users without a subscription fall back to the free plan,
			// with periods anchored to the epoch.
			plan, err = e.subs.GetPlanByName(ctx, model.PlanNameFree)
			if err != nil {
				return nil, fmt.Errorf("resolve free plan: %w", err)
			}
			sub = &model.Subscription{UserID: ownerID, PlanID: plan.ID, StartedAt: time.Unix(0, 0).UTC()}
		} else {
			return nil, fmt.Errorf("resolve subscription: %w", err)
		}
	}

	if sub.ExpiresAt != nil && now.After(*sub.ExpiresAt) {
		return &Decision{Allowed: false, Reason: ReasonSubscriptionLapsed}, nil
	}

	if plan.Unlimited() {
		return &Decision{Allowed: true, Remaining: -1}, nil
	}

	periodKey := "p" + strconv.FormatInt(sub.PeriodIndex(now, plan.DurationDays), 10)
	ttl := time.Until(sub.PeriodEnd(now, plan.DurationDays)) + 24*time.Hour

	result, err := e.counter.ReserveQuotaSlot(ctx, ownerID, periodKey, int64(plan.LinkLimit), ttl)
	if errors.Is(err, cache.ErrQuotaCounterMissing) {
		// The counter was flushed or never existed. Rebuild it from the
		// durable creation count so usage survives cache loss, then
		// reserve against the reseeded counter.
		used, countErr := e.subs.CountLinksCreatedSince(ctx, ownerID, sub.PeriodStart(now, plan.DurationDays))
		if countErr != nil {
			return nil, fmt.Errorf("recount period usage: %w", countErr)
		}
		if seedErr := e.counter.SeedQuotaCounter(ctx, ownerID, periodKey, used, ttl); seedErr != nil {
			return nil, fmt.Errorf("seed quota counter: %w", seedErr)
		}
		e.logger.Info("quota counter reseeded",
			slog.String("owner_id", ownerID),
			slog.String("period_key", periodKey),
			slog.Int64("used", used),
		)
		result, err = e.counter.ReserveQuotaSlot(ctx, ownerID, periodKey, int64(plan.LinkLimit), ttl)
	}
	if err != nil {
		// Fail closed: an unreachable counter must not grant free
		// creations past the ceiling.
		return nil, fmt.Errorf("reserve quota slot: %w", err)
	}

	if !result.Allowed {
		e.logger.Debug("quota exceeded",
			slog.String("owner_id", ownerID),
			slog.String("plan", plan.Name),
			slog.Int64("used", result.Used),
		)
		return &Decision{Allowed: false, Reason: ReasonQuotaExceeded, PeriodKey: periodKey}, nil
	}

	return &Decision{Allowed: true, Remaining: result.Remaining, PeriodKey: periodKey}, nil
}

// Release hands back a slot claimed by CheckAndReserve. A no-op for
// unlimited plans where no slot was claimed.
func (e *Enforcer) Release(ctx context.Context, ownerID, periodKey string) error {
	if periodKey == "" {
		return nil
	}
	return e.counter.ReleaseQuotaSlot(ctx, ownerID, periodKey)
}
