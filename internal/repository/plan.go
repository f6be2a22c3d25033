package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linkcut/linkcut/internal/model"
)

// Common errors for plan repository operations.
var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ListPlans returns all plans ordered by price.
func (r *Repository) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	query := `
		SELECT id, name, link_limit, duration_days, price_cents, created_at
		FROM plans
		ORDER BY price_cents ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.Plan
	for rows.Next() {
		var plan model.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.LinkLimit, &plan.DurationDays, &plan.PriceCents, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

// GetPlanByID retrieves a plan by its ID.
func (r *Repository) GetPlanByID(ctx context.Context, id string) (*model.Plan, error) {
	query := `
		SELECT id, name, link_limit, duration_days, price_cents, created_at
		FROM plans
		WHERE id = $1
	`

	var plan model.Plan
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&plan.ID, &plan.Name, &plan.LinkLimit, &plan.DurationDays, &plan.PriceCents, &plan.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

// GetPlanByName retrieves a plan by its unique name.
func (r *Repository) GetPlanByName(ctx context.Context, name string) (*model.Plan, error) {
	query := `
		SELECT id, name, link_limit, duration_days, price_cents, created_at
		FROM plans
		WHERE name = $1
	`

	var plan model.Plan
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&plan.ID, &plan.Name, &plan.LinkLimit, &plan.DurationDays, &plan.PriceCents, &plan.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

// CreateSubscription records a user's subscription to a plan.
// The most recent subscription is treated as the active one.
func (r *Repository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, started_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.StartedAt,
		sub.ExpiresAt,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetActiveSubscription returns the user's current subscription with its plan.
func (r *Repository) GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, *model.Plan, error) {
	query := `
		SELECT s.id, s.user_id, s.plan_id, s.started_at, s.expires_at, s.created_at,
		       p.id, p.name, p.link_limit, p.duration_days, p.price_cents, p.created_at
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1
		ORDER BY s.started_at DESC
		LIMIT 1
	`

	var sub model.Subscription
	var plan model.Plan
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.StartedAt, &sub.ExpiresAt, &sub.CreatedAt,
		&plan.ID, &plan.Name, &plan.LinkLimit, &plan.DurationDays, &plan.PriceCents, &plan.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, &plan, nil
}
