package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/repository"
)

// Admin service errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrPlanNotFound = errors.New("plan not found")
)

// PlanStore is the persistence interface for plans and subscriptions.
type PlanStore interface {
	ListPlans(ctx context.Context) ([]*model.Plan, error)
	GetPlanByID(ctx context.Context, id string) (*model.Plan, error)
	GetPlanByName(ctx context.Context, name string) (*model.Plan, error)
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, *model.Plan, error)
}

// UserDirectory lists and resolves accounts for administration.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, limit int) ([]*model.User, error)
}

// PlanService exposes plan and subscription reads.
type PlanService struct {
	plans PlanStore
}

// NewPlanService creates a new PlanService.
func NewPlanService(plans PlanStore) *PlanService {
	return &PlanService{plans: plans}
}

// ListPlans returns all plans ordered by price.
func (s *PlanService) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return s.plans.ListPlans(ctx)
}

// CurrentPlan resolves the user's active plan, falling back to free.
func (s *PlanService) CurrentPlan(ctx context.Context, userID string) (*model.Subscription, *model.Plan, error) {
	sub, plan, err := s.plans.GetActiveSubscription(ctx, userID)
	if err == nil {
		return sub, plan, nil
	}
	if !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, nil, err
	}

	plan, err = s.plans.GetPlanByName(ctx, model.PlanNameFree)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve free plan: %w", err)
	}
	return nil, plan, nil
}

// AdminService handles administrative operations.
type AdminService struct {
	users UserDirectory
	plans PlanStore
}

// NewAdminService creates a new AdminService.
func NewAdminService(users UserDirectory, plans PlanStore) *AdminService {
	return &AdminService{users: users, plans: plans}
}

// ListUsers returns accounts for the admin console.
func (s *AdminService) ListUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return s.users.ListUsers(ctx, clampLimit(limit))
}

// AssignPlan starts a fresh subscription for the user. The new
// subscription supersedes any prior one and re-anchors the quota
// billing period at assignment time.
func (s *AdminService) AssignPlan(ctx context.Context, userID, planID string) (*model.Subscription, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	sub := &model.Subscription{
		ID:        ulid.Make().String(),
		UserID:    userID,
		PlanID:    plan.ID,
		StartedAt: now,
		CreatedAt: now,
	}

	if err := s.plans.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	return sub, nil
}
