package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/repository"
)

const (
	defaultStatsWindowDays = 30
	maxStatsWindowDays     = 365
)

// ClickStatsStore reads pre-aggregated click statistics.
type ClickStatsStore interface {
	GetDailyStats(ctx context.Context, linkID string, from, to time.Time) ([]*model.DailyLinkStats, error)
	GetStatsSummary(ctx context.Context, linkID string, from, to time.Time) (*model.StatsSummary, error)
}

// DashboardStore reads per-owner totals.
type DashboardStore interface {
	OwnerTotals(ctx context.Context, ownerID string) (*model.DashboardStats, error)
}

// StatsService serves link statistics to their owners.
type StatsService struct {
	links     LinkStore
	clicks    ClickStatsStore
	dashboard DashboardStore
}

// NewStatsService creates a new StatsService.
func NewStatsService(links LinkStore, clicks ClickStatsStore, dashboard DashboardStore) *StatsService {
	return &StatsService{links: links, clicks: clicks, dashboard: dashboard}
}

// LinkStats returns the daily time series and summary for a link.
// Only the owner or an admin may read a link's stats.
func (s *StatsService) LinkStats(ctx context.Context, identity *model.Identity, code string, from, to time.Time) (*model.LinkStatsResponse, error) {
	link, err := s.links.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if !link.OwnedBy(identity.UserID, identity.Role) {
		return nil, ErrForbidden
	}

	from, to = normalizeStatsWindow(from, to)

	summary, err := s.clicks.GetStatsSummary(ctx, link.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("stats summary: %w", err)
	}

	daily, err := s.clicks.GetDailyStats(ctx, link.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	resp := &model.LinkStatsResponse{
		Code:        code,
		Summary:     *summary,
		GeneratedAt: time.Now().UTC(),
	}
	resp.Period.From = from.Format("2006-01-02")
	resp.Period.To = to.Format("2006-01-02")

	resp.Daily = make([]model.DailyBreakdown, 0, len(daily))
	for _, day := range daily {
		resp.Daily = append(resp.Daily, model.DailyBreakdown{
			Date:           day.Date.Format("2006-01-02"),
			TotalClicks:    day.TotalClicks,
			UniqueVisitors: day.UniqueVisitors,
		})
	}

	return resp, nil
}

// Dashboard returns aggregate totals for an owner's links.
func (s *StatsService) Dashboard(ctx context.Context, ownerID string) (*model.DashboardStats, error) {
	return s.dashboard.OwnerTotals(ctx, ownerID)
}

// normalizeStatsWindow fills defaults and clamps the range.
func normalizeStatsWindow(from, to time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultStatsWindowDays)
	}
	if to.Before(from) {
		from, to = to, from
	}
	if to.Sub(from) > maxStatsWindowDays*24*time.Hour {
		from = to.AddDate(0, 0, -maxStatsWindowDays)
	}
	return from, to
}
