package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkcut/linkcut/internal/model"
)

// ClickEventRepository provides database access for click events.
type ClickEventRepository struct {
	repo *Repository
}

// NewClickEventRepository creates a new ClickEventRepository.
func NewClickEventRepository(repo *Repository) *ClickEventRepository {
	return &ClickEventRepository{repo: repo}
}

// RecordBatch persists click events and folds their counters into
// links.click_count and daily_link_stats inside a single transaction.
// ON CONFLICT DO NOTHING on event_id drops events recorded before, and
// the counter updates are derived only from the rows actually inserted,
// so a retried or redelivered batch changes nothing. Returns the number
// of newly recorded events.
func (r *ClickEventRepository) RecordBatch(ctx context.Context, events []*model.ClickEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.repo.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin click batch: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertClickEvents(ctx, tx, events)
	if err != nil {
		return 0, err
	}

	if len(inserted) > 0 {
		deltas := make(map[string]int64, len(inserted))
		for _, event := range inserted {
			deltas[event.Code]++
		}
		if err := incrementClickCounts(ctx, tx, deltas); err != nil {
			return 0, err
		}
		if err := upsertDailyStats(ctx, tx, inserted); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit click batch: %w", err)
	}

	return len(inserted), nil
}

// insertClickEvents inserts the batch and reports which events landed.
// An event whose event_id already exists affects zero rows and is left
// out of the returned slice.
func insertClickEvents(ctx context.Context, db batchSender, events []*model.ClickEvent) ([]*model.ClickEvent, error) {
	batch := &pgx.Batch{}

	query := `
		INSERT INTO click_events (
			id, event_id, code, link_id, referrer, user_agent,
			visitor_hash, country_code, clicked_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.Code,
			event.LinkID,
			nullableString(event.Referrer),
			nullableString(event.UserAgent),
			event.VisitorHash,
			nullableString(event.CountryCode),
			event.ClickedAt,
		)
	}

	results := db.SendBatch(ctx, batch)

	inserted := make([]*model.ClickEvent, 0, len(events))
	for i := 0; i < len(events); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("batch insert event %d: %w", i, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, events[i])
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close insert batch: %w", err)
	}

	return inserted, nil
}

// upsertDailyStats merges per-day counters for the given events.
// Counts are additive, so concurrent workers never lose increments.
func upsertDailyStats(ctx context.Context, db batchSender, events []*model.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	type bucket struct {
		clicks   int64
		visitors map[string]bool
	}

	buckets := make(map[string]*bucket)
	type key struct {
		linkID string
		date   time.Time
	}
	keys := make(map[string]key)

	for _, event := range events {
		day := event.ClickedAt.UTC().Truncate(24 * time.Hour)
		k := fmt.Sprintf("%s:%s", event.LinkID, day.Format("2006-01-02"))
		b, ok := buckets[k]
		if !ok {
			b = &bucket{visitors: make(map[string]bool)}
			buckets[k] = b
			keys[k] = key{linkID: event.LinkID, date: day}
		}
		b.clicks++
		if event.VisitorHash != "" {
			b.visitors[event.VisitorHash] = true
		}
	}

	query := `
		INSERT INTO daily_link_stats (link_id, date, total_clicks, unique_visitors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (link_id, date) DO UPDATE
		SET total_clicks = daily_link_stats.total_clicks + EXCLUDED.total_clicks,
		    unique_visitors = daily_link_stats.unique_visitors + EXCLUDED.unique_visitors,
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for k, b := range buckets {
		batch.Queue(query, keys[k].linkID, keys[k].date, b.clicks, int64(len(b.visitors)))
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(buckets); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert daily stat: %w", err)
		}
	}

	return nil
}

// GetDailyStats returns per-day counters for a link within [from, to].
func (r *ClickEventRepository) GetDailyStats(ctx context.Context, linkID string, from, to time.Time) ([]*model.DailyLinkStats, error) {
	query := `
		SELECT link_id, date, total_clicks, unique_visitors, created_at, updated_at
		FROM daily_link_stats
		WHERE link_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.repo.pool.Query(ctx, query, linkID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyLinkStats
	for rows.Next() {
		var s model.DailyLinkStats
		if err := rows.Scan(&s.LinkID, &s.Date, &s.TotalClicks, &s.UniqueVisitors, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}

// GetStatsSummary aggregates totals for a link within [from, to].
func (r *ClickEventRepository) GetStatsSummary(ctx context.Context, linkID string, from, to time.Time) (*model.StatsSummary, error) {
	query := `
		SELECT COALESCE(SUM(total_clicks), 0), COALESCE(SUM(unique_visitors), 0)
		FROM daily_link_stats
		WHERE link_id = $1 AND date >= $2 AND date <= $3
	`

	summary := &model.StatsSummary{}
	err := r.repo.pool.QueryRow(ctx, query, linkID, from.UTC().Truncate(24*time.Hour), to.UTC().Truncate(24*time.Hour)).
		Scan(&summary.TotalClicks, &summary.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats summary: %w", err)
	}

	return summary, nil
}

// nullableString converts empty strings to nil for nullable columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
