package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkcut/linkcut/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrCodeExists    = errors.New("short code already exists")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLink inserts a new link. The unique index on code covers
// soft-deleted rows too, so retired codes can never be reassigned.
// Duplicate writes fail with ErrCodeExists (atomic check-and-set).
func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `
		INSERT INTO links (id, code, target_url, owner_id, click_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.Code,
		link.TargetURL,
		link.OwnerID,
		link.ClickCount,
		link.CreatedAt,
		link.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByCode retrieves a live link by its short code.
// This is the hot path for redirects.
func (r *Repository) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `
		SELECT id, code, target_url, owner_id, click_count, deleted_at, created_at, updated_at
		FROM links
		WHERE code = $1 AND deleted_at IS NULL
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by code: %w", err)
	}

	return link, nil
}

// ListLinksByOwner retrieves a cursor-paginated list of an owner's links,
// newest first.
func (r *Repository) ListLinksByOwner(ctx context.Context, ownerID, cursor string, limit int) ([]*model.Link, string, error) {
	builder := r.sb.
		Select("id", "code", "target_url", "owner_id", "click_count", "deleted_at", "created_at", "updated_at").
		From("links").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where("deleted_at IS NULL")

	return r.listLinks(ctx, builder, cursor, limit)
}

// ListAllLinks retrieves a cursor-paginated list across all owners.
// Admin surface only.
func (r *Repository) ListAllLinks(ctx context.Context, cursor string, limit int) ([]*model.Link, string, error) {
	builder := r.sb.
		Select("id", "code", "target_url", "owner_id", "click_count", "deleted_at", "created_at", "updated_at").
		From("links").
		Where("deleted_at IS NULL")

	return r.listLinks(ctx, builder, cursor, limit)
}

func (r *Repository) listLinks(ctx context.Context, builder squirrel.SelectBuilder, cursor string, limit int) ([]*model.Link, string, error) {
	if cursor != "" {
		cursorData, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		builder = builder.Where(squirrel.Expr("(created_at, id) < (?, ?)", cursorData.CreatedAt, cursorData.ID))
	}

	// Fetch one extra row to determine hasMore.
	query, args, err := builder.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit + 1)).
		ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating links: %w", err)
	}

	var nextCursor string
	if len(links) > limit {
		links = links[:limit]
		lastLink := links[len(links)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        lastLink.ID,
			CreatedAt: lastLink.CreatedAt,
		})
	}

	return links, nextCursor, nil
}

// UpdateLinkTarget updates a link's target URL. The only user-mutable
// field on a link is its destination.
func (r *Repository) UpdateLinkTarget(ctx context.Context, code, targetURL string) error {
	query := `
		UPDATE links
		SET target_url = $2, updated_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, code, targetURL)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// DeleteLink performs a soft delete on a link. The row is kept so the
// code stays claimed forever.
func (r *Repository) DeleteLink(ctx context.Context, code string) error {
	query := `
		UPDATE links
		SET deleted_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// batchSender is the common SendBatch surface of *pgxpool.Pool and
// pgx.Tx, so batched writes can run standalone or inside a transaction.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// IncrementClickCounts applies accumulated click deltas per code.
// The update is a commutative atomic add, called only by click
// accounting, never from request handlers.
func (r *Repository) IncrementClickCounts(ctx context.Context, deltas map[string]int64) error {
	return incrementClickCounts(ctx, r.pool, deltas)
}

func incrementClickCounts(ctx context.Context, db batchSender, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		UPDATE links
		SET click_count = click_count + $2
		WHERE code = $1
	`
	for code, n := range deltas {
		batch.Queue(query, code, n)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(deltas); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("increment click counts: %w", err)
		}
	}

	return nil
}

// CountLinksCreatedSince counts an owner's links created at or after
// the given instant. Soft-deleted rows count too: quota measures
// creations, and deleting a link does not refund its slot.
func (r *Repository) CountLinksCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM links
		WHERE owner_id = $1 AND created_at >= $2
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, ownerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count links created since: %w", err)
	}

	return count, nil
}

// OwnerTotals returns aggregate link and click counts for the dashboard.
func (r *Repository) OwnerTotals(ctx context.Context, ownerID string) (*model.DashboardStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(click_count), 0)
		FROM links
		WHERE owner_id = $1 AND deleted_at IS NULL
	`

	stats := &model.DashboardStats{}
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(&stats.TotalLinks, &stats.TotalClicks)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate owner totals: %w", err)
	}

	return stats, nil
}

// scanLink scans a single row into a Link model.
func scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	err := row.Scan(
		&link.ID,
		&link.Code,
		&link.TargetURL,
		&link.OwnerID,
		&link.ClickCount,
		&link.DeletedAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	return &link, err
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}
