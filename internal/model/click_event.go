// Package model defines domain entities for the application.
package model

import "time"

// ClickEvent represents a single click/redirect event.
type ClickEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	// Link reference
	Code    string `json:"code"`
	LinkID  string `json:"link_id"`
	OwnerID string `json:"owner_id,omitempty"` // Not persisted

	// Request metadata
	Referrer  string `json:"referrer,omitempty"`   // Referer header (truncated 500 chars)
	UserAgent string `json:"user_agent,omitempty"` // UA string (truncated 500 chars)

	// Privacy-safe visitor identification
	VisitorHash string `json:"visitor_hash"` // SHA256(IP + UA + daily_salt)[0:16]

	// Optional geo (from CF-IPCountry header)
	CountryCode string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2

	// Timestamps
	ClickedAt time.Time `json:"clicked_at"`
	CreatedAt time.Time `json:"created_at"` // DB insertion time
}

// DailyLinkStats represents pre-aggregated daily statistics for a link.
type DailyLinkStats struct {
	LinkID string    `json:"link_id"`
	Date   time.Time `json:"date"` // UTC date (time component zeroed)

	TotalClicks    int64 `json:"total_clicks"`
	UniqueVisitors int64 `json:"unique_visitors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatsSummary represents aggregated stats for a link over a period.
type StatsSummary struct {
	TotalClicks    int64 `json:"total_clicks"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// DailyBreakdown represents clicks for a single day.
type DailyBreakdown struct {
	Date           string `json:"date"` // ISO date
	TotalClicks    int64  `json:"total_clicks"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// LinkStatsResponse is the time series returned by the stats endpoint.
type LinkStatsResponse struct {
	Code   string `json:"code"`
	Period struct {
		From string `json:"from"` // ISO date
		To   string `json:"to"`   // ISO date
	} `json:"period"`
	Summary     StatsSummary     `json:"summary"`
	Daily       []DailyBreakdown `json:"daily"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// DashboardStats holds per-owner totals for the dashboard.
type DashboardStats struct {
	TotalLinks  int64 `json:"total_links"`
	TotalClicks int64 `json:"total_clicks"`
}
