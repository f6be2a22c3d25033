// Package analytics provides click event capture and processing.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkcut/linkcut/internal/metrics"
)

const (
	// StreamKey is the Redis stream for click events.
	StreamKey = "stream:click_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:click_events:dlq"

	// DefaultMaxStreamLen is the default backlog ceiling.
	DefaultMaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// ErrBacklogFull is returned when the stream is at its ceiling and the
// event was dropped.
var ErrBacklogFull = errors.New("click stream backlog full")

// ClickEventPayload is the compressed event format for Redis stream.
type ClickEventPayload struct {
	Code        string `json:"c"`            // short code
	LinkID      string `json:"lid"`          // link_id
	Referrer    string `json:"r,omitempty"`  // referrer (truncated)
	UserAgent   string `json:"ua,omitempty"` // user_agent (truncated)
	VisitorHash string `json:"vh"`           // visitor_hash
	CountryCode string `json:"cc,omitempty"` // country_code
	ClickedAt   int64  `json:"t"`            // Unix milliseconds
}

// boundedAddScript appends to the stream only while it is under the
// ceiling. Length check and add are atomic, so a burst cannot overshoot.
// Returns empty string when the event was dropped.
var boundedAddScript = redis.NewScript(`
	if tonumber(redis.call('XLEN', KEYS[1])) >= tonumber(ARGV[1]) then
		return ''
	end
	return redis.call('XADD', KEYS[1], '*', 'payload', ARGV[2])
`)

// Publisher enqueues click events to Redis stream.
type Publisher struct {
	redis     *redis.Client
	logger    *slog.Logger
	metrics   metrics.Recorder
	maxStream int64
}

// NewPublisher creates a new click event publisher. maxStreamLen bounds
// the backlog; events past it are dropped, never blocking redirects.
func NewPublisher(client *redis.Client, maxStreamLen int64, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if maxStreamLen <= 0 {
		maxStreamLen = DefaultMaxStreamLen
	}
	return &Publisher{
		redis:     client,
		logger:    logger.With("component", "analytics.publisher"),
		metrics:   recorder,
		maxStream: maxStreamLen,
	}
}

// Publish adds a click event to the stream synchronously.
// Returns ErrBacklogFull if the stream is at its ceiling.
func (p *Publisher) Publish(ctx context.Context, event ClickEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := boundedAddScript.Run(ctx, p.redis,
		[]string{StreamKey},
		p.maxStream, string(data),
	).Text()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	if result == "" {
		return "", ErrBacklogFull
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event ClickEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			if errors.Is(err, ErrBacklogFull) {
				p.logger.Warn("click event dropped, backlog full",
					"code", event.Code,
				)
				p.metrics.IncClickEventDropped()
				return
			}
			p.logger.Warn("failed to publish click event",
				"code", event.Code,
				"error", err,
			)
			p.metrics.IncClickEventPublished("error")
			return
		}

		p.logger.Debug("click event published",
			"code", event.Code,
			"stream_id", streamID,
		)
		p.metrics.IncClickEventPublished("success")
	}()
}

// GenerateVisitorHash creates a privacy-safe visitor identifier.
// Uses SHA256(IP + UserAgent + daily_salt) truncated to 16 hex chars.
func GenerateVisitorHash(ip, userAgent string, clickedAt time.Time) string {
	// Daily salt rotates at midnight UTC
	dailySalt := fmt.Sprintf("linkcut:%s", clickedAt.UTC().Format("2006-01-02"))

	data := ip + userAgent + dailySalt
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

// SanitizeReferrer cleans and truncates the referrer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferrer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// Keep only scheme + host + path; strip query params and fragments
	parsed.RawQuery = ""
	parsed.Fragment = ""

	sanitized := parsed.String()
	if len(sanitized) > 500 {
		return sanitized[:500]
	}
	return sanitized
}

// TruncateUserAgent truncates user agent to max 500 chars.
func TruncateUserAgent(ua string) string {
	if len(ua) > 500 {
		return ua[:500]
	}
	return ua
}

// ExtractCountryCode extracts country code from Cloudflare header.
// Returns empty string if header is missing or invalid.
func ExtractCountryCode(cfIPCountry string) string {
	if cfIPCountry != "" && len(cfIPCountry) == 2 {
		return strings.ToUpper(cfIPCountry)
	}
	return ""
}

// ExtractReferrerDomain extracts the domain from a referrer URL.
// Returns "(direct)" for empty referrer.
func ExtractReferrerDomain(ref string) string {
	if ref == "" {
		return "(direct)"
	}

	parsed, err := url.Parse(ref)
	if err != nil || parsed.Host == "" {
		return "(unknown)"
	}

	return parsed.Host
}
