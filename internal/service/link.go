// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkcut/linkcut/internal/cache"
	"github.com/linkcut/linkcut/internal/metrics"
	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/quota"
	"github.com/linkcut/linkcut/internal/repository"
	"github.com/linkcut/linkcut/internal/shortcode"
)

// Service errors.
var (
	ErrInvalidTarget      = errors.New("invalid target URL")
	ErrURLTooLong         = errors.New("target URL too long")
	ErrLinkNotFound       = errors.New("link not found")
	ErrForbidden          = errors.New("not the link owner")
	ErrQuotaExceeded      = errors.New("link creation quota exceeded")
	ErrSubscriptionLapsed = errors.New("subscription has lapsed")
	ErrCapacityExhausted  = errors.New("could not allocate a unique code")
	ErrUnavailable        = errors.New("resolver temporarily unavailable")
)

const (
	maxTargetLength = 2048
	defaultPageSize = 20
	maxPageSize     = 100
)

// LinkStore is the persistence interface the service depends on.
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID, cursor string, limit int) ([]*model.Link, string, error)
	ListAllLinks(ctx context.Context, cursor string, limit int) ([]*model.Link, string, error)
	UpdateLinkTarget(ctx context.Context, code, targetURL string) error
	DeleteLink(ctx context.Context, code string) error
}

// LinkCache is the read-through cache interface for the redirect path.
type LinkCache interface {
	GetLink(ctx context.Context, code string) (*model.CachedLink, error)
	SetLink(ctx context.Context, code string, link *model.Link) error
	DeleteLink(ctx context.Context, code string) error
	IsNegativelyCached(ctx context.Context, code string) (bool, error)
	SetNegativeCache(ctx context.Context, code string) error
}

// QuotaEnforcer gates link creation by plan ceiling.
type QuotaEnforcer interface {
	CheckAndReserve(ctx context.Context, ownerID string) (*quota.Decision, error)
	Release(ctx context.Context, ownerID, periodKey string) error
}

// LinkService handles link business logic.
type LinkService struct {
	store          LinkStore
	cache          LinkCache
	quota          QuotaEnforcer
	generator      *shortcode.Generator
	baseURL        string
	resolveTimeout time.Duration
	maxRetries     int
	metrics        metrics.Recorder
}

// NewLinkService creates a new LinkService.
func NewLinkService(
	store LinkStore,
	linkCache LinkCache,
	enforcer QuotaEnforcer,
	generator *shortcode.Generator,
	baseURL string,
	resolveTimeout time.Duration,
	maxRetries int,
	recorder metrics.Recorder,
) *LinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &LinkService{
		store:          store,
		cache:          linkCache,
		quota:          enforcer,
		generator:      generator,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		resolveTimeout: resolveTimeout,
		maxRetries:     maxRetries,
		metrics:        recorder,
	}
}

// CreateLink creates a new short link for the owner. Codes are always
// server-generated; callers cannot pick their own.
func (s *LinkService) CreateLink(ctx context.Context, ownerID, targetURL string) (*model.Link, error) {
	if err := s.validateTarget(targetURL); err != nil {
		return nil, err
	}

	// Reserve a quota slot before generating anything. The slot is
	// handed back if the creation fails for unrelated reasons.
	decision, err := s.quota.CheckAndReserve(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !decision.Allowed {
		s.metrics.IncQuotaDenied()
		if decision.Reason == quota.ReasonSubscriptionLapsed {
			return nil, ErrSubscriptionLapsed
		}
		return nil, ErrQuotaExceeded
	}

	link, err := s.insertWithFreshCode(ctx, ownerID, targetURL)
	if err != nil {
		if relErr := s.quota.Release(ctx, ownerID, decision.PeriodKey); relErr != nil {
			// The slot leaks until the period rolls; nothing else to do.
			_ = relErr
		}
		return nil, err
	}

	s.metrics.IncLinkCreated()
	return link, nil
}

// insertWithFreshCode generates codes until one inserts cleanly.
// The unique index is the only collision check; generate-then-insert is
// atomic per attempt, so two racing requests can never share a code.
func (s *LinkService) insertWithFreshCode(ctx context.Context, ownerID, targetURL string) (*model.Link, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		now := time.Now().UTC()
		link := &model.Link{
			ID:        ulid.Make().String(),
			Code:      code,
			TargetURL: targetURL,
			OwnerID:   ownerID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.store.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, repository.ErrCodeExists) {
			continue
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	return nil, ErrCapacityExhausted
}

// GetLink retrieves a link by code for its owner. Admins may read any
// link.
func (s *LinkService) GetLink(ctx context.Context, identity *model.Identity, code string) (*model.Link, error) {
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if !link.OwnedBy(identity.UserID, identity.Role) {
		return nil, ErrForbidden
	}

	return link, nil
}

// ListLinksOutput defines output for listing links.
type ListLinksOutput struct {
	Links      []*model.Link
	NextCursor string
	HasMore    bool
}

// ListLinks retrieves a paginated list of the owner's links.
func (s *LinkService) ListLinks(ctx context.Context, ownerID, cursor string, limit int) (*ListLinksOutput, error) {
	limit = clampLimit(limit)

	links, nextCursor, err := s.store.ListLinksByOwner(ctx, ownerID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListLinksOutput{
		Links:      links,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// ListAllLinks retrieves a paginated list across all owners. Admin only;
// the handler enforces the role.
func (s *LinkService) ListAllLinks(ctx context.Context, cursor string, limit int) (*ListLinksOutput, error) {
	limit = clampLimit(limit)

	links, nextCursor, err := s.store.ListAllLinks(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListLinksOutput{
		Links:      links,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// UpdateLink changes a link's target URL. The code itself is immutable.
// Cache invalidation brackets the write: the pre-write delete aborts
// the mutation if the cache is unreachable, and the post-write delete
// evicts any stale entry a concurrent resolve backfilled in between.
func (s *LinkService) UpdateLink(ctx context.Context, identity *model.Identity, code, targetURL string) (*model.Link, error) {
	if err := s.validateTarget(targetURL); err != nil {
		return nil, err
	}

	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if !link.OwnedBy(identity.UserID, identity.Role) {
		return nil, ErrForbidden
	}

	if err := s.cache.DeleteLink(ctx, code); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	if err := s.store.UpdateLinkTarget(ctx, code, targetURL); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	// A resolve racing the write can re-cache the old target between the
	// first delete and the update. Evict again now that the row carries
	// the new target; best effort, the first delete already proved the
	// cache reachable.
	if err := s.cache.DeleteLink(ctx, code); err != nil {
		_ = err
	}

	s.metrics.IncLinkUpdated()

	link.TargetURL = targetURL
	link.UpdatedAt = time.Now().UTC()
	return link, nil
}

// DeleteLink soft-deletes a link. The code is retired permanently and
// never reassigned.
func (s *LinkService) DeleteLink(ctx context.Context, identity *model.Identity, code string) error {
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	if !link.OwnedBy(identity.UserID, identity.Role) {
		return ErrForbidden
	}

	if err := s.cache.DeleteLink(ctx, code); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}

	if err := s.store.DeleteLink(ctx, code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	// Evict anything a concurrent resolve backfilled during the write.
	if err := s.cache.DeleteLink(ctx, code); err != nil {
		_ = err
	}

	s.metrics.IncLinkDeleted()
	return nil
}

// ResolveRedirect resolves a code to its target for redirect.
// This is the hot path - cache first, bounded by the resolve timeout.
// Unknown and deleted codes both surface as ErrLinkNotFound; backend
// trouble surfaces as ErrUnavailable so the caller fails closed
// instead of guessing a target.
func (s *LinkService) ResolveRedirect(ctx context.Context, code string) (*model.Link, bool, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	if s.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.resolveTimeout)
		defer cancel()
	}

	link, cacheHit, err := s.resolve(ctx, code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, cacheHit, ErrUnavailable
		}
		return nil, cacheHit, err
	}
	return link, cacheHit, nil
}

func (s *LinkService) resolve(ctx context.Context, code string) (*model.Link, bool, error) {
	if !s.generator.Valid(code) {
		return nil, false, ErrLinkNotFound
	}

	// Step 1: Try cache
	cached, err := s.cache.GetLink(ctx, code)
	if err == nil {
		s.metrics.IncRedirectCacheHit()
		link := cached.ToLink(code)
		if !link.IsActive() {
			return nil, true, ErrLinkNotFound
		}
		return link, true, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Redis trouble. The store of record can still answer.
		s.metrics.IncRedirectCacheMiss()
	} else {
		s.metrics.IncRedirectCacheMiss()

		// Step 2: Check negative cache
		isNegative, negErr := s.cache.IsNegativelyCached(ctx, code)
		if negErr == nil && isNegative {
			return nil, false, ErrLinkNotFound
		}
	}

	// Step 3: DB lookup
	link, err := s.store.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			_ = s.cache.SetNegativeCache(ctx, code)
			return nil, false, ErrLinkNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, false, ErrUnavailable
	}

	// Step 4: Backfill cache, best effort
	_ = s.cache.SetLink(ctx, code, link)

	return link, false, nil
}

// BaseURL returns the configured public base URL.
func (s *LinkService) BaseURL() string {
	return s.baseURL
}

// ShortURL renders the public short URL for a code.
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

// validateTarget validates a target URL.
func (s *LinkService) validateTarget(target string) error {
	if target == "" {
		return ErrInvalidTarget
	}

	if len(target) > maxTargetLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return ErrInvalidTarget
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidTarget
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidTarget
	}

	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return defaultPageSize
	}
	return limit
}
