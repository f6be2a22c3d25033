// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// LinkStatus represents the computed status of a link.
type LinkStatus string

const (
	LinkStatusActive  LinkStatus = "active"
	LinkStatusDeleted LinkStatus = "deleted"
)

// Link represents a shortened URL entity.
// Code is immutable once assigned and never reused, even after deletion.
type Link struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	TargetURL  string     `json:"target_url"`
	OwnerID    string     `json:"owner_id"`
	ClickCount int64      `json:"click_count"`
	DeletedAt  *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Status computes the current status of the link.
func (l *Link) Status() LinkStatus {
	if l.DeletedAt != nil {
		return LinkStatusDeleted
	}
	return LinkStatusActive
}

// IsActive returns true if the link can be used for redirects.
func (l *Link) IsActive() bool {
	return l.DeletedAt == nil
}

// OwnedBy reports whether the given user may mutate this link.
// Admins may mutate any link.
func (l *Link) OwnedBy(userID, role string) bool {
	return l.OwnerID == userID || role == RoleAdmin
}

// CachedLink represents link data stored in Redis cache.
// Uses string types for Redis hash compatibility.
type CachedLink struct {
	TargetURL string `redis:"target_url"`
	OwnerID   string `redis:"owner_id"`
	DeletedAt string `redis:"deleted_at"` // Unix timestamp or empty
	UpdatedAt string `redis:"updated_at"` // Unix timestamp
}

// ToLink converts CachedLink to Link domain model.
func (c *CachedLink) ToLink(code string) *Link {
	link := &Link{
		Code:      code,
		TargetURL: c.TargetURL,
		OwnerID:   c.OwnerID,
	}

	if c.DeletedAt != "" {
		if ts, err := strconv.ParseInt(c.DeletedAt, 10, 64); err == nil {
			t := time.Unix(ts, 0)
			link.DeletedAt = &t
		}
	}

	if c.UpdatedAt != "" {
		if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
			link.UpdatedAt = time.Unix(ts, 0)
		}
	}

	return link
}

// ToCachedLink converts Link domain model to CachedLink.
func (l *Link) ToCachedLink() *CachedLink {
	cached := &CachedLink{
		TargetURL: l.TargetURL,
		OwnerID:   l.OwnerID,
		UpdatedAt: strconv.FormatInt(l.UpdatedAt.Unix(), 10),
	}

	if l.DeletedAt != nil {
		cached.DeletedAt = strconv.FormatInt(l.DeletedAt.Unix(), 10)
	}

	return cached
}
