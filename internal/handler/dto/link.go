// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/linkcut/linkcut/internal/model"
)

// ShortenRequest represents the request body for creating a link.
type ShortenRequest struct {
	TargetURL string `json:"target_url"`
}

// UpdateLinkRequest represents the request body for updating a link.
// Only the target URL is mutable; the code is fixed for life.
type UpdateLinkRequest struct {
	TargetURL string `json:"target_url"`
}

// LinkResponse represents a link in API responses. long_url carries the
// destination alongside target_url; clients pair it with short_url when
// reading back a freshly shortened URL.
type LinkResponse struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	ShortURL   string    `json:"short_url"`
	LongURL    string    `json:"long_url"`
	TargetURL  string    `json:"target_url"`
	Status     string    `json:"status"`
	ClickCount int64     `json:"click_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LinkListResponse represents a paginated list of links.
type LinkListResponse struct {
	Data       []LinkResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToLinkResponse converts a Link model to LinkResponse DTO.
func ToLinkResponse(link *model.Link, baseURL string) *LinkResponse {
	return &LinkResponse{
		ID:         link.ID,
		Code:       link.Code,
		ShortURL:   baseURL + "/" + link.Code,
		LongURL:    link.TargetURL,
		TargetURL:  link.TargetURL,
		Status:     string(link.Status()),
		ClickCount: link.ClickCount,
		CreatedAt:  link.CreatedAt,
		UpdatedAt:  link.UpdatedAt,
	}
}

// ToLinkListResponse converts a slice of Link models to LinkListResponse.
func ToLinkListResponse(links []*model.Link, baseURL string, nextCursor string, hasMore bool) *LinkListResponse {
	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = *ToLinkResponse(link, baseURL)
	}
	return &LinkListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
