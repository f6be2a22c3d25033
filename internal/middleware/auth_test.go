package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkcut/linkcut/internal/auth"
	"github.com/linkcut/linkcut/internal/model"
)

func TestAuth_ValidToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(&model.User{ID: "user-1", Email: "u1@example.com", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var seen *model.Identity
	mw := Auth(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: issuer,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/links/my-links", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil {
		t.Fatal("identity not injected into context")
	}
	if seen.UserID != "user-1" || seen.Role != model.RoleUser {
		t.Errorf("identity = %+v", seen)
	}
}

func TestAuth_Rejections(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	expiredIssuer := auth.NewTokenIssuer("test-secret", -time.Minute)
	expired, err := expiredIssuer.Issue(&model.User{ID: "user-1", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	otherIssuer := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, err := otherIssuer.Issue(&model.User{ID: "user-1", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	mw := Auth(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: issuer,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on rejected auth")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing_header", ""},
		{"not_bearer", "Basic dXNlcjpwYXNz"},
		{"garbage_token", "Bearer not.a.jwt"},
		{"expired_token", "Bearer " + expired},
		{"wrong_secret", "Bearer " + forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/links/my-links", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
