//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/linkcut/linkcut/internal/testutil"
)

// ============================================================================
// Link Repository Integration Tests
// ============================================================================

func TestIntegrationLinkRepository_CreateAndGetByCode(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	code := testutil.UniqueCode("crt")
	link := testutil.NewTestLink(t, code)

	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByCode(ctx, code)
	if err != nil {
		t.Fatalf("GetLinkByCode failed: %v", err)
	}

	if retrieved.Code != code {
		t.Errorf("Code mismatch: got %q, want %q", retrieved.Code, code)
	}
	if retrieved.TargetURL != link.TargetURL {
		t.Errorf("TargetURL mismatch: got %q, want %q", retrieved.TargetURL, link.TargetURL)
	}
	if retrieved.OwnerID != link.OwnerID {
		t.Errorf("OwnerID mismatch: got %q, want %q", retrieved.OwnerID, link.OwnerID)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationLinkRepository_CreateLink_DuplicateCode(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	code := testutil.UniqueCode("dup")
	link1 := testutil.NewTestLink(t, code)
	link2 := testutil.NewTestLink(t, code)
	link2.ID = testutil.UniqueID("link") // Different ID, same code

	if err := repo.CreateLink(ctx, link1); err != nil {
		t.Fatalf("CreateLink (first) failed: %v", err)
	}

	err := repo.CreateLink(ctx, link2)
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("Expected ErrCodeExists, got: %v", err)
	}
}

func TestIntegrationLinkRepository_GetByCode_NotFound(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	_, err := repo.GetLinkByCode(ctx, "nosuchcode")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationLinkRepository_UpdateLinkTarget(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	code := testutil.UniqueCode("upd")
	link := testutil.NewTestLink(t, code)
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	newTarget := "https://example.org/moved"
	if err := repo.UpdateLinkTarget(ctx, code, newTarget); err != nil {
		t.Fatalf("UpdateLinkTarget failed: %v", err)
	}

	retrieved, err := repo.GetLinkByCode(ctx, code)
	if err != nil {
		t.Fatalf("GetLinkByCode failed: %v", err)
	}
	if retrieved.TargetURL != newTarget {
		t.Errorf("TargetURL not updated: got %q, want %q", retrieved.TargetURL, newTarget)
	}
}

func TestIntegrationLinkRepository_UpdateLinkTarget_NotFound(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	err := repo.UpdateLinkTarget(ctx, "missing", "https://example.org")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationLinkRepository_DeleteLink_SoftDelete(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	code := testutil.UniqueCode("del")
	link := testutil.NewTestLink(t, code)
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if err := repo.DeleteLink(ctx, code); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}

	if _, err := repo.GetLinkByCode(ctx, code); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("deleted link should not resolve, got: %v", err)
	}

	// The row survives for audit, so the code stays retired forever.
	fresh := testutil.NewTestLink(t, code)
	fresh.ID = testutil.UniqueID("link")
	if err := repo.CreateLink(ctx, fresh); !errors.Is(err, ErrCodeExists) {
		t.Errorf("retired code should not be reusable, got: %v", err)
	}
}

func TestIntegrationLinkRepository_ListLinksByOwner_Pagination(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	ownerID := testutil.UniqueID("owner")
	const total = 5
	for i := 0; i < total; i++ {
		link := testutil.NewTestLink(t, testutil.UniqueCode("pg"))
		link.ID = testutil.UniqueID("link")
		link.OwnerID = ownerID
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink %d failed: %v", i, err)
		}
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		links, next, err := repo.ListLinksByOwner(ctx, ownerID, cursor, 2)
		if err != nil {
			t.Fatalf("ListLinksByOwner failed: %v", err)
		}
		for _, l := range links {
			if seen[l.Code] {
				t.Errorf("code %q returned twice", l.Code)
			}
			seen[l.Code] = true
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
		if pages > total {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != total {
		t.Errorf("expected %d links across pages, got %d", total, len(seen))
	}
}

func TestIntegrationLinkRepository_ListLinksByOwner_InvalidCursor(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	_, _, err := repo.ListLinksByOwner(ctx, "owner", "!!!not-a-cursor!!!", 10)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("Expected ErrInvalidCursor, got: %v", err)
	}
}

func TestIntegrationLinkRepository_IncrementClickCounts(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	code := testutil.UniqueCode("clk")
	link := testutil.NewTestLink(t, code)
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if err := repo.IncrementClickCounts(ctx, map[string]int64{code: 3}); err != nil {
		t.Fatalf("IncrementClickCounts failed: %v", err)
	}
	if err := repo.IncrementClickCounts(ctx, map[string]int64{code: 4}); err != nil {
		t.Fatalf("IncrementClickCounts (second) failed: %v", err)
	}

	retrieved, err := repo.GetLinkByCode(ctx, code)
	if err != nil {
		t.Fatalf("GetLinkByCode failed: %v", err)
	}
	if retrieved.ClickCount != 7 {
		t.Errorf("ClickCount mismatch: got %d, want 7", retrieved.ClickCount)
	}
}

func TestIntegrationLinkRepository_OwnerTotals(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	ownerID := testutil.UniqueID("owner")
	codes := []string{testutil.UniqueCode("ta"), testutil.UniqueCode("tb")}
	for _, code := range codes {
		link := testutil.NewTestLink(t, code)
		link.ID = testutil.UniqueID("link")
		link.OwnerID = ownerID
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
	}
	if err := repo.IncrementClickCounts(ctx, map[string]int64{codes[0]: 5, codes[1]: 2}); err != nil {
		t.Fatalf("IncrementClickCounts failed: %v", err)
	}

	stats, err := repo.OwnerTotals(ctx, ownerID)
	if err != nil {
		t.Fatalf("OwnerTotals failed: %v", err)
	}
	if stats.TotalLinks != 2 {
		t.Errorf("TotalLinks mismatch: got %d, want 2", stats.TotalLinks)
	}
	if stats.TotalClicks != 7 {
		t.Errorf("TotalClicks mismatch: got %d, want 7", stats.TotalClicks)
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newLinkTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetLinksSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset links schema: %v", err)
	}

	return ctx, repo
}
