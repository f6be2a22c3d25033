package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/linkcut/linkcut/internal/model"
)

func TestToLinkResponse(t *testing.T) {
	now := time.Now().UTC()
	link := &model.Link{
		ID:         "01HLINK",
		Code:       "abc1234",
		TargetURL:  "https://example.com/docs?ref=home",
		OwnerID:    "user-1",
		ClickCount: 42,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	resp := ToLinkResponse(link, "https://lnk.example")

	if resp.ShortURL != "https://lnk.example/abc1234" {
		t.Errorf("ShortURL = %q, want %q", resp.ShortURL, "https://lnk.example/abc1234")
	}
	if resp.LongURL != link.TargetURL {
		t.Errorf("LongURL = %q, want %q", resp.LongURL, link.TargetURL)
	}
	if resp.TargetURL != link.TargetURL {
		t.Errorf("TargetURL = %q, want %q", resp.TargetURL, link.TargetURL)
	}
	if resp.Status != "active" {
		t.Errorf("Status = %q, want %q", resp.Status, "active")
	}
	if resp.ClickCount != 42 {
		t.Errorf("ClickCount = %d, want 42", resp.ClickCount)
	}
}

func TestLinkResponse_CreateContractFields(t *testing.T) {
	link := &model.Link{
		ID:        "01HLINK",
		Code:      "abc1234",
		TargetURL: "https://example.com/page",
		OwnerID:   "user-1",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(ToLinkResponse(link, "https://lnk.example"))
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	// Clients of the create endpoint read back the pair of URLs.
	for _, key := range []string{"short_url", "long_url"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("response is missing %q", key)
		}
	}
}
