package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/cache"
	"github.com/nimb-ou/peer-review-system/internal/models"
)

func jsonResponse(status int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func sampleEvents() []models.ReviewEvent {
	return []models.ReviewEvent{
		{
			ReviewerID: "r1",
			RevieweeID: "e1",
			Date:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Descriptor: models.DescriptorCollaborative,
			Score:      4,
			Comment:    "helpful in review",
		},
	}
}

func TestFetchEventsPostsQuery(t *testing.T) {
	var captured *http.Request
	var capturedBody map[string]any

	client := NewReviewStoreClient("http://store.local", "/api/v1/reviews/query", time.Second, nil, 0)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		if err := json.NewDecoder(req.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		return jsonResponse(http.StatusOK, map[string]any{"events": sampleEvents()}), nil
	})

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	events, err := client.FetchEvents(context.Background(), EventQuery{
		Start:      start,
		End:        end,
		RevieweeID: "e1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("method %s, want POST", captured.Method)
	}
	if captured.URL.Path != "/api/v1/reviews/query" {
		t.Fatalf("path %s", captured.URL.Path)
	}
	if ct := captured.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %s", ct)
	}
	if capturedBody["reviewee_id"] != "e1" {
		t.Fatalf("reviewee filter missing: %v", capturedBody)
	}
	if capturedBody["start"] != start.Format(time.RFC3339) {
		t.Fatalf("start %v", capturedBody["start"])
	}

	if len(events) != 1 || events[0].RevieweeID != "e1" {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestFetchEventsEmptyResultIsValid(t *testing.T) {
	client := NewReviewStoreClient("http://store.local", "/api/v1/reviews/query", time.Second, nil, 0)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"events": []models.ReviewEvent{}}), nil
	})

	events, err := client.FetchEvents(context.Background(), EventQuery{RevieweeID: "nobody"})
	if err != nil {
		t.Fatalf("empty result must not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestFetchEventsNonOKStatus(t *testing.T) {
	client := NewReviewStoreClient("http://store.local", "/api/v1/reviews/query", time.Second, nil, 0)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, map[string]any{"error": "upstream down"}), nil
	})

	if _, err := client.FetchEvents(context.Background(), EventQuery{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchEventsTransportError(t *testing.T) {
	client := NewReviewStoreClient("http://store.local", "/api/v1/reviews/query", time.Second, nil, 0)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	if _, err := client.FetchEvents(context.Background(), EventQuery{}); err == nil {
		t.Fatal("expected transport error to propagate")
	}
}

func TestFetchEventsUsesCache(t *testing.T) {
	calls := 0
	client := NewReviewStoreClient("http://store.local", "/api/v1/reviews/query",
		time.Second, cache.NewMemoryProvider(), time.Minute)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, map[string]any{"events": sampleEvents()}), nil
	})

	q := EventQuery{RevieweeID: "e1"}
	for i := 0; i < 3; i++ {
		events, err := client.FetchEvents(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected cached event, got %d", len(events))
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}

	// A different query must bypass the cached entry.
	if _, err := client.FetchEvents(context.Background(), EventQuery{RevieweeID: "e2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("distinct query served from the wrong cache key: calls=%d", calls)
	}
}

func TestFetchEventsMissingBaseURL(t *testing.T) {
	client := NewReviewStoreClient("", "/api/v1/reviews/query", time.Second, nil, 0)
	if _, err := client.FetchEvents(context.Background(), EventQuery{}); err == nil {
		t.Fatal("expected error for unconfigured base URL")
	}
}
