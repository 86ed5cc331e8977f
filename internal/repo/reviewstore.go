// Package repo contains clients for the external review record source.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/cache"
	"github.com/nimb-ou/peer-review-system/internal/models"
)

// EventQuery filters a review event fetch. Zero times and an empty reviewee
// id leave the corresponding dimension unfiltered.
type EventQuery struct {
	Start      time.Time
	End        time.Time
	RevieweeID string
}

// ReviewStoreClient fetches review events from the review record service.
// Ordering of the response is not significant; the feature engineer sorts.
type ReviewStoreClient struct {
	baseURL    string
	eventsPath string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewReviewStoreClient constructs a client targeting the configured review
// store instance. cacheProvider may be nil to disable response caching.
func NewReviewStoreClient(baseURL, eventsPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *ReviewStoreClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReviewStoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		eventsPath: eventsPath,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
	}
}

// FetchEvents queries the review store. An empty result is a valid response,
// not an error; the caller decides whether absence is meaningful.
func (c *ReviewStoreClient) FetchEvents(ctx context.Context, q EventQuery) ([]models.ReviewEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("review store client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("review store base URL not configured")
	}

	key := c.cacheKey(q)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var events []models.ReviewEvent
		if err := json.Unmarshal(cached, &events); err == nil {
			return events, nil
		}
	}

	payload := map[string]any{}
	if !q.Start.IsZero() {
		payload["start"] = q.Start.Format(time.RFC3339)
	}
	if !q.End.IsZero() {
		payload["end"] = q.End.Format(time.RFC3339)
	}
	if q.RevieweeID != "" {
		payload["reviewee_id"] = q.RevieweeID
	}

	var response struct {
		Events []models.ReviewEvent `json:"events"`
	}
	if err := c.postJSON(ctx, c.eventsURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("review store events request failed: %w", err)
	}

	if c.cacheTTL > 0 && len(response.Events) > 0 {
		if data, err := json.Marshal(response.Events); err == nil {
			// Cache write failures degrade to uncached reads.
			_ = c.cache.Set(ctx, key, data, c.cacheTTL)
		}
	}
	return response.Events, nil
}

func (c *ReviewStoreClient) cacheKey(q EventQuery) string {
	return fmt.Sprintf("reviews:%s:%d:%d", q.RevieweeID, q.Start.Unix(), q.End.Unix())
}

func (c *ReviewStoreClient) eventsURL() string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(c.eventsPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *ReviewStoreClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("review store returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
