// Package hiker is a client for the HikerAPI social-media data gateway. It
// covers the three endpoints the collector needs: paginated account search,
// profile-by-id and recent clips. Payloads are decoded into loose maps since
// upstream response shapes differ between API generations; normalization to
// fixed schemas happens downstream.
package hiker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/reelscout/internal/errlog"
	"github.com/FranksOps/reelscout/internal/metrics"
	"github.com/FranksOps/reelscout/internal/normalize"
	"github.com/FranksOps/reelscout/pkg/httpclient"
	"github.com/FranksOps/reelscout/pkg/ratelimit"
)

// DefaultBaseURL is the production HikerAPI endpoint.
const DefaultBaseURL = "https://api.hikerapi.com"

// Config configures a Client.
type Config struct {
	// Token is the HikerAPI access key. Required.
	Token   string
	BaseURL string
	Timeout time.Duration
	// Limiter paces all API calls when set.
	Limiter *ratelimit.Limiter
	// ErrLog receives debug records for failed calls when set.
	ErrLog *errlog.Log
	Logger *slog.Logger
}

// Client calls HikerAPI. Search and fetch methods are best-effort: API-level
// error envelopes surface as empty results with a warning, not as errors.
type Client struct {
	baseURL string
	http    *httpclient.Client
	limiter *ratelimit.Limiter
	errLog  *errlog.Log
	logger  *slog.Logger
}

// New creates a HikerAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("hiker: token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		Headers: map[string]string{
			"x-access-key": cfg.Token,
			"Accept":       "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("hiker: create http client: %w", err)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    hc,
		limiter: cfg.Limiter,
		errLog:  cfg.ErrLog,
		logger:  cfg.Logger,
	}, nil
}

// SearchAccounts searches accounts by keyword, following pagination until
// maxAccounts candidates are collected or the API stops returning pages.
// Errors mid-walk end pagination; whatever was collected is returned. The
// result is deduplicated by account id and capped at maxAccounts.
func (c *Client) SearchAccounts(ctx context.Context, query string, maxAccounts int) ([]map[string]any, error) {
	var candidates []map[string]any
	pageToken := ""

	for len(candidates) < maxAccounts {
		params := url.Values{"query": {query}}
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		payload, err := c.getJSON(ctx, "search_accounts", "/v2/search/accounts", params)
		if err != nil {
			c.logger.Warn("account search failed", "query", query, "err", err)
			c.errLog.Record("search_accounts", err, map[string]any{"query": query})
			break
		}

		res, ok := payload.(map[string]any)
		if !ok {
			break
		}
		// The API can return an error payload instead of data
		if state, ok := res["state"].(bool); ok && !state {
			c.logger.Warn("account search returned API error", "query", query, "error", apiError(res))
			c.errLog.Record("search_accounts_state_false", nil, map[string]any{"query": query, "payload": res})
			break
		}

		users, _ := res["users"].([]any)
		for _, u := range users {
			if m, ok := u.(map[string]any); ok {
				candidates = append(candidates, m)
			}
		}

		// Pagination: different API versions use page_token or next_page_token
		pageToken = stringValue(res["page_token"])
		if pageToken == "" {
			pageToken = stringValue(res["next_page_token"])
		}
		hasMore, _ := res["has_more"].(bool)
		if !hasMore || pageToken == "" {
			break
		}
	}

	return dedupeByID(candidates, maxAccounts), nil
}

// UserByID fetches the full profile for an account id, unwrapping the common
// envelope shapes. Returns nil without error when the API reports an error
// state or the payload is unusable.
func (c *Client) UserByID(ctx context.Context, pk string) (map[string]any, error) {
	if pk == "" {
		return nil, nil
	}

	payload, err := c.getJSON(ctx, "user_by_id", "/v2/user/by/id", url.Values{"id": {pk}})
	if err != nil {
		c.logger.Warn("profile fetch failed", "pk", pk, "err", err)
		c.errLog.Record("user_by_id", err, map[string]any{"pk": pk})
		return nil, nil
	}

	profile, ok := payload.(map[string]any)
	if !ok {
		return nil, nil
	}
	if state, ok := profile["state"].(bool); ok && !state {
		// API-level error, e.g. insufficient funds or account not found
		c.errLog.Record("user_by_id_state_false", nil, map[string]any{"pk": pk, "payload": profile})
		return nil, nil
	}

	// Unwrap common shapes: {"user": {...}}, {"data": {...}}, or already flat
	if inner, ok := profile["user"].(map[string]any); ok {
		return inner, nil
	}
	if inner, ok := profile["data"].(map[string]any); ok {
		return inner, nil
	}
	return profile, nil
}

// UserClips fetches up to count recent clips for a user. Failures and
// non-list payloads yield empty results.
func (c *Client) UserClips(ctx context.Context, userID string, count int) ([]map[string]any, error) {
	params := url.Values{
		"user_id": {userID},
		"count":   {fmt.Sprintf("%d", count)},
	}

	payload, err := c.getJSON(ctx, "user_clips", "/v2/user/clips", params)
	if err != nil {
		c.logger.Warn("clips fetch failed", "user_id", userID, "err", err)
		c.errLog.Record("user_clips", err, map[string]any{"user_id": userID, "requested_count": count})
		return nil, nil
	}

	list, ok := payload.([]any)
	if !ok {
		return nil, nil
	}

	clips := make([]map[string]any, 0, count)
	for _, item := range list {
		if len(clips) >= count {
			break
		}
		if m, ok := item.(map[string]any); ok {
			clips = append(clips, m)
		}
	}
	metrics.ReelsFetchedTotal.Add(float64(len(clips)))
	return clips, nil
}

// getJSON performs one GET, paced by the limiter and recorded in metrics.
// Numbers are decoded as json.Number so large IDs survive.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values) (any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		metrics.RecordAPICall(endpoint, 0, err, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordAPICall(endpoint, resp.StatusCode, nil, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// dedupeByID keeps the first occurrence of each account id and caps the
// result at max. Entries without an id are dropped.
func dedupeByID(candidates []map[string]any, max int) []map[string]any {
	seen := make(map[string]struct{}, len(candidates))
	deduped := make([]map[string]any, 0, len(candidates))
	for _, u := range candidates {
		id := normalize.ID(u)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, u)
		if len(deduped) >= max {
			break
		}
	}
	return deduped
}

// apiError extracts the most specific error description from an error
// envelope.
func apiError(res map[string]any) string {
	if s := stringValue(res["error"]); s != "" {
		return s
	}
	if s := stringValue(res["exc_type"]); s != "" {
		return s
	}
	return "unknown API error"
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
