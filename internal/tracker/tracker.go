// Package tracker refreshes the local issue-tracker cache.
//
// Sync is strictly best-effort: a failing or unconfigured tracker skips the
// cycle with a warning and never blocks ingestion.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/joss/worklog/internal/domain"
)

// Fetcher retrieves issue details from the remote tracker.
type Fetcher interface {
	Fetch(ctx context.Context, issueKey string) (domain.IssueInfo, error)
}

// CacheWriter is the slice of the store the syncer needs.
type CacheWriter interface {
	UpsertIssueCache(ctx context.Context, infos []domain.IssueInfo) error
	LinkedIssueKeys(ctx context.Context) ([]string, error)
}

// HTTPFetcher fetches issues from an authenticated REST endpoint at
// GET {base}/issues/{key}.
type HTTPFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded-timeout client.
func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch retrieves one issue.
func (f *HTTPFetcher) Fetch(ctx context.Context, issueKey string) (domain.IssueInfo, error) {
	endpoint := fmt.Sprintf("%s/issues/%s", f.BaseURL, url.PathEscape(issueKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.IssueInfo{}, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return domain.IssueInfo{}, fmt.Errorf("tracker request for %s: %w", issueKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.IssueInfo{}, fmt.Errorf("tracker returned %d for %s", resp.StatusCode, issueKey)
	}

	var payload struct {
		Summary     string  `json:"summary"`
		Status      string  `json:"status"`
		StoryPoints float64 `json:"storyPoints"`
		Sprint      string  `json:"sprint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.IssueInfo{}, fmt.Errorf("decoding tracker response for %s: %w", issueKey, err)
	}

	return domain.IssueInfo{
		IssueKey:    issueKey,
		Summary:     payload.Summary,
		Status:      payload.Status,
		StoryPoints: payload.StoryPoints,
		Sprint:      payload.Sprint,
		SyncedAt:    time.Now().UTC(),
	}, nil
}

// Syncer refreshes cache rows for every issue key seen in session links.
type Syncer struct {
	fetcher Fetcher
	cache   CacheWriter
	log     zerolog.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(fetcher Fetcher, cache CacheWriter, log zerolog.Logger) *Syncer {
	return &Syncer{fetcher: fetcher, cache: cache, log: log}
}

// Sync fetches every linked issue key and upserts the cache. Per-key fetch
// failures are logged and skipped; only a cache write error is returned.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	keys, err := s.cache.LinkedIssueKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing linked issues: %w", err)
	}

	var infos []domain.IssueInfo
	for _, key := range keys {
		info, err := s.fetcher.Fetch(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("issue", key).Msg("tracker fetch failed, skipping")
			continue
		}
		infos = append(infos, info)
	}
	if len(infos) == 0 {
		return 0, nil
	}

	if err := s.cache.UpsertIssueCache(ctx, infos); err != nil {
		return 0, fmt.Errorf("writing issue cache: %w", err)
	}
	return len(infos), nil
}
