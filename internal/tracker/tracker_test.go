package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/logging"
)

type fakeCache struct {
	keys     []string
	upserted []domain.IssueInfo
	writeErr error
}

func (f *fakeCache) UpsertIssueCache(_ context.Context, infos []domain.IssueInfo) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.upserted = append(f.upserted, infos...)
	return nil
}

func (f *fakeCache) LinkedIssueKeys(context.Context) ([]string, error) {
	return f.keys, nil
}

func TestHTTPFetcher(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"summary":"fix widget","status":"In Progress","storyPoints":5,"sprint":"s9"}`)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "secret")
	info, err := f.Fetch(context.Background(), "PROJ-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/issues/PROJ-1", gotPath)
	assert.Equal(t, "PROJ-1", info.IssueKey)
	assert.Equal(t, "fix widget", info.Summary)
	assert.Equal(t, "In Progress", info.Status)
	assert.Equal(t, 5.0, info.StoryPoints)
	assert.False(t, info.SyncedAt.IsZero())
}

func TestHTTPFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "")
	_, err := f.Fetch(context.Background(), "PROJ-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSyncUpsertsAllLinkedKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"summary":"ok","status":"Done"}`)
	}))
	defer srv.Close()

	cache := &fakeCache{keys: []string{"AB-1", "CD-2"}}
	s := NewSyncer(NewHTTPFetcher(srv.URL, ""), cache, logging.Nop())

	n, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, cache.upserted, 2)
	assert.Equal(t, "AB-1", cache.upserted[0].IssueKey)
}

func TestSyncSkipsFailedFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/issues/BAD-1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"summary":"ok"}`)
	}))
	defer srv.Close()

	cache := &fakeCache{keys: []string{"BAD-1", "OK-2"}}
	s := NewSyncer(NewHTTPFetcher(srv.URL, ""), cache, logging.Nop())

	n, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, cache.upserted, 1)
	assert.Equal(t, "OK-2", cache.upserted[0].IssueKey)
}

func TestSyncNoLinkedKeys(t *testing.T) {
	cache := &fakeCache{}
	s := NewSyncer(nil, cache, logging.Nop())

	n, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, cache.upserted)
}

func TestSyncCacheWriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"summary":"ok"}`)
	}))
	defer srv.Close()

	cache := &fakeCache{keys: []string{"AB-1"}, writeErr: fmt.Errorf("disk full")}
	s := NewSyncer(NewHTTPFetcher(srv.URL, ""), cache, logging.Nop())

	_, err := s.Sync(context.Background())
	assert.Error(t, err)
}
