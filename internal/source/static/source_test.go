package static

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storydesk/internal/domain"
)

func newSource(url string, attempts int) *Source {
	return New(Config{
		BaseURL:        url,
		Timeout:        time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSource_FetchStories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, IndexPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"stories": [
			{"title": "Jungle Ki Kahani", "slug": "jungle-ki-kahani", "category": "Folk Tales",
			 "description": "forest", "status": "Published", "date": "2024-01-15", "featured": true},
			{"id": "42", "title": "Raja Aur Garib", "slug": "raja-aur-garib", "views": 7},
			{"title": "no id, no slug"}
		]}`)
	}))
	defer srv.Close()

	stories, err := newSource(srv.URL+"/", 1).FetchStories(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 2)

	assert.Equal(t, "jungle-ki-kahani", stories[0].ID)
	assert.Equal(t, domain.StatusPublished, stories[0].Status)
	assert.Equal(t, "forest", stories[0].Excerpt)
	assert.True(t, stories[0].Featured)
	require.NotNil(t, stories[0].PublishDate)

	assert.Equal(t, "42", stories[1].ID)
	assert.Equal(t, domain.StatusDraft, stories[1].Status)
	assert.Equal(t, int64(7), stories[1].Views)
}

func TestSource_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"stories": [{"id": "a"}]}`)
	}))
	defer srv.Close()

	stories, err := newSource(srv.URL, 3).FetchStories(context.Background())
	require.NoError(t, err)
	assert.Len(t, stories, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSource_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newSource(srv.URL, 2).FetchStories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "unexpected status: 404")
	assert.Equal(t, int32(2), calls.Load())
}

func TestSource_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	_, err := newSource(srv.URL, 1).FetchStories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSource_CalculateBackoff(t *testing.T) {
	s := New(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
