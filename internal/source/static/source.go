package static

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storydesk/internal/domain"
)

const (
	SourceID  = "static"
	IndexPath = "/content/stories/index.json"
)

// Config holds static index source configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source reads the static story index used when the store is unreachable.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new static index source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// FetchStories returns every story in the index. Documents without an id use
// their slug as id.
func (s *Source) FetchStories(ctx context.Context) ([]domain.Story, error) {
	url := s.baseURL + IndexPath

	var resp *IndexResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			break
		}

		if attempt == s.maxAttempts {
			return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	stories := make([]domain.Story, 0, len(resp.Stories))
	for _, doc := range resp.Stories {
		story := domain.Ingest("", doc)
		if story.ID == "" {
			story.ID = story.Slug
		}
		if story.ID == "" {
			s.logger.Warn("skipping story without id or slug", "title", story.Title)
			continue
		}
		stories = append(stories, story)
	}

	s.logger.Debug("fetched static index", "stories", len(stories))

	return stories, nil
}

func (s *Source) doRequest(ctx context.Context, url string) (*IndexResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "StoryDesk/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var index IndexResponse
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &index, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
