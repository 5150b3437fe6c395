package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storydesk/internal/collection"
	"storydesk/internal/config"
	"storydesk/internal/domain"
)

var publicSort = domain.Sort{Field: domain.SortPublishDate, Direction: domain.Desc}

// PublicService backs the reader-facing listing: published stories only,
// newest first, shown a page at a time with "load more".
type PublicService struct {
	store    StoryStore
	fallback FallbackSource
	logger   *slog.Logger
	config   config.PublicConfig

	mu    sync.Mutex
	view  *collection.View
	shown int
}

func NewPublicService(store StoryStore, fallback FallbackSource, logger *slog.Logger, cfg config.PublicConfig) *PublicService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = collection.DefaultPageSize
	}
	return &PublicService{
		store:    store,
		fallback: fallback,
		logger:   logger.With("component", "public"),
		config:   cfg,
		view: collection.NewView(collection.Options{
			PageSize:     cfg.PageSize,
			Sort:         publicSort,
			SearchFields: collection.PublicSearch,
		}),
		shown: 1,
	}
}

// Load fetches published stories, falling back to the static index when the
// store cannot be read.
func (p *PublicService) Load(ctx context.Context) error {
	p.mu.Lock()
	p.view.BeginLoad()
	p.mu.Unlock()

	stories, err := p.store.FetchPublished(ctx, publicSort, p.config.LatestLimit)
	if err != nil && p.fallback != nil {
		p.logger.Warn("store unavailable, using static index", "error", err)
		var fbErr error
		stories, fbErr = p.fallback.FetchStories(ctx)
		if fbErr == nil {
			stories = publishedOnly(stories)
			err = nil
		} else {
			err = errors.Join(err, fbErr)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.view.Fail(err)
		return fmt.Errorf("%w: fetch published stories: %w", domain.ErrLoad, err)
	}

	p.view.Load(stories)
	p.shown = 1
	p.logger.Info("published stories loaded", "count", len(stories))

	return nil
}

// Featured is the first featured story among everything loaded, regardless of
// the active search.
func (p *PublicService) Featured() (domain.Story, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.view.All() {
		if s.Featured {
			return s, true
		}
	}
	return domain.Story{}, false
}

// Search matches title, excerpt and category. An empty term shows everything.
func (p *PublicService) Search(term string) []domain.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ApplyFilters(collection.Filter{Search: term})
	p.shown = 1
	return p.listing()
}

func (p *PublicService) ByCategory(category string) []domain.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ApplyFilters(collection.Filter{Category: category})
	p.shown = 1
	return p.listing()
}

// LoadMore reveals the next page. It returns false when nothing is left.
func (p *PublicService) LoadMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown >= p.view.TotalPages() {
		return false
	}
	p.shown++
	return true
}

func (p *PublicService) Listing() []domain.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listing()
}

// Remaining counts matching stories not yet shown.
func (p *PublicService) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.view.Filtered()) - len(p.listing())
}

// Story returns a published story by slug and counts the view. A failed view
// increment is logged only.
func (p *PublicService) Story(ctx context.Context, slug string) (domain.Story, error) {
	story, err := p.store.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Story{}, fmt.Errorf("get story %q: %w", slug, err)
	}
	if !story.Published() {
		return domain.Story{}, fmt.Errorf("get story %q: %w", slug, domain.ErrNotFound)
	}

	if err := p.store.IncrementViews(ctx, story.ID); err != nil {
		p.logger.Warn("increment views failed", "id", story.ID, "error", err)
	} else {
		story.Views++
	}

	return *story, nil
}

// Related returns up to the configured number of other loaded stories in the
// same category.
func (p *PublicService) Related(story domain.Story) []domain.Story {
	p.mu.Lock()
	defer p.mu.Unlock()

	var related []domain.Story
	for _, s := range p.view.All() {
		if len(related) >= p.config.RelatedLimit {
			break
		}
		if s.ID != story.ID && s.Category == story.Category {
			related = append(related, s)
		}
	}
	return related
}

func (p *PublicService) listing() []domain.Story {
	filtered := p.view.Filtered()
	n := p.shown * p.config.PageSize
	if n > len(filtered) {
		n = len(filtered)
	}
	return filtered[:n]
}

func publishedOnly(stories []domain.Story) []domain.Story {
	out := stories[:0:0]
	for _, s := range stories {
		if s.Published() {
			out = append(out, s)
		}
	}
	return out
}
