package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"storydesk/internal/collection"
	"storydesk/internal/config"
	"storydesk/internal/domain"
)

// CollectionService keeps one admin collection view in sync with the store and
// the change feed. Every view mutation runs under mu, so user actions and
// change batches never interleave.
type CollectionService struct {
	store     StoryStore
	feed      ChangeFeed
	txManager TransactionManager
	logger    *slog.Logger
	config    config.ViewConfig
	now       func() time.Time
	commands  map[string]Command

	mu          sync.Mutex
	view        *collection.View
	generation  uint64 // bumped by every reload start and every local change
	lastLoad    uint64 // generation of the most recently started reload
	unsubscribe func()
}

func NewCollectionService(
	store StoryStore,
	feed ChangeFeed,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.ViewConfig,
) (*CollectionService, error) {
	sort, err := domain.ParseSort(cfg.SortField, cfg.SortDirection)
	if err != nil {
		return nil, fmt.Errorf("view sort: %w", err)
	}

	s := &CollectionService{
		store:     store,
		feed:      feed,
		txManager: txManager,
		logger:    logger.With("component", "collection"),
		config:    cfg,
		now:       time.Now,
		view: collection.NewView(collection.Options{
			PageSize:     cfg.PageSize,
			Sort:         sort,
			SearchFields: collection.AdminSearch,
		}),
	}
	s.commands = s.commandTable()

	return s, nil
}

// Start performs the initial load and subscribes to live updates. A failed
// initial load leaves the view in the error state and is not fatal.
func (s *CollectionService) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		s.logger.Error("initial load failed", "error", err)
	}

	if s.feed == nil {
		return nil
	}

	unsubscribe, err := s.feed.Subscribe(ctx,
		func(events []domain.ChangeEvent) { s.handleBatch(ctx, events) },
		func(err error) { s.logger.Error("change feed error", "error", err) },
	)
	if err != nil {
		return fmt.Errorf("subscribe to change feed: %w", err)
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	return nil
}

// Close stops live updates.
func (s *CollectionService) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Reload replaces the collection with the store's current contents. Only the
// most recently started reload may apply its result; earlier ones finishing
// late are dropped. A fetch that overlapped a local change is repeated, since
// its result may predate the change.
func (s *CollectionService) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	load := s.generation
	s.lastLoad = load
	s.view.BeginLoad()
	s.mu.Unlock()

	for {
		s.mu.Lock()
		gen := s.generation
		sort := s.view.Sort()
		s.mu.Unlock()

		stories, err := s.store.FetchAll(ctx, sort)

		s.mu.Lock()
		if s.lastLoad != load {
			s.mu.Unlock()
			s.logger.Debug("discarding stale load", "generation", load, "current", s.generation)
			return nil
		}
		if gen != s.generation {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.view.Fail(ctxErr)
				s.mu.Unlock()
				return fmt.Errorf("%w: fetch stories: %w", domain.ErrLoad, ctxErr)
			}
			s.mu.Unlock()
			s.logger.Debug("collection changed during load, fetching again", "generation", gen)
			continue
		}

		if err != nil {
			s.view.Fail(err)
			s.mu.Unlock()
			return fmt.Errorf("%w: fetch stories: %w", domain.ErrLoad, err)
		}

		s.view.Load(stories)
		s.mu.Unlock()
		s.logger.Debug("stories loaded", "count", len(stories), "generation", gen)

		return nil
	}
}

// Verify compares the local fingerprint with the store's and reloads on drift.
func (s *CollectionService) Verify(ctx context.Context) error {
	remote, err := s.store.Fingerprint(ctx)
	if err != nil {
		return fmt.Errorf("%w: fingerprint: %w", domain.ErrLoad, err)
	}

	s.mu.Lock()
	local := s.view.Fingerprint()
	s.mu.Unlock()

	if local.Equal(remote) {
		return nil
	}

	s.logger.Info("collection drift detected, reloading",
		"local_count", local.Count,
		"remote_count", remote.Count,
	)
	return s.Reload(ctx)
}

func (s *CollectionService) handleBatch(ctx context.Context, events []domain.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		s.logger.Info("story "+string(ev.Type), "id", ev.Story.ID, "title", ev.Story.Title)
	}

	s.mu.Lock()
	s.reconcileLocked(events)
	s.mu.Unlock()

	var err error
	if s.config.ReconcileMode == config.ReconcileReload {
		err = s.Reload(ctx)
	} else {
		err = s.Verify(ctx)
	}
	if err != nil {
		s.logger.Error("refresh after change batch failed", "error", err)
	}
}

func (s *CollectionService) ApplyFilters(f collection.Filter) []domain.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ApplyFilters(f)
}

// SortBy reorders the local copy; later reloads fetch in the same order.
func (s *CollectionService) SortBy(sort domain.Sort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SortBy(sort)
}

func (s *CollectionService) ChangePage(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SetPage(page)
}

func (s *CollectionService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ToggleSelect(id)
}

func (s *CollectionService) ToggleSelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ToggleSelectAll()
}

func (s *CollectionService) Snapshot() collection.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Snapshot()
}

func (s *CollectionService) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Stats()
}

func (s *CollectionService) Featured() (domain.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Featured()
}

func (s *CollectionService) Find(id string) (domain.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Find(id)
}

// BulkApply runs action against every selected story, one at a time, in
// collection order. There is no rollback: the result lists each id's outcome.
// The selection is cleared whatever the outcome.
func (s *CollectionService) BulkApply(ctx context.Context, action domain.BulkAction) *domain.BulkResult {
	s.mu.Lock()
	ids := s.view.Selected()
	s.mu.Unlock()

	result := domain.NewBulkResult(action)
	var events []domain.ChangeEvent

	for _, id := range ids {
		ev, err := s.applyOne(ctx, action, id)
		result.Record(id, err)
		if err != nil {
			s.logger.Warn("bulk item failed", "action", action, "id", id, "error", err)
			continue
		}
		events = append(events, ev)
	}

	s.mu.Lock()
	s.view.ClearSelection()
	s.reconcileLocked(events)
	s.mu.Unlock()

	s.publish(ctx, events)

	s.logger.Info("bulk action completed",
		"action", action,
		"attempted", result.Attempted(),
		"succeeded", len(result.Succeeded()),
		"failed", len(result.Failed()),
	)

	return result
}

func (s *CollectionService) applyOne(ctx context.Context, action domain.BulkAction, id string) (domain.ChangeEvent, error) {
	switch action {
	case domain.BulkPublish:
		status := domain.StatusPublished
		now := s.now()
		return s.update(ctx, id, domain.Patch{Status: &status, PublishDate: &now})
	case domain.BulkUnpublish:
		status := domain.StatusDraft
		return s.update(ctx, id, domain.Patch{Status: &status})
	case domain.BulkDelete:
		if err := s.store.Delete(ctx, id); err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("%w: delete story %s: %w", domain.ErrWrite, id, err)
		}
		return domain.ChangeEvent{Type: domain.ChangeRemoved, Story: s.knownOrID(id)}, nil
	}
	return domain.ChangeEvent{}, fmt.Errorf("unknown bulk action %q", action)
}

func (s *CollectionService) update(ctx context.Context, id string, patch domain.Patch) (domain.ChangeEvent, error) {
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: update story %s: %w", domain.ErrWrite, id, err)
	}
	return domain.ChangeEvent{Type: domain.ChangeModified, Story: *updated}, nil
}

// Create validates and stores a new story. An empty slug is derived from the
// title; a story created as published gets the current time as publish date.
func (s *CollectionService) Create(ctx context.Context, story domain.Story) (domain.Story, error) {
	story.Title = strings.TrimSpace(story.Title)
	story.Slug = strings.TrimSpace(story.Slug)
	story.Category = strings.TrimSpace(story.Category)
	story.Excerpt = strings.TrimSpace(story.Excerpt)
	story.Body = strings.TrimSpace(story.Body)
	story.Author = strings.TrimSpace(story.Author)
	if story.Slug == "" && story.Title != "" {
		story.Slug = slug.Make(story.Title)
	}
	if story.Status == "" {
		story.Status = domain.StatusDraft
	}
	if story.Status == domain.StatusPublished && story.PublishDate == nil {
		now := s.now()
		story.PublishDate = &now
	}
	story.Views = 0

	if err := story.Validate(); err != nil {
		return domain.Story{}, err
	}

	if _, err := s.store.Create(ctx, &story); err != nil {
		return domain.Story{}, fmt.Errorf("%w: create story: %w", domain.ErrWrite, err)
	}

	s.commit(ctx, []domain.ChangeEvent{{Type: domain.ChangeAdded, Story: story}})
	s.logger.Info("story created", "id", story.ID, "title", story.Title)

	return story, nil
}

// Update applies patch. When the story is known locally the merged result is
// validated first. Publishing without an explicit date stamps the current time.
func (s *CollectionService) Update(ctx context.Context, id string, patch domain.Patch) (domain.Story, error) {
	stamp := patch.Status != nil && *patch.Status == domain.StatusPublished
	if current, ok := s.Find(id); ok {
		merged := patch.Apply(current)
		if err := merged.Validate(); err != nil {
			return domain.Story{}, err
		}
		stamp = stamp || (merged.Published() && merged.PublishDate == nil)
	}
	if stamp && patch.PublishDate == nil {
		now := s.now()
		patch.PublishDate = &now
	}

	ev, err := s.update(ctx, id, patch)
	if err != nil {
		return domain.Story{}, err
	}

	s.commit(ctx, []domain.ChangeEvent{ev})
	return ev.Story, nil
}

func (s *CollectionService) Delete(ctx context.Context, id string) error {
	ev, err := s.applyOne(ctx, domain.BulkDelete, id)
	if err != nil {
		return err
	}
	s.commit(ctx, []domain.ChangeEvent{ev})
	return nil
}

// ToggleStatus flips draft and published inside one transaction. Publishing
// stamps the publish date; unpublishing keeps it.
func (s *CollectionService) ToggleStatus(ctx context.Context, id string) (domain.Story, error) {
	var updated *domain.Story

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.store.Get(txCtx, id)
		if err != nil {
			return fmt.Errorf("get story: %w", err)
		}

		status := domain.StatusPublished
		patch := domain.Patch{Status: &status}
		if current.Published() {
			status = domain.StatusDraft
		} else {
			now := s.now()
			patch.PublishDate = &now
		}

		updated, err = s.store.Update(txCtx, id, patch)
		if err != nil {
			return fmt.Errorf("update story: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Story{}, fmt.Errorf("%w: toggle status %s: %w", domain.ErrWrite, id, err)
	}

	s.commit(ctx, []domain.ChangeEvent{{Type: domain.ChangeModified, Story: *updated}})
	s.logger.Info("status updated", "id", id, "status", updated.Status)

	return *updated, nil
}

// Export writes every record as indented JSON.
func (s *CollectionService) Export(w io.Writer) error {
	s.mu.Lock()
	stories := s.view.All()
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stories); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

func (s *CollectionService) commit(ctx context.Context, events []domain.ChangeEvent) {
	s.mu.Lock()
	s.reconcileLocked(events)
	s.mu.Unlock()

	s.publish(ctx, events)
}

// reconcileLocked applies events and invalidates any fetch already in flight.
// Callers hold mu.
func (s *CollectionService) reconcileLocked(events []domain.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	s.generation++
	s.view.Reconcile(events)
}

func (s *CollectionService) publish(ctx context.Context, events []domain.ChangeEvent) {
	if s.feed == nil || len(events) == 0 {
		return
	}
	if err := s.feed.Publish(ctx, events); err != nil {
		s.logger.Error("publish change batch failed", "events", len(events), "error", err)
	}
}

func (s *CollectionService) knownOrID(id string) domain.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	if story, ok := s.view.Find(id); ok {
		return story
	}
	return domain.Story{ID: id}
}
