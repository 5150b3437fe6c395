package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"storydesk/internal/domain"
)

type StoryStore interface {
	FetchAll(ctx context.Context, sort domain.Sort) ([]domain.Story, error)
	FetchPublished(ctx context.Context, sort domain.Sort, limit int) ([]domain.Story, error)
	Get(ctx context.Context, id string) (*domain.Story, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Story, error)
	Create(ctx context.Context, story *domain.Story) (string, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Story, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Fingerprint(ctx context.Context) (domain.Fingerprint, error)
}

type ChangeFeed interface {
	Publish(ctx context.Context, events []domain.ChangeEvent) error
	Subscribe(ctx context.Context, onBatch func([]domain.ChangeEvent), onError func(error)) (func(), error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type FallbackSource interface {
	FetchStories(ctx context.Context) ([]domain.Story, error)
}
