package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storydesk/internal/domain"
)

const storyColumns = `id, title, slug, category, excerpt, body, author, status,
	featured, views, publish_date, created_at, updated_at`

type StoryStore struct {
	db *sqlx.DB
}

func NewStoryStore(db *sqlx.DB) *StoryStore {
	return &StoryStore{db: db}
}

func (s *StoryStore) FetchAll(ctx context.Context, sort domain.Sort) ([]domain.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories ` + orderBy(sort)

	stories := []domain.Story{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &stories, query); err != nil {
		return nil, err
	}
	return stories, nil
}

// FetchPublished returns published stories only. A non-positive limit returns all.
func (s *StoryStore) FetchPublished(ctx context.Context, sort domain.Sort, limit int) ([]domain.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE status = $1 ` + orderBy(sort)
	args := []interface{}{domain.StatusPublished}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	stories := []domain.Story{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &stories, query, args...); err != nil {
		return nil, err
	}
	return stories, nil
}

func (s *StoryStore) Get(ctx context.Context, id string) (*domain.Story, error) {
	var story domain.Story
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &story, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *StoryStore) GetBySlug(ctx context.Context, slug string) (*domain.Story, error) {
	var story domain.Story
	query := `SELECT ` + storyColumns + ` FROM stories WHERE slug = $1
		ORDER BY (status = 'published') DESC, updated_at DESC LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &story, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// Create assigns the story a new id and stamps its timestamps.
func (s *StoryStore) Create(ctx context.Context, story *domain.Story) (string, error) {
	query := `
		INSERT INTO stories (
			id, title, slug, category, excerpt, body, author,
			status, featured, views, publish_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id, created_at, updated_at`

	status := story.Status
	if status == "" {
		status = domain.StatusDraft
	}

	row := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		uuid.NewString(),
		story.Title,
		story.Slug,
		story.Category,
		story.Excerpt,
		story.Body,
		story.Author,
		status,
		story.Featured,
		story.Views,
		story.PublishDate,
	)
	if err := row.Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt); err != nil {
		return "", err
	}
	story.Status = status

	return story.ID, nil
}

// Update applies the non-nil fields of patch and returns the stored result.
func (s *StoryStore) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Story, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE stories SET updated_at = NOW()")
	args := []interface{}{id}

	set := func(column string, value interface{}) {
		args = append(args, value)
		sb.WriteString(", ")
		sb.WriteString(column)
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Slug != nil {
		set("slug", *patch.Slug)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Excerpt != nil {
		set("excerpt", *patch.Excerpt)
	}
	if patch.Body != nil {
		set("body", *patch.Body)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Featured != nil {
		set("featured", *patch.Featured)
	}
	if patch.PublishDate != nil {
		set("publish_date", *patch.PublishDate)
	}
	sb.WriteString(" WHERE id = $1 RETURNING ")
	sb.WriteString(storyColumns)

	var story domain.Story
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &story, sb.String(), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *StoryStore) Delete(ctx context.Context, id string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM stories WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the counter without touching updated_at.
func (s *StoryStore) IncrementViews(ctx context.Context, id string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE stories SET views = views + 1 WHERE id = $1", id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *StoryStore) Fingerprint(ctx context.Context) (domain.Fingerprint, error) {
	var (
		count  int
		latest sql.NullTime
		views  int64
	)
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx,
		"SELECT COUNT(*), MAX(updated_at), COALESCE(SUM(views), 0) FROM stories",
	).Scan(&count, &latest, &views)
	if err != nil {
		return domain.Fingerprint{}, err
	}

	fp := domain.Fingerprint{Count: count, TotalViews: views}
	if latest.Valid {
		fp.LatestUpdate = latest.Time
	}
	return fp, nil
}

// orderBy mirrors the in-memory ordering: unset values first ascending, last
// descending, ties broken by id.
func orderBy(sort domain.Sort) string {
	dir := "DESC NULLS LAST"
	if sort.Direction == domain.Asc {
		dir = "ASC NULLS FIRST"
	}
	column := sort.Field.Column()
	if sort.Field == domain.SortTitle {
		column = "LOWER(title)"
	}
	return fmt.Sprintf("ORDER BY %s %s, id", column, dir)
}
