package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_Defaults(t *testing.T) {
	s := Ingest("abc", map[string]any{"title": "Untitled"})

	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, "Untitled", s.Title)
	assert.Equal(t, StatusDraft, s.Status)
	assert.Equal(t, int64(0), s.Views)
	assert.False(t, s.Featured)
	assert.Nil(t, s.PublishDate)
}

func TestIngest_CoercesLooseTypes(t *testing.T) {
	s := Ingest("", map[string]any{
		"id":           "xyz",
		"status":       "Published",
		"views":        float64(42),
		"featured":     "true",
		"publish_date": "2024-01-15T10:00:00Z",
		"updatedAt":    float64(1705312800000),
		"createdAt":    map[string]any{"seconds": float64(1705312800), "nanoseconds": float64(0)},
		"description":  "from the static index",
		"content":      "# body",
	})

	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "xyz", s.ID)
	assert.Equal(t, StatusPublished, s.Status)
	assert.Equal(t, int64(42), s.Views)
	assert.True(t, s.Featured)
	require.NotNil(t, s.PublishDate)
	assert.True(t, s.PublishDate.Equal(want))
	assert.True(t, s.UpdatedAt.Equal(want))
	assert.True(t, s.CreatedAt.Equal(want))
	assert.Equal(t, "from the static index", s.Excerpt)
	assert.Equal(t, "# body", s.Body)
}

func TestIngest_RejectsBadValues(t *testing.T) {
	s := Ingest("a", map[string]any{
		"status":       "archived",
		"views":        float64(-3),
		"publish_date": "not a date",
		"title":        nil,
	})

	assert.Equal(t, StatusDraft, s.Status)
	assert.Equal(t, int64(0), s.Views)
	assert.Nil(t, s.PublishDate)
	assert.Empty(t, s.Title)
}

func TestStory_Validate(t *testing.T) {
	err := Story{Title: "t", Slug: " ", Category: "c"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "slug is required")
	assert.Contains(t, err.Error(), "excerpt is required")
	assert.Contains(t, err.Error(), "body is required")
	assert.NotContains(t, err.Error(), "title is required")

	ok := Story{Title: "t", Slug: "t", Category: "c", Excerpt: "e", Body: "b", Status: StatusDraft}
	assert.NoError(t, ok.Validate())
}

func TestPatch_Apply(t *testing.T) {
	title := "new"
	status := StatusPublished
	s := Patch{Title: &title, Status: &status}.Apply(Story{ID: "a", Title: "old", Category: "c"})

	assert.Equal(t, "new", s.Title)
	assert.Equal(t, StatusPublished, s.Status)
	assert.Equal(t, "c", s.Category)
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("publish_date", "ASC")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: SortPublishDate, Direction: Asc}, s)

	s, err = ParseSort("views", "")
	require.NoError(t, err)
	assert.Equal(t, Desc, s.Direction)

	_, err = ParseSort("author", "asc")
	assert.Error(t, err)
	_, err = ParseSort("title", "sideways")
	assert.Error(t, err)
}

func TestFingerprintOf(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stories := []Story{
		{ID: "a", UpdatedAt: t0, Views: 2},
		{ID: "b", UpdatedAt: t0.Add(time.Hour), Views: 3},
	}

	fp := FingerprintOf(stories)
	assert.Equal(t, Fingerprint{Count: 2, LatestUpdate: t0.Add(time.Hour), TotalViews: 5}, fp)

	viewed := []Story{stories[0], stories[1]}
	viewed[0].Views++
	assert.False(t, fp.Equal(FingerprintOf(viewed)))
	assert.True(t, fp.Equal(FingerprintOf(stories)))
}
