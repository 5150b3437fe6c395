package collection

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storydesk/internal/domain"
)

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func numbered(n int) []domain.Story {
	out := make([]domain.Story, n)
	for i := range out {
		out[i] = domain.Story{
			ID:        fmt.Sprintf("s%02d", i),
			Title:     fmt.Sprintf("Story %02d", i),
			Status:    domain.StatusDraft,
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestView_LoadSortsAndResets(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	assert.Equal(t, StateEmpty, v.State())

	v.Load(numbered(25))
	require.True(t, v.SetPage(3))

	v.Load(numbered(25))

	assert.Equal(t, StateReady, v.State())
	assert.Equal(t, 1, v.Page())
	visible := v.Visible()
	require.Len(t, visible, 10)
	// default sort is updatedAt desc
	assert.Equal(t, "s24", visible[0].ID)
	assert.Equal(t, "s15", visible[9].ID)
}

func TestView_LoadPrunesVanishedSelections(t *testing.T) {
	v := NewView(Options{})
	v.Load(numbered(3))
	v.ToggleSelect("s00")
	v.ToggleSelect("s01")

	v.Load(numbered(3)[1:])

	assert.Equal(t, []string{"s01"}, v.Selected())
}

func TestView_FailKeepsLastGoodRecords(t *testing.T) {
	v := NewView(Options{})
	v.Load(numbered(4))

	v.BeginLoad()
	assert.Equal(t, StateLoading, v.State())
	v.Fail(errors.New("permission denied"))

	snap := v.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.EqualError(t, snap.Err, "permission denied")
	assert.Equal(t, 4, snap.TotalCount)

	v.Load(numbered(2))
	assert.Equal(t, StateReady, v.State())
	assert.NoError(t, v.Snapshot().Err)
}

func TestView_ApplyFiltersResetsPage(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	v.Load(numbered(25))
	require.True(t, v.SetPage(2))

	got := v.ApplyFilters(Filter{})

	assert.Len(t, got, 25)
	assert.Equal(t, 1, v.Page())
}

func TestView_ApplyFiltersEmptyIsIdentity(t *testing.T) {
	v := NewView(Options{})
	records := numbered(7)
	v.Load(records)

	assert.ElementsMatch(t, ids(records), ids(v.ApplyFilters(Filter{})))
	assert.Len(t, v.All(), 7)
}

func TestView_SortByIsStableAndIdempotent(t *testing.T) {
	records := []domain.Story{
		{ID: "a", Views: 5},
		{ID: "b", Views: 1},
		{ID: "c", Views: 5},
		{ID: "d", Views: 3},
		{ID: "e", Views: 5},
	}
	v := NewView(Options{Sort: domain.Sort{Field: domain.SortCreatedAt, Direction: domain.Asc}})
	v.Load(records)

	v.SortBy(domain.Sort{Field: domain.SortViews, Direction: domain.Desc})
	once := ids(v.All())
	v.SortBy(domain.Sort{Field: domain.SortViews, Direction: domain.Desc})
	twice := ids(v.All())

	assert.Equal(t, []string{"a", "c", "e", "d", "b"}, once)
	assert.Equal(t, once, twice)

	v.SortBy(domain.Sort{Field: domain.SortViews, Direction: domain.Asc})
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids(v.All()))
}

func TestView_SortByPublishDatePutsUnsetLast(t *testing.T) {
	d1 := base
	d2 := base.Add(time.Hour)
	v := NewView(Options{Sort: domain.Sort{Field: domain.SortPublishDate, Direction: domain.Desc}})
	v.Load([]domain.Story{
		{ID: "draft"},
		{ID: "old", PublishDate: &d1},
		{ID: "new", PublishDate: &d2},
	})

	assert.Equal(t, []string{"new", "old", "draft"}, ids(v.All()))
}

func TestView_SetPageOutOfRangeIsNoop(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	v.Load(numbered(25))
	require.Equal(t, 3, v.TotalPages())

	assert.False(t, v.SetPage(0))
	assert.Equal(t, 1, v.Page())
	assert.False(t, v.SetPage(4))
	assert.Equal(t, 1, v.Page())

	assert.True(t, v.SetPage(3))
	assert.Len(t, v.Visible(), 5)
	assert.False(t, v.SetPage(-1))
	assert.Equal(t, 3, v.Page())
}

func TestView_SetPageUsesFilteredCount(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	records := numbered(25)
	for i := 0; i < 5; i++ {
		records[i].Status = domain.StatusPublished
	}
	v.Load(records)
	v.ApplyFilters(Filter{Status: domain.StatusPublished})

	assert.Equal(t, 1, v.TotalPages())
	assert.False(t, v.SetPage(2))
}

func TestView_ReconcileAddedExistingActsAsModified(t *testing.T) {
	v := NewView(Options{})
	v.Load([]domain.Story{{ID: "a"}})

	v.Reconcile([]domain.ChangeEvent{{Type: domain.ChangeAdded, Story: domain.Story{ID: "a", Title: "X"}}})

	all := v.All()
	require.Len(t, all, 1)
	assert.Equal(t, "X", all[0].Title)
}

func TestView_ReconcileModifiedPreservesPosition(t *testing.T) {
	v := NewView(Options{Sort: domain.Sort{Field: domain.SortTitle, Direction: domain.Asc}})
	v.Load([]domain.Story{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}})

	v.Reconcile([]domain.ChangeEvent{{Type: domain.ChangeModified, Story: domain.Story{ID: "a", Title: "Z"}}})

	assert.Equal(t, []string{"a", "b", "c"}, ids(v.All()))
}

func TestView_ReconcileModifiedUnknownInserts(t *testing.T) {
	v := NewView(Options{Sort: domain.Sort{Field: domain.SortTitle, Direction: domain.Asc}})
	v.Load([]domain.Story{{ID: "a", Title: "A"}, {ID: "c", Title: "C"}})

	v.Reconcile([]domain.ChangeEvent{{Type: domain.ChangeModified, Story: domain.Story{ID: "b", Title: "B"}}})

	assert.Equal(t, []string{"a", "b", "c"}, ids(v.All()))
}

func TestView_ReconcileRemovedDeselects(t *testing.T) {
	v := NewView(Options{})
	v.Load([]domain.Story{{ID: "a"}, {ID: "b"}})
	v.ToggleSelect("a")
	v.ToggleSelect("b")

	v.Reconcile([]domain.ChangeEvent{{Type: domain.ChangeRemoved, Story: domain.Story{ID: "a"}}})

	assert.Equal(t, []string{"b"}, ids(v.All()))
	assert.False(t, v.IsSelected("a"))
	assert.Equal(t, []string{"b"}, v.Selected())
}

func TestView_ReconcileAppliesInOrder(t *testing.T) {
	v := NewView(Options{})
	v.Load(nil)

	v.Reconcile([]domain.ChangeEvent{
		{Type: domain.ChangeAdded, Story: domain.Story{ID: "a", Title: "first"}},
		{Type: domain.ChangeRemoved, Story: domain.Story{ID: "a"}},
		{Type: domain.ChangeAdded, Story: domain.Story{ID: "a", Title: "second"}},
	})

	all := v.All()
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Title)
}

func TestView_ReconcileClampsPageAfterRemoval(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	records := numbered(11)
	v.Load(records)
	require.True(t, v.SetPage(2))

	// the oldest record is alone on page 2
	v.Reconcile([]domain.ChangeEvent{{Type: domain.ChangeRemoved, Story: records[0]}})

	assert.Equal(t, 1, v.Page())
	assert.Len(t, v.Visible(), 10)
}

func TestView_ToggleSelect(t *testing.T) {
	v := NewView(Options{})
	v.Load(numbered(2))

	v.ToggleSelect("s00")
	assert.True(t, v.IsSelected("s00"))
	v.ToggleSelect("s00")
	assert.False(t, v.IsSelected("s00"))
}

func TestView_ToggleSelectAllOnlyVisiblePage(t *testing.T) {
	v := NewView(Options{PageSize: 10})
	v.Load(numbered(25))

	v.ToggleSelectAll()
	selected := v.Selected()
	assert.Len(t, selected, 10)
	assert.Equal(t, ids(v.Visible()), selected)

	v.ToggleSelectAll()
	assert.Empty(t, v.Selected())
}

func TestView_ToggleSelectAllCompletesPartialSelection(t *testing.T) {
	v := NewView(Options{PageSize: 3})
	v.Load(numbered(5))
	visible := v.Visible()
	v.ToggleSelect(visible[1].ID)

	v.ToggleSelectAll()

	assert.Equal(t, ids(visible), v.Selected())
}

func TestView_SnapshotAndStats(t *testing.T) {
	v := NewView(Options{PageSize: 4})
	records := numbered(6)
	records[0].Status = domain.StatusPublished
	records[0].Views = 10
	records[1].Views = 5
	v.Load(records)
	v.ToggleSelect("s05")

	snap := v.Snapshot()
	assert.Equal(t, 6, snap.TotalCount)
	assert.Equal(t, 1, snap.CurrentPage)
	assert.Equal(t, 2, snap.TotalPages)
	assert.Len(t, snap.Visible, 4)
	assert.Equal(t, []string{"s05"}, snap.Selected)
	assert.Equal(t, StateReady, snap.State)

	assert.Equal(t, domain.Stats{Total: 6, Published: 1, Drafts: 5, TotalViews: 15}, v.Stats())
}

func TestView_FeaturedPublishedEndToEnd(t *testing.T) {
	records := numbered(12)
	for _, i := range []int{1, 4, 7, 10} {
		records[i].Status = domain.StatusPublished
	}
	for _, i := range []int{2, 7, 10} {
		records[i].Featured = true
	}

	v := NewView(Options{Sort: domain.Sort{Field: domain.SortUpdatedAt, Direction: domain.Asc}})
	v.Load(records)

	published := v.ApplyFilters(Filter{Status: domain.StatusPublished})
	assert.Equal(t, []string{"s01", "s04", "s07", "s10"}, ids(published))

	featured, ok := v.Featured()
	require.True(t, ok)
	assert.Equal(t, "s07", featured.ID)
}

func TestView_FeaturedNone(t *testing.T) {
	v := NewView(Options{})
	v.Load(numbered(3))

	_, ok := v.Featured()
	assert.False(t, ok)
}
