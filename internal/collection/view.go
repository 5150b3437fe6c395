// Package collection holds the in-memory story collection view: filtering,
// sorting, pagination, selection and reconciliation against change batches.
// It performs no I/O; callers serialize access.
package collection

import (
	"slices"

	"storydesk/internal/domain"
)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "empty"
	}
}

const DefaultPageSize = 10

type Options struct {
	PageSize     int
	Sort         domain.Sort
	SearchFields []SearchField
}

// View owns the collection state of one dashboard or listing instance.
type View struct {
	all      []domain.Story
	filtered []domain.Story
	filter   Filter
	sort     domain.Sort
	fields   []SearchField
	page     int
	pageSize int
	selected map[string]struct{}
	state    State
	err      error
}

func NewView(opts Options) *View {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Sort.Field == "" {
		opts.Sort = domain.DefaultSort
	}
	if len(opts.SearchFields) == 0 {
		opts.SearchFields = AdminSearch
	}
	return &View{
		sort:     opts.Sort,
		fields:   opts.SearchFields,
		page:     1,
		pageSize: opts.PageSize,
		selected: make(map[string]struct{}),
	}
}

// BeginLoad marks a fetch as in flight. Records stay visible.
func (v *View) BeginLoad() {
	v.state = StateLoading
}

// Fail records a load failure and keeps the last good records.
func (v *View) Fail(err error) {
	v.state = StateError
	v.err = err
}

// Load replaces every record, re-sorts, resets to page 1 and drops selections
// whose id is gone.
func (v *View) Load(records []domain.Story) {
	v.all = slices.Clone(records)
	v.sortRecords()
	v.page = 1
	v.state = StateReady
	v.err = nil

	present := make(map[string]struct{}, len(v.all))
	for _, s := range v.all {
		present[s.ID] = struct{}{}
	}
	for id := range v.selected {
		if _, ok := present[id]; !ok {
			delete(v.selected, id)
		}
	}

	v.refilter()
}

// ApplyFilters sets the predicate, resets to page 1 and returns the matches.
func (v *View) ApplyFilters(f Filter) []domain.Story {
	v.filter = f
	v.page = 1
	v.refilter()
	return slices.Clone(v.filtered)
}

func (v *View) Filter() Filter { return v.filter }

// SortBy reorders all records with a stable sort.
func (v *View) SortBy(s domain.Sort) {
	v.sort = s
	v.sortRecords()
	v.refilter()
}

func (v *View) Sort() domain.Sort { return v.sort }

// SetPage moves to page. Out-of-range requests leave the view unchanged.
func (v *View) SetPage(page int) bool {
	if page < 1 || page > v.TotalPages() {
		return false
	}
	v.page = page
	return true
}

func (v *View) Page() int { return v.page }

func (v *View) TotalPages() int {
	return TotalPages(len(v.filtered), v.pageSize)
}

// Visible is the current page of the filtered records.
func (v *View) Visible() []domain.Story {
	return slices.Clone(Paginate(v.filtered, v.page, v.pageSize))
}

func (v *View) Filtered() []domain.Story { return slices.Clone(v.filtered) }

func (v *View) All() []domain.Story { return slices.Clone(v.all) }

func (v *View) Len() int { return len(v.all) }

func (v *View) Find(id string) (domain.Story, bool) {
	if i := v.index(id); i >= 0 {
		return v.all[i], true
	}
	return domain.Story{}, false
}

// Reconcile applies a change batch in order. Added ids that already exist are
// replaced in place, as are modified ids; unknown modified ids are inserted.
func (v *View) Reconcile(events []domain.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		switch ev.Type {
		case domain.ChangeAdded, domain.ChangeModified:
			if i := v.index(ev.Story.ID); i >= 0 {
				v.all[i] = ev.Story
			} else {
				v.insert(ev.Story)
			}
		case domain.ChangeRemoved:
			if i := v.index(ev.Story.ID); i >= 0 {
				v.all = slices.Delete(v.all, i, i+1)
			}
			delete(v.selected, ev.Story.ID)
		}
	}
	if v.state == StateEmpty {
		v.state = StateReady
	}
	v.refilter()
	if v.page > v.TotalPages() {
		v.page = max(1, v.TotalPages())
	}
}

func (v *View) ToggleSelect(id string) {
	if _, ok := v.selected[id]; ok {
		delete(v.selected, id)
		return
	}
	v.selected[id] = struct{}{}
}

// ToggleSelectAll selects every record on the visible page, or deselects them
// when all of them are already selected.
func (v *View) ToggleSelectAll() {
	visible := Paginate(v.filtered, v.page, v.pageSize)
	all := len(visible) > 0
	for _, s := range visible {
		if _, ok := v.selected[s.ID]; !ok {
			all = false
			break
		}
	}
	for _, s := range visible {
		if all {
			delete(v.selected, s.ID)
		} else {
			v.selected[s.ID] = struct{}{}
		}
	}
}

func (v *View) IsSelected(id string) bool {
	_, ok := v.selected[id]
	return ok
}

// Selected returns selected ids in collection order, followed by any selected
// id no longer present in the collection.
func (v *View) Selected() []string {
	ids := make([]string, 0, len(v.selected))
	seen := make(map[string]struct{}, len(v.selected))
	for _, s := range v.all {
		if _, ok := v.selected[s.ID]; ok {
			ids = append(ids, s.ID)
			seen[s.ID] = struct{}{}
		}
	}
	var rest []string
	for id := range v.selected {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

func (v *View) ClearSelection() {
	clear(v.selected)
}

// Featured is the first featured record of the filtered sequence.
func (v *View) Featured() (domain.Story, bool) {
	for _, s := range v.filtered {
		if s.Featured {
			return s, true
		}
	}
	return domain.Story{}, false
}

func (v *View) Stats() domain.Stats {
	return domain.ComputeStats(v.all)
}

func (v *View) Fingerprint() domain.Fingerprint {
	return domain.FingerprintOf(v.all)
}

// Snapshot is the derived state handed to a renderer.
type Snapshot struct {
	Visible     []domain.Story
	TotalCount  int
	CurrentPage int
	TotalPages  int
	Selected    []string
	State       State
	Err         error
}

func (v *View) Snapshot() Snapshot {
	return Snapshot{
		Visible:     v.Visible(),
		TotalCount:  len(v.filtered),
		CurrentPage: v.page,
		TotalPages:  v.TotalPages(),
		Selected:    v.Selected(),
		State:       v.state,
		Err:         v.err,
	}
}

func (v *View) State() State { return v.state }

func (v *View) index(id string) int {
	return slices.IndexFunc(v.all, func(s domain.Story) bool { return s.ID == id })
}

// insert places s after every record that does not sort after it.
func (v *View) insert(s domain.Story) {
	i := slices.IndexFunc(v.all, func(o domain.Story) bool { return v.compare(s, o) < 0 })
	if i < 0 {
		v.all = append(v.all, s)
		return
	}
	v.all = slices.Insert(v.all, i, s)
}

func (v *View) compare(a, b domain.Story) int {
	if v.sort.Direction == domain.Desc {
		a, b = b, a
	}
	switch less := v.sort.Field.Less; {
	case less(a, b):
		return -1
	case less(b, a):
		return 1
	}
	return 0
}

func (v *View) sortRecords() {
	slices.SortStableFunc(v.all, v.compare)
}

func (v *View) refilter() {
	v.filtered = Apply(v.all, v.filter, v.fields)
}
