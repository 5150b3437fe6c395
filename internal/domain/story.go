package domain

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Story struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug"`
	Category    string     `db:"category" json:"category"`
	Excerpt     string     `db:"excerpt" json:"excerpt"`
	Body        string     `db:"body" json:"body"`
	Author      string     `db:"author" json:"author,omitempty"`
	Status      Status     `db:"status" json:"status"`
	Featured    bool       `db:"featured" json:"featured"`
	Views       int64      `db:"views" json:"views"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

func (s Story) Published() bool {
	return s.Status == StatusPublished
}

// Validate reports every missing required field at once.
func (s Story) Validate() error {
	var errs []error
	required := []struct {
		field string
		value string
	}{
		{"title", s.Title},
		{"slug", s.Slug},
		{"category", s.Category},
		{"excerpt", s.Excerpt},
		{"body", s.Body},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &FieldError{Field: r.field, Reason: "is required"})
		}
	}
	if s.Status != "" && !s.Status.Valid() {
		errs = append(errs, &FieldError{Field: "status", Reason: "must be draft or published"})
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Slug        *string
	Category    *string
	Excerpt     *string
	Body        *string
	Status      *Status
	Featured    *bool
	PublishDate *time.Time
}

func (p Patch) Apply(s Story) Story {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Slug != nil {
		s.Slug = *p.Slug
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Excerpt != nil {
		s.Excerpt = *p.Excerpt
	}
	if p.Body != nil {
		s.Body = *p.Body
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Featured != nil {
		s.Featured = *p.Featured
	}
	if p.PublishDate != nil {
		t := *p.PublishDate
		s.PublishDate = &t
	}
	return s
}

// Stats holds dashboard counters over a set of stories.
type Stats struct {
	Total      int
	Published  int
	Drafts     int
	TotalViews int64
}

func ComputeStats(stories []Story) Stats {
	st := Stats{Total: len(stories)}
	for _, s := range stories {
		switch s.Status {
		case StatusPublished:
			st.Published++
		case StatusDraft:
			st.Drafts++
		}
		st.TotalViews += s.Views
	}
	return st
}

// Fingerprint is a cheap summary used to detect drift between a local copy
// and the store. Views are summed because view counts change without
// touching updated_at.
type Fingerprint struct {
	Count        int       `db:"count"`
	LatestUpdate time.Time `db:"latest_update"`
	TotalViews   int64     `db:"total_views"`
}

func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Count == o.Count && f.TotalViews == o.TotalViews && f.LatestUpdate.Equal(o.LatestUpdate)
}

func FingerprintOf(stories []Story) Fingerprint {
	fp := Fingerprint{Count: len(stories)}
	for _, s := range stories {
		if s.UpdatedAt.After(fp.LatestUpdate) {
			fp.LatestUpdate = s.UpdatedAt
		}
		fp.TotalViews += s.Views
	}
	return fp
}
