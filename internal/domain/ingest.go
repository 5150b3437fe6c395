package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Ingest coerces an untyped store document into a Story. Missing or malformed
// fields resolve to their defaults: status draft, zero views, not featured.
func Ingest(id string, doc map[string]any) Story {
	s := Story{
		ID:       id,
		Title:    str(doc, "title"),
		Slug:     str(doc, "slug"),
		Category: str(doc, "category"),
		Excerpt:  str(doc, "excerpt", "description"),
		Body:     str(doc, "body", "content"),
		Author:   str(doc, "author"),
		Status:   StatusDraft,
		Featured: boolean(doc, "featured"),
		Views:    integer(doc, "views"),
	}
	if s.ID == "" {
		s.ID = str(doc, "id")
	}

	if st := Status(strings.ToLower(str(doc, "status"))); st.Valid() {
		s.Status = st
	}
	if s.Views < 0 {
		s.Views = 0
	}

	if t, ok := timestamp(doc, "publish_date", "publishDate", "date"); ok {
		s.PublishDate = &t
	}
	if t, ok := timestamp(doc, "updatedAt", "updated_at"); ok {
		s.UpdatedAt = t
	}
	if t, ok := timestamp(doc, "createdAt", "created_at"); ok {
		s.CreatedAt = t
	}

	return s
}

func lookup(doc map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(doc map[string]any, keys ...string) string {
	v, ok := lookup(doc, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func boolean(doc map[string]any, keys ...string) bool {
	v, ok := lookup(doc, keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

func integer(doc map[string]any, keys ...string) int64 {
	v, ok := lookup(doc, keys...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func timestamp(doc map[string]any, keys ...string) (time.Time, bool) {
	v, ok := lookup(doc, keys...)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case map[string]any:
		// {"seconds": ..., "nanoseconds": ...} as exported by document stores.
		sec, ok := t["seconds"].(float64)
		if !ok {
			return time.Time{}, false
		}
		nsec, _ := t["nanoseconds"].(float64)
		return time.Unix(int64(sec), int64(nsec)).UTC(), true
	}
	return time.Time{}, false
}
