package domain

import (
	"fmt"
	"strings"
)

type SortField string

const (
	SortUpdatedAt   SortField = "updatedAt"
	SortCreatedAt   SortField = "createdAt"
	SortPublishDate SortField = "publishDate"
	SortTitle       SortField = "title"
	SortViews       SortField = "views"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     SortField
	Direction Direction
}

var DefaultSort = Sort{Field: SortUpdatedAt, Direction: Desc}

// ParseSort accepts the field names used by the admin sort selector.
func ParseSort(field, direction string) (Sort, error) {
	s := Sort{Field: SortField(field), Direction: Direction(strings.ToLower(direction))}
	switch s.Field {
	case SortUpdatedAt, SortCreatedAt, SortPublishDate, SortTitle, SortViews:
	case "publish_date":
		s.Field = SortPublishDate
	default:
		return Sort{}, fmt.Errorf("unknown sort field %q", field)
	}
	switch s.Direction {
	case Asc, Desc:
	case "":
		s.Direction = Desc
	default:
		return Sort{}, fmt.Errorf("unknown sort direction %q", direction)
	}
	return s, nil
}

// Less orders a before b for the field, ascending. Unset publish dates sort first.
func (f SortField) Less(a, b Story) bool {
	switch f {
	case SortCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	case SortPublishDate:
		if a.PublishDate == nil || b.PublishDate == nil {
			return a.PublishDate == nil && b.PublishDate != nil
		}
		return a.PublishDate.Before(*b.PublishDate)
	case SortTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case SortViews:
		return a.Views < b.Views
	default:
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
}

// Column maps the field onto the storage column name.
func (f SortField) Column() string {
	switch f {
	case SortCreatedAt:
		return "created_at"
	case SortPublishDate:
		return "publish_date"
	case SortTitle:
		return "title"
	case SortViews:
		return "views"
	default:
		return "updated_at"
	}
}
