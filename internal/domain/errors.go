package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrLoad     = errors.New("load failure")
	ErrWrite    = errors.New("write failure")
	ErrNotFound = errors.New("story not found")
	ErrInvalid  = errors.New("invalid story")
)

type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

// BulkError is returned when some records of a bulk action were not mutated.
type BulkError struct {
	Action    BulkAction
	Attempted int
	Failed    map[string]error
}

func (e *BulkError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("bulk %s: %d of %d failed (%s)", e.Action, len(e.Failed), e.Attempted, strings.Join(ids, ", "))
}

func (e *BulkError) Unwrap() error {
	return ErrWrite
}
