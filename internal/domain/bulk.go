package domain

import "fmt"

type BulkAction string

const (
	BulkPublish   BulkAction = "publish"
	BulkUnpublish BulkAction = "unpublish"
	BulkDelete    BulkAction = "delete"
)

func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(s); a {
	case BulkPublish, BulkUnpublish, BulkDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown bulk action %q", s)
}

// BulkResult records the outcome per id, in the order the ids were attempted.
type BulkResult struct {
	Action  BulkAction
	Order   []string
	Results map[string]error
}

func NewBulkResult(action BulkAction) *BulkResult {
	return &BulkResult{Action: action, Results: make(map[string]error)}
}

func (r *BulkResult) Record(id string, err error) {
	r.Order = append(r.Order, id)
	r.Results[id] = err
}

func (r *BulkResult) Attempted() int { return len(r.Order) }

func (r *BulkResult) Succeeded() []string {
	var ids []string
	for _, id := range r.Order {
		if r.Results[id] == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *BulkResult) Failed() []string {
	var ids []string
	for _, id := range r.Order {
		if r.Results[id] != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Err is nil only when every attempted mutation succeeded.
func (r *BulkResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	be := &BulkError{Action: r.Action, Attempted: r.Attempted(), Failed: make(map[string]error, len(failed))}
	for _, id := range failed {
		be.Failed[id] = r.Results[id]
	}
	return be
}
