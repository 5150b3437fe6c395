package domain

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// ChangeEvent is one entry of a live update batch.
type ChangeEvent struct {
	Type  ChangeType `json:"type"`
	Story Story      `json:"story"`
}
