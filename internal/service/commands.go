package service

import (
	"context"
	"fmt"
	"sort"

	"storydesk/internal/domain"
)

// Command is a single-record action a renderer can trigger by name.
type Command func(ctx context.Context, id string) error

const (
	ActionToggleStatus = "toggle-status"
	ActionPublish      = "publish"
	ActionUnpublish    = "unpublish"
	ActionDelete       = "delete"
)

func (s *CollectionService) commandTable() map[string]Command {
	single := func(action domain.BulkAction) Command {
		return func(ctx context.Context, id string) error {
			ev, err := s.applyOne(ctx, action, id)
			if err != nil {
				return err
			}
			s.commit(ctx, []domain.ChangeEvent{ev})
			return nil
		}
	}

	return map[string]Command{
		ActionToggleStatus: func(ctx context.Context, id string) error {
			_, err := s.ToggleStatus(ctx, id)
			return err
		},
		ActionPublish:   single(domain.BulkPublish),
		ActionUnpublish: single(domain.BulkUnpublish),
		ActionDelete:    single(domain.BulkDelete),
	}
}

// Dispatch runs the command registered under action.
func (s *CollectionService) Dispatch(ctx context.Context, action, id string) error {
	cmd, ok := s.commands[action]
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}
	return cmd(ctx, id)
}

// Actions lists the registered command names.
func (s *CollectionService) Actions() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
