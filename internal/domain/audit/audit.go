package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"
)

// Action is the kind of mutation recorded.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EntityType names the audited aggregate.
type EntityType string

const (
	EntityDiscount      EntityType = "discount"
	EntitySeasonOverlay EntityType = "season_overlay"
)

// Entry records a single catalog mutation with before and after snapshots.
type Entry struct {
	ID         string
	Action     Action
	EntityType EntityType
	EntityID   string
	Before     json.RawMessage
	After      json.RawMessage
	Actor      string
	CreatedAt  time.Time
}

// NewEntry builds an entry, snapshotting before and after as JSON. Nil
// snapshots are left empty.
func NewEntry(action Action, entity EntityType, entityID, actor string, before, after any, now time.Time) (*Entry, error) {
	e := &Entry{
		ID:         ulid.Make().String(),
		Action:     action,
		EntityType: entity,
		EntityID:   entityID,
		Actor:      actor,
		CreatedAt:  now.UTC(),
	}
	var err error
	if e.Before, err = snapshot(before); err != nil {
		return nil, errors.Wrap(err, "before snapshot")
	}
	if e.After, err = snapshot(after); err != nil {
		return nil, errors.Wrap(err, "after snapshot")
	}
	return e, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Repository persists and queries audit entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// ListByEntity returns entries newest first. An empty entityID lists every
	// entry of the type.
	ListByEntity(ctx context.Context, entity EntityType, entityID string, limit int) ([]Entry, error)
}
