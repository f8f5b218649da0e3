package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

const (
	TopicOrgSelectionChangedV1 = "org.selection.changed.v1"
	EventVersionV1             = 1
)

// SelectionChangedV1 is published by a cascade controller after every
// trigger. Degraded is set when the requested selection could not be kept in
// full and was narrowed to a valid prefix.
type SelectionChangedV1 struct {
	EventID      uuid.UUID           `json:"event_id"`
	EventVersion int                 `json:"event_version"`
	Topic        string              `json:"topic"`
	OccurredAt   time.Time           `json:"occurred_at"`
	Mode         string              `json:"mode"`
	Trigger      string              `json:"trigger"`
	Requested    hierarchy.Selection `json:"requested"`
	Previous     hierarchy.Selection `json:"previous"`
	Current      hierarchy.Selection `json:"current"`
	Degraded     bool                `json:"degraded"`
}

func NewSelectionChangedV1(mode, trigger string, requested, previous, current hierarchy.Selection) SelectionChangedV1 {
	return SelectionChangedV1{
		EventID:      uuid.New(),
		EventVersion: EventVersionV1,
		Topic:        TopicOrgSelectionChangedV1,
		OccurredAt:   time.Now().UTC(),
		Mode:         mode,
		Trigger:      trigger,
		Requested:    requested,
		Previous:     previous,
		Current:      current,
		Degraded:     requested != current,
	}
}
