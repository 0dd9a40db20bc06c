package chore

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of state change an Event carries.
type EventType string

// Recognized event types. The person_* / user_* pairs distinguish free-text
// slots from registered accounts on the wire; receivers may treat them alike.
const (
	EventChoreCreated  EventType = "chore_created"
	EventChoreDeleted  EventType = "chore_deleted"
	EventPersonAdded   EventType = "person_added"
	EventUserJoined    EventType = "user_joined"
	EventPersonRemoved EventType = "person_removed"
	EventUserRemoved   EventType = "user_removed"
	EventUserLeft      EventType = "user_left"
	EventQueueAdvanced EventType = "queue_advanced"
)

// Event is a transient domain event describing one successful mutation.
// It is published to the store's event channel and relayed to every live
// connection in the chore's audience; it is never persisted.
type Event struct {
	Type             EventType `json:"type"`
	ChoreID          string    `json:"chore_id"`
	Chore            *Chore    `json:"chore,omitempty"`
	Person           *Person   `json:"person,omitempty"`
	RemovedPerson    *Person   `json:"removed_person,omitempty"`
	NewCurrentPerson *Person   `json:"new_current_person,omitempty"`
}

// NewCreatedEvent describes a freshly created chore.
func NewCreatedEvent(c Chore) Event {
	return Event{Type: EventChoreCreated, ChoreID: c.ID, Chore: &c}
}

// NewDeletedEvent describes a deleted chore. The snapshot is omitted on
// purpose: the aggregate no longer exists.
func NewDeletedEvent(choreID string) Event {
	return Event{Type: EventChoreDeleted, ChoreID: choreID}
}

// NewPersonAddedEvent describes a person appended to the rotation. Joins by
// a registered account are reported as user_joined.
func NewPersonAddedEvent(c Chore, p Person, joined bool) Event {
	t := EventPersonAdded
	if joined {
		t = EventUserJoined
	}
	return Event{Type: t, ChoreID: c.ID, Chore: &c, Person: &p}
}

// NewPersonRemovedEvent describes a person removed from the rotation.
// Self-service removal of a registered account is reported as user_left and
// owner-forced removal of a registered account as user_removed.
func NewPersonRemovedEvent(c Chore, removed Person, self bool) Event {
	t := EventPersonRemoved
	if removed.UserID != "" {
		if self {
			t = EventUserLeft
		} else {
			t = EventUserRemoved
		}
	}
	return Event{Type: t, ChoreID: c.ID, Chore: &c, RemovedPerson: &removed}
}

// NewQueueAdvancedEvent describes the turn moving to the next person.
func NewQueueAdvancedEvent(c Chore, current Person) Event {
	return Event{Type: EventQueueAdvanced, ChoreID: c.ID, Chore: &c, NewCurrentPerson: &current}
}

// Encode serializes the event to its wire shape.
func (e Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return payload, nil
}

// DecodeEvent parses a wire payload back into an Event. Payloads without a
// type or chore id are rejected so the relay never routes malformed input.
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event is missing a type")
	}
	if e.ChoreID == "" {
		return Event{}, fmt.Errorf("%s event is missing a chore_id", e.Type)
	}
	return e, nil
}
