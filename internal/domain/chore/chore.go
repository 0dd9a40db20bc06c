package chore

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Typed failures surfaced by aggregate operations. Handlers map these to
// HTTP statuses; none of them is transient.
var (
	ErrDuplicateName  = errors.New("a person with this name already exists")
	ErrAlreadyMember  = errors.New("user is already part of this chore")
	ErrPersonNotFound = errors.New("person not found")
	ErrEmptyQueue     = errors.New("chore has no people")
)

// Person is one slot in a chore's rotation order. UserID is set only when
// the slot belongs to a registered account; free-text people leave it empty.
type Person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
}

// Chore is the aggregate root for a rotating task queue. People is the turn
// order and CurrentPersonIndex points at whoever is up next. SharedWith holds
// the user ids granted access besides the owner; it is kept in lockstep with
// the registered entries in People by the command handlers.
type Chore struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	OwnerID            string   `json:"owner_id"`
	OwnerName          string   `json:"owner_name"`
	SharedWith         []string `json:"shared_with"`
	People             []Person `json:"people"`
	CurrentPersonIndex int      `json:"current_person_index"`
}

// NewChore creates a chore owned by the given user, with the owner enrolled
// as the first person in the rotation.
func NewChore(name, ownerID, ownerName string) Chore {
	return Chore{
		ID:         uuid.New().String(),
		Name:       name,
		OwnerID:    ownerID,
		OwnerName:  ownerName,
		SharedWith: []string{},
		People: []Person{{
			ID:     uuid.New().String(),
			Name:   ownerName,
			UserID: ownerID,
		}},
		CurrentPersonIndex: 0,
	}
}

// AddPerson appends a person to the end of the rotation and returns the
// updated chore together with the new entry. The current index is unchanged.
// Free-text adds (empty userID) are rejected when another person already has
// the same name ignoring case; registered adds are rejected when the user
// already holds a slot.
func (c Chore) AddPerson(name, userID string) (Chore, Person, error) {
	if userID != "" {
		for _, p := range c.People {
			if p.UserID == userID {
				return c, Person{}, ErrAlreadyMember
			}
		}
	} else {
		for _, p := range c.People {
			if strings.EqualFold(p.Name, name) {
				return c, Person{}, ErrDuplicateName
			}
		}
	}

	person := Person{
		ID:     uuid.New().String(),
		Name:   name,
		UserID: userID,
	}

	next := c
	next.People = append(append([]Person{}, c.People...), person)
	return next, person, nil
}

// RemovePerson removes the person with the given id and rebalances the
// current index so it keeps pointing at the same logical person whenever
// someone before or at the current slot leaves:
//   - empty list afterwards: index resets to 0
//   - removed position <= index: decrement when the index is positive,
//     otherwise reset to 0 if the unchanged index would now be out of range
//   - removed position > index: index unchanged
func (c Chore) RemovePerson(personID string) (Chore, Person, error) {
	position := -1
	var removed Person
	for i, p := range c.People {
		if p.ID == personID {
			position = i
			removed = p
			break
		}
	}
	if position < 0 {
		return c, Person{}, ErrPersonNotFound
	}

	next := c
	next.People = append(append([]Person{}, c.People[:position]...), c.People[position+1:]...)

	if len(next.People) == 0 {
		next.CurrentPersonIndex = 0
	} else if position <= next.CurrentPersonIndex {
		if next.CurrentPersonIndex > 0 {
			next.CurrentPersonIndex--
		} else if next.CurrentPersonIndex >= len(next.People) {
			next.CurrentPersonIndex = 0
		}
	}

	return next, removed, nil
}

// Advance moves the turn to the next person, wrapping around at the end of
// the list. It fails on an empty rotation.
func (c Chore) Advance() (Chore, Person, error) {
	if len(c.People) == 0 {
		return c, Person{}, ErrEmptyQueue
	}

	next := c
	next.CurrentPersonIndex = (c.CurrentPersonIndex + 1) % len(c.People)
	return next, next.People[next.CurrentPersonIndex], nil
}

// CurrentPerson returns the person whose turn it is, or false when the
// rotation is empty.
func (c Chore) CurrentPerson() (Person, bool) {
	if len(c.People) == 0 {
		return Person{}, false
	}
	return c.People[c.CurrentPersonIndex], true
}

// PersonFor returns the person slot backed by the given user id, if any.
func (c Chore) PersonFor(userID string) (Person, bool) {
	if userID == "" {
		return Person{}, false
	}
	for _, p := range c.People {
		if p.UserID == userID {
			return p, true
		}
	}
	return Person{}, false
}
