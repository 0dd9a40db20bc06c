// Package access decides who may see or mutate a chore and which users
// receive a given event. All decisions are pure predicates over the latest
// persisted chore state; callers translate a false result into an
// authorization failure.
package access

import (
	"slices"

	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
)

// Op is a structural mutation subject to an access decision.
type Op byte

const (
	OpAddPerson Op = iota
	OpRemovePerson
	OpRemoveSelf
	OpAdvance
	OpDelete
)

// CanView reports whether the user may read the chore: the owner, anyone in
// SharedWith, and anyone holding a registered person slot. The last two are
// kept in lockstep by the command handlers, so SharedWith is authoritative;
// the person-slot check covers records written before that invariant held.
func CanView(c chore.Chore, userID string) bool {
	if userID == "" {
		return false
	}
	if userID == c.OwnerID {
		return true
	}
	if slices.Contains(c.SharedWith, userID) {
		return true
	}
	_, ok := c.PersonFor(userID)
	return ok
}

// CanMutate reports whether the user may apply the given structural
// operation. Deleting the chore and removing someone else require ownership;
// adding people, advancing the queue, and removing one's own slot require
// only view access. The owner's own person slot may never be removed, not
// even by the owner.
func CanMutate(c chore.Chore, userID string, op Op) bool {
	switch op {
	case OpDelete, OpRemovePerson:
		return userID == c.OwnerID
	case OpAddPerson, OpAdvance, OpRemoveSelf:
		return CanView(c, userID)
	default:
		return false
	}
}

// CanRemovePerson resolves the removal decision for a concrete person slot:
// the owner's slot is untouchable, users may remove their own slot, and the
// owner may remove anyone else's.
func CanRemovePerson(c chore.Chore, userID string, p chore.Person) bool {
	if p.UserID != "" && p.UserID == c.OwnerID {
		return false
	}
	if p.UserID != "" && p.UserID == userID {
		return CanMutate(c, userID, OpRemoveSelf)
	}
	return CanMutate(c, userID, OpRemovePerson)
}

// Audience returns the exact recipient set for every event about the chore:
// the owner plus everyone in SharedWith. The owner is always present and no
// id outside that union is ever included.
func Audience(c chore.Chore) []string {
	audience := make([]string, 0, len(c.SharedWith)+1)
	audience = append(audience, c.OwnerID)
	for _, id := range c.SharedWith {
		if id != c.OwnerID && !slices.Contains(audience, id) {
			audience = append(audience, id)
		}
	}
	return audience
}
