// internal/app/system/grouplock/grouplock.go
package grouplock

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Keyed serializes membership mutations per group. Operations on different
// groups proceed in parallel; operations on the same group take turns.
// Entries are reference-counted and removed once the last holder unlocks,
// so the map does not grow with the number of groups ever touched.
type Keyed struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates an empty lock set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[primitive.ObjectID]*entry)}
}

// Lock acquires the lock for the group and returns the unlock function.
func (k *Keyed) Lock(groupID primitive.ObjectID) func() {
	k.mu.Lock()
	e, ok := k.locks[groupID]
	if !ok {
		e = &entry{}
		k.locks[groupID] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, groupID)
		}
		k.mu.Unlock()
	}
}
