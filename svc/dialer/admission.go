package dialer

import (
	"sync"

	"github.com/google/uuid"
)

// Slot is a token proving one unit of call capacity is held.
type Slot struct {
	id uuid.UUID
}

func (s Slot) ID() uuid.UUID { return s.id }

// Admission bounds the number of in-flight attempts.
type Admission struct {
	mu     sync.Mutex
	max    int
	active map[uuid.UUID]struct{}
}

func NewAdmission(capacity int) *Admission {
	return &Admission{
		max:    capacity,
		active: make(map[uuid.UUID]struct{}, capacity),
	}
}

// TryAcquire returns a slot or false when the engine is at capacity.
// Denial is back-pressure, not an error.
func (a *Admission) TryAcquire() (Slot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.active) >= a.max {
		return Slot{}, false
	}
	s := Slot{id: uuid.New()}
	a.active[s.id] = struct{}{}
	return s, true
}

// Release returns a slot. Releasing a slot twice is a no-op reported as
// ErrSlotNotHeld.
func (a *Admission) Release(s Slot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.active[s.id]; !ok {
		return ErrSlotNotHeld
	}
	delete(a.active, s.id)
	return nil
}

// Reconcile discards every held slot and issues n fresh ones, one per
// persisted active attempt. n may exceed capacity after a config change;
// TryAcquire then denies until enough slots are released.
func (a *Admission) Reconcile(n int) []Slot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = make(map[uuid.UUID]struct{}, max(n, a.max))
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{id: uuid.New()}
		a.active[slots[i].id] = struct{}{}
	}
	return slots
}

func (a *Admission) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}

func (a *Admission) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return max(a.max-len(a.active), 0)
}

func (a *Admission) Max() int { return a.max }
