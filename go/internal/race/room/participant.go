package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/race/events"
)

// Sender delivers an event to a single connection. A returned error means the
// event was not delivered; the room never retries.
type Sender interface {
	Send(event events.Event) error
}

// Participant is one connected identity. Name is a display name and is not unique.
type Participant struct {
	ID       uuid.UUID
	Name     string
	Progress float64
	Finished bool
	Rank     int
	Elapsed  time.Duration

	sender Sender
}

func (p *Participant) reset() {
	p.Progress = 0
	p.Finished = false
	p.Rank = 0
	p.Elapsed = 0
}

// registry holds participants keyed by identity, remembering join order
type registry struct {
	byID  map[uuid.UUID]*Participant
	order []uuid.UUID
}

func newRegistry() *registry {
	return &registry{byID: make(map[uuid.UUID]*Participant)}
}

func (r *registry) add(p *Participant) {
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
}

// remove is a no-op for unknown identities
func (r *registry) remove(id uuid.UUID) (*Participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

func (r *registry) get(id uuid.UUID) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *registry) len() int {
	return len(r.byID)
}

// all returns participants in join order
func (r *registry) all() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// members returns the participants of set in join order
func (r *registry) members(set map[uuid.UUID]struct{}) []*Participant {
	out := make([]*Participant, 0, len(set))
	for _, id := range r.order {
		if _, ok := set[id]; ok {
			out = append(out, r.byID[id])
		}
	}
	return out
}
