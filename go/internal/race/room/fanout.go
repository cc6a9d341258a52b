package room

import (
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/rs/zerolog/log"
)

// audience is the active set while racing and the waiting set otherwise
func (r *Room) audience() []*Participant {
	if r.phase == PhaseRacing {
		return r.registry.members(r.active)
	}
	return r.registry.members(r.waiting)
}

func (r *Room) broadcast(event events.Event) {
	audience := r.audience()
	for _, p := range audience {
		r.deliver(p, event)
	}

	log.Debug().
		Str("event_type", string(event.EventType())).
		Str("phase", string(r.phase)).
		Int("recipients", len(audience)).
		Msg("event broadcasted")
}

// deliver is best effort; failures are logged and never retried
func (r *Room) deliver(p *Participant, event events.Event) {
	if p.sender == nil {
		return
	}
	if err := p.sender.Send(event); err != nil {
		log.Debug().
			Err(err).
			Str("participant_id", p.ID.String()).
			Str("event_type", string(event.EventType())).
			Msg("delivery failed")
	}
}
