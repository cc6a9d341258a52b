package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/publisher"
	"github.com/rs/zerolog/log"
)

// Phase is the room's position in the waiting/racing cycle
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseRacing  Phase = "racing"
)

// Config holds configuration for a room
type Config struct {
	MinParticipants int
	Paragraphs      []string
	Clock           clockwork.Clock
	Publisher       publisher.EventPublisher
}

// DefaultConfig returns default room configuration
func DefaultConfig() Config {
	return Config{
		MinParticipants: 2,
		Paragraphs:      DefaultParagraphs,
		Clock:           clockwork.NewRealClock(),
		Publisher:       publisher.NoopPublisher{},
	}
}

type command struct {
	fn   func()
	done chan struct{}
}

// Room is the single race room. All state below the command channel is owned by
// the Run goroutine; every exported method is applied there one at a time.
type Room struct {
	cmdCh chan command
	done  chan struct{}

	clock           clockwork.Clock
	pool            *ParagraphPool
	publisher       publisher.EventPublisher
	minParticipants int

	runCtx    context.Context
	phase     Phase
	paragraph string
	raceID    uuid.UUID
	startedAt time.Time
	finishers int
	registry  *registry
	active    map[uuid.UUID]struct{}
	waiting   map[uuid.UUID]struct{}
}

// New creates a room in the waiting phase. Run must be called before use.
func New(config Config) (*Room, error) {
	if config.MinParticipants < 2 {
		return nil, fmt.Errorf("min participants must be at least 2, got %d", config.MinParticipants)
	}
	pool, err := NewParagraphPool(config.Paragraphs)
	if err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Publisher == nil {
		config.Publisher = publisher.NoopPublisher{}
	}

	return &Room{
		cmdCh:           make(chan command),
		done:            make(chan struct{}),
		clock:           config.Clock,
		pool:            pool,
		publisher:       config.Publisher,
		minParticipants: config.MinParticipants,
		runCtx:          context.Background(),
		phase:           PhaseWaiting,
		registry:        newRegistry(),
		active:          make(map[uuid.UUID]struct{}),
		waiting:         make(map[uuid.UUID]struct{}),
	}, nil
}

// Run applies commands until ctx is cancelled
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	log.Info().Int("min_participants", r.minParticipants).Msg("room started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("room shutting down")
			return
		case cmd := <-r.cmdCh:
			r.runCtx = ctx
			cmd.fn()
			close(cmd.done)
		}
	}
}

// Done is closed once Run has returned
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case r.cmdCh <- cmd:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted the command always runs to completion.
	<-cmd.done
	return nil
}

// Join registers a participant in the waiting set and returns its identity
func (r *Room) Join(ctx context.Context, name string, sender Sender) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.do(ctx, func() {
		id = r.join(name, sender)
	})
	return id, err
}

// Leave removes a participant. Unknown identities are ignored.
func (r *Room) Leave(ctx context.Context, id uuid.UUID) error {
	return r.do(ctx, func() {
		r.leave(id)
	})
}

// StartRace starts a race on behalf of requester. A rejected request is also
// reported to the requester as an error event.
func (r *Room) StartRace(ctx context.Context, requester uuid.UUID) error {
	var startErr error
	if err := r.do(ctx, func() {
		startErr = r.tryStartRace(requester)
	}); err != nil {
		return err
	}
	return startErr
}

// ReportProgress records a progress report and relays it to the current audience.
// Only racers can finish. Reports from unknown participants are dropped without error.
func (r *Room) ReportProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	return r.do(ctx, func() {
		r.reportProgress(id, progress)
	})
}

// Lookup returns a copy of a participant record
func (r *Room) Lookup(ctx context.Context, id uuid.UUID) (Participant, error) {
	var (
		p  Participant
		ok bool
	)
	if err := r.do(ctx, func() {
		var rec *Participant
		if rec, ok = r.registry.get(id); ok {
			p = *rec
			p.sender = nil
		}
	}); err != nil {
		return Participant{}, err
	}
	if !ok {
		return Participant{}, fmt.Errorf("lookup %s: %w", id, ErrUnknownParticipant)
	}
	return p, nil
}

// ParticipantView is a read-only participant entry of a Snapshot
type ParticipantView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
	Finished bool    `json:"finished"`
	Rank     int     `json:"rank"`
	Active   bool    `json:"active"`
}

// Snapshot is a consistent view of the room
type Snapshot struct {
	Phase        Phase             `json:"phase"`
	RaceID       string            `json:"race_id,omitempty"`
	Paragraph    string            `json:"paragraph,omitempty"`
	ActiveCount  int               `json:"active_count"`
	WaitingCount int               `json:"waiting_count"`
	Participants []ParticipantView `json:"participants"`
}

// Snapshot returns a consistent copy of the room state
func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := r.do(ctx, func() {
		s = Snapshot{
			Phase:        r.phase,
			Paragraph:    r.paragraph,
			ActiveCount:  len(r.active),
			WaitingCount: len(r.waiting),
			Participants: make([]ParticipantView, 0, r.registry.len()),
		}
		if r.phase == PhaseRacing {
			s.RaceID = r.raceID.String()
		}
		for _, p := range r.registry.all() {
			_, active := r.active[p.ID]
			s.Participants = append(s.Participants, ParticipantView{
				ID:       p.ID.String(),
				Name:     p.Name,
				Progress: p.Progress,
				Finished: p.Finished,
				Rank:     p.Rank,
				Active:   active,
			})
		}
	})
	return s, err
}

func (r *Room) join(name string, sender Sender) uuid.UUID {
	p := &Participant{ID: uuid.New(), Name: name, sender: sender}
	r.registry.add(p)
	r.waiting[p.ID] = struct{}{}

	players := make([]events.PlayerSummary, 0, r.registry.len())
	for _, other := range r.registry.all() {
		players = append(players, events.PlayerSummary{Name: other.Name, Progress: other.Progress})
	}
	r.deliver(p, events.NewPlayersList(players, r.phase == PhaseRacing))
	r.broadcast(events.NewNewPlayer(name))

	log.Info().
		Str("participant_id", p.ID.String()).
		Str("player_name", name).
		Str("phase", string(r.phase)).
		Int("waiting", len(r.waiting)).
		Msg("participant joined")

	return p.ID
}

func (r *Room) leave(id uuid.UUID) {
	p, ok := r.registry.remove(id)
	if !ok {
		return
	}
	delete(r.active, id)
	delete(r.waiting, id)

	r.broadcast(events.NewPlayerDisconnected(p.Name))

	log.Info().
		Str("participant_id", id.String()).
		Str("player_name", p.Name).
		Str("phase", string(r.phase)).
		Msg("participant left")

	// A leave can be the last thing a race was waiting on.
	if r.phase == PhaseRacing && r.allActiveFinished() {
		r.finishRace()
	}
}

func (r *Room) tryStartRace(requester uuid.UUID) error {
	p, ok := r.registry.get(requester)
	if !ok {
		return fmt.Errorf("start race: %w", ErrUnknownParticipant)
	}

	if r.phase == PhaseRacing {
		r.deliver(p, events.NewError("A race is already in progress"))
		log.Warn().Str("participant_id", requester.String()).Msg("start rejected: race in progress")
		return ErrRaceInProgress
	}

	if len(r.waiting) < r.minParticipants {
		r.deliver(p, events.NewError(fmt.Sprintf("Need at least %d players to start the game", r.minParticipants)))
		log.Warn().
			Str("participant_id", requester.String()).
			Int("waiting", len(r.waiting)).
			Msg("start rejected: too few participants")
		return ErrTooFewParticipants
	}

	r.active = r.waiting
	r.waiting = make(map[uuid.UUID]struct{})
	r.paragraph = r.pool.Pick()
	r.raceID = uuid.New()
	r.startedAt = r.clock.Now()
	r.finishers = 0

	racers := r.registry.members(r.active)
	names := make([]string, 0, len(racers))
	for _, racer := range racers {
		racer.reset()
		names = append(names, racer.Name)
	}
	r.phase = PhaseRacing

	r.broadcast(events.NewGameStart(r.raceID.String(), r.paragraph))
	r.publish(publisher.RaceEventTypeStarted, publisher.RaceStartedPayload{
		RaceID:       r.raceID.String(),
		Paragraph:    r.paragraph,
		Participants: names,
		StartedAt:    r.startedAt,
	})

	log.Info().
		Str("race_id", r.raceID.String()).
		Str("requested_by", requester.String()).
		Int("participants", len(racers)).
		Msg("race started")

	return nil
}

func (r *Room) publish(eventType publisher.RaceEventType, payload interface{}) {
	event, err := publisher.NewRaceEvent(eventType, r.raceID, r.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build race event")
		return
	}
	if err := r.publisher.Publish(r.runCtx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Str("race_id", r.raceID.String()).
			Msg("failed to publish race event")
	}
}
