package room

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/publisher"
	"github.com/rs/zerolog/log"
)

// FinishThreshold is the progress value at which a participant has finished
const FinishThreshold = 100

func (r *Room) reportProgress(id uuid.UUID, progress float64) {
	p, ok := r.registry.get(id)
	if !ok {
		log.Debug().Str("participant_id", id.String()).Msg("progress from unknown participant dropped")
		return
	}

	p.Progress = progress

	// Only racers can finish; everyone else just has their progress relayed.
	_, racing := r.active[id]
	if racing && r.phase == PhaseRacing && progress >= FinishThreshold && !p.Finished {
		// Rank and finished flag are written in the same step.
		r.finishers++
		p.Finished = true
		p.Rank = r.finishers
		p.Elapsed = r.clock.Since(r.startedAt)

		r.broadcast(events.NewPlayerFinished(p.Name, p.Rank, p.Elapsed.Milliseconds()))

		log.Info().
			Str("race_id", r.raceID.String()).
			Str("participant_id", id.String()).
			Str("player_name", p.Name).
			Int("rank", p.Rank).
			Dur("elapsed", p.Elapsed).
			Msg("participant finished")

		if r.allActiveFinished() {
			r.finishRace()
			return
		}
	}

	r.broadcast(events.NewProgressUpdate(p.Name, progress))
}

// allActiveFinished is vacuously true for an empty active set
func (r *Room) allActiveFinished() bool {
	for id := range r.active {
		if p, ok := r.registry.get(id); ok && !p.Finished {
			return false
		}
	}
	return true
}

func (r *Room) rankings() []events.Ranking {
	racers := r.registry.members(r.active)
	rankings := make([]events.Ranking, 0, len(racers))
	for _, p := range racers {
		rankings = append(rankings, events.Ranking{Name: p.Name, Rank: p.Rank})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Rank < rankings[j].Rank
	})
	return rankings
}

// finishRace broadcasts the standings to the racers and moves them back to the
// waiting set. Progress fields are kept until the next start.
func (r *Room) finishRace() {
	rankings := r.rankings()
	r.broadcast(events.NewGameOver(rankings))

	finishedAt := r.clock.Now()
	r.publish(publisher.RaceEventTypeFinished, publisher.RaceFinishedPayload{
		RaceID:     r.raceID.String(),
		Rankings:   rankings,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(r.startedAt).String(),
	})

	log.Info().
		Str("race_id", r.raceID.String()).
		Int("finishers", len(rankings)).
		Dur("duration", finishedAt.Sub(r.startedAt)).
		Msg("race finished")

	for id := range r.active {
		r.waiting[id] = struct{}{}
	}
	r.active = make(map[uuid.UUID]struct{})
	r.paragraph = ""
	r.raceID = uuid.Nil
	r.phase = PhaseWaiting
}
