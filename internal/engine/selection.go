package engine

import "math/rand"

func randIndex(n int) int { return rand.Intn(n) }

// SetMode switches between sequential and random selection. Allowed at any
// point; it only affects which player NextPlayer picks.
func (a *Auction) SetMode(m Mode) error {
	switch m {
	case ModeSequential, ModeRandom:
		a.mode = m
		return nil
	default:
		return ErrUnsupportedCommand
	}
}

// NextPlayer selects the next player from the Available pool: the queue
// head in sequential mode, a uniform draw in random mode.
func (a *Auction) NextPlayer() (Event, error) {
	if a.currentID != "" {
		return Event{}, ErrAuctionInProgress
	}
	if len(a.queue) == 0 {
		return Event{}, ErrNoAvailablePlayers
	}

	id := a.queue[0]
	if a.mode == ModeRandom {
		id = a.queue[a.pick(len(a.queue))]
	}
	return a.SelectPlayer(id)
}

// JumpTo rotates the live queue so that the player at the given 1-based
// position in the original registration order bids next. Registration
// order is immutable, so operators keep a stable numeric addressing scheme
// no matter how many players have already left the queue. Only valid in
// sequential mode.
func (a *Auction) JumpTo(position int) (Player, error) {
	if a.mode != ModeSequential {
		return Player{}, ErrJumpNeedsSequential
	}
	if position < 1 || position > len(a.order) {
		return Player{}, ErrUnknownPlayer
	}

	id := a.order[position-1]
	p := a.players[id]
	if p.Status != StatusAvailable {
		return Player{}, ErrPlayerNotAvailable
	}

	for i, qid := range a.queue {
		if qid == id {
			a.queue = append(a.queue[i:], a.queue[:i]...)
			break
		}
	}
	return *p, nil
}

// StartNextRound returns every unsold player to the Available pool, in
// registration order, and advances the round counter.
func (a *Auction) StartNextRound() (Event, error) {
	if len(a.unsold) == 0 {
		return Event{}, ErrNoUnsoldPlayers
	}
	if a.round >= a.cfg.MaxRounds {
		return Event{}, ErrMaxRoundsReached
	}

	restored := 0
	for _, id := range a.order {
		if _, ok := a.unsold[id]; !ok {
			continue
		}
		a.players[id].Status = StatusAvailable
		a.queue = append(a.queue, id)
		restored++
	}
	clear(a.unsold)
	a.round++

	return Event{Type: EvtRoundStarted, Amount: int64(restored), Round: a.round}, nil
}
