package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrAuctionInProgress = errors.New("another player is still under auction")
var ErrNoActivePlayer = errors.New("no player under auction")
var ErrNoLeadingTeam = errors.New("no leading team")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnknownTeam = errors.New("unknown team")
var ErrPlayerNotAvailable = errors.New("player not available")
var ErrDuplicateOperation = errors.New("duplicate operation")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrNoAvailablePlayers = errors.New("no players left in the pool")
var ErrNoUnsoldPlayers = errors.New("no unsold players to replay")
var ErrMaxRoundsReached = errors.New("maximum rounds reached")
var ErrJumpNeedsSequential = errors.New("jump is only valid in sequential mode")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ValidationError carries the structured verdict of a rejected bid so the
// caller can surface the exact rule that fired.
type ValidationError struct {
	Verdict Verdict
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bid rejected (%s): %s", e.Verdict.RuleID, e.Verdict.Message)
}

// Auction is the authoritative ledger: players, teams, the bid in flight
// and the round counter. It is not safe for concurrent use; the session
// actor owns one instance and serializes every call through its mailbox.
type Auction struct {
	cfg Config

	players map[string]*Player
	order   []string // registration order, immutable; jump-to addresses it
	queue   []string // live Available queue, head bids next in sequential mode

	teams     map[string]*Team
	teamOrder []string

	mode          Mode
	currentID     string
	currentBid    int64
	leadingTeamID string
	lastBidTeamID string
	history       []BidEntry

	sold   map[string]SoldRecord
	unsold map[string]int // player id -> round it went unsold in
	round  int

	now  func() time.Time
	pick func(n int) int // random index draw, injectable for tests
}

func NewAuction(cfg Config, players []Player, teams []Team) (*Auction, error) {
	if len(players) == 0 {
		return nil, errors.New("auction needs at least one player")
	}
	if len(teams) == 0 {
		return nil, errors.New("auction needs at least one team")
	}

	a := &Auction{
		cfg:     cfg,
		players: make(map[string]*Player, len(players)),
		teams:   make(map[string]*Team, len(teams)),
		mode:    ModeSequential,
		sold:    make(map[string]SoldRecord),
		unsold:  make(map[string]int),
		round:   1,
		now:     time.Now,
		pick:    randIndex,
	}

	for _, p := range players {
		if p.ID == "" {
			return nil, errors.New("player with empty id")
		}
		if _, dup := a.players[p.ID]; dup {
			return nil, fmt.Errorf("duplicate player id %q", p.ID)
		}
		cp := p
		cp.Status = StatusAvailable
		a.players[cp.ID] = &cp
		a.order = append(a.order, cp.ID)
		a.queue = append(a.queue, cp.ID)
	}
	for _, t := range teams {
		if t.ID == "" {
			return nil, errors.New("team with empty id")
		}
		if _, dup := a.teams[t.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %q", t.ID)
		}
		ct := t
		ct.RemainingPurse = ct.Allocated
		ct.PlayersBought = 0
		ct.UnderAge = 0
		ct.HighestBid = 0
		a.teams[ct.ID] = &ct
		a.teamOrder = append(a.teamOrder, ct.ID)
	}
	return a, nil
}

// SelectPlayer puts an Available player under auction. Selecting the player
// that is already current is a duplicate no-op; selecting a different one
// while an auction is unresolved is rejected so an in-flight auction can
// never be dropped silently.
func (a *Auction) SelectPlayer(id string) (Event, error) {
	if a.currentID == id && id != "" {
		return Event{}, ErrDuplicateOperation
	}
	if a.currentID != "" {
		return Event{}, ErrAuctionInProgress
	}
	p, ok := a.players[id]
	if !ok {
		return Event{}, ErrUnknownPlayer
	}
	if p.Status != StatusAvailable {
		return Event{}, ErrPlayerNotAvailable
	}

	a.removeFromQueue(id)
	p.Status = StatusCurrent
	a.currentID = id
	a.currentBid = p.BasePrice
	a.leadingTeamID = ""
	a.lastBidTeamID = ""
	a.history = nil

	return Event{Type: EvtPlayerSelected, PlayerID: id, Amount: p.BasePrice, Round: a.round}, nil
}

// RaiseBid applies one or more increment steps for a team. The same team
// may not raise twice in a row; affordability is checked by the rules
// engine. On success the entry lands in the bounded history.
func (a *Auction) RaiseBid(teamID string, steps int) (Event, error) {
	if a.currentID == "" {
		return Event{}, ErrNoActivePlayer
	}
	t, ok := a.teams[teamID]
	if !ok {
		return Event{}, ErrUnknownTeam
	}
	if steps < 1 {
		steps = 1
	}

	if len(a.history) > 0 && teamID == a.lastBidTeamID {
		return Event{}, &ValidationError{Verdict: reject(RuleAlternation,
			fmt.Sprintf("%s holds the leading bid and must wait for another team", t.Name))}
	}

	amount := a.currentBid + a.cfg.BidIncrement*int64(steps)
	if v := ValidateBid(a.cfg, *t, amount, *a.players[a.currentID]); !v.Valid {
		return Event{}, &ValidationError{Verdict: v}
	}

	a.pushBid(BidEntry{TeamID: teamID, Amount: amount, At: a.now()})
	a.currentBid = amount
	a.leadingTeamID = teamID
	a.lastBidTeamID = teamID

	return Event{Type: EvtBidRaised, PlayerID: a.currentID, TeamID: teamID, Amount: amount, Round: a.round}, nil
}

// MarkSold resolves the current player to the leading team and debits the
// purse. id may be empty (meaning the current player); a player already in
// the sold set is a duplicate no-op so redelivered sale commands can never
// debit twice.
func (a *Auction) MarkSold(id string) (SoldRecord, Event, error) {
	if id == "" {
		id = a.currentID
	}
	if rec, dup := a.sold[id]; dup {
		return rec, Event{}, ErrDuplicateOperation
	}
	if a.currentID == "" {
		return SoldRecord{}, Event{}, ErrNoActivePlayer
	}
	if id != a.currentID {
		return SoldRecord{}, Event{}, ErrPlayerNotAvailable
	}
	if a.leadingTeamID == "" {
		return SoldRecord{}, Event{}, ErrNoLeadingTeam
	}

	p := a.players[a.currentID]
	t := a.teams[a.leadingTeamID]

	rec := SoldRecord{PlayerID: p.ID, TeamID: t.ID, Amount: a.currentBid, At: a.now()}
	a.sold[p.ID] = rec
	t.RemainingPurse -= rec.Amount
	t.PlayersBought++
	if p.Age != nil && *p.Age < a.cfg.UnderAgeLimit {
		t.UnderAge++
	}
	if rec.Amount > t.HighestBid {
		t.HighestBid = rec.Amount
	}
	delete(a.unsold, p.ID) // stale record from an earlier round
	p.Status = StatusSold
	a.clearCurrent()

	return rec, Event{Type: EvtPlayerSold, PlayerID: rec.PlayerID, TeamID: rec.TeamID, Amount: rec.Amount, Round: a.round}, nil
}

// MarkUnsold parks the current player in the unsold pool, tagged with the
// round it fell through in. Duplicate deliveries are no-ops.
func (a *Auction) MarkUnsold(id string) (Event, error) {
	if id == "" {
		id = a.currentID
	}
	if _, dup := a.sold[id]; dup {
		return Event{}, ErrDuplicateOperation
	}
	if _, dup := a.unsold[id]; dup {
		return Event{}, ErrDuplicateOperation
	}
	if a.currentID == "" {
		return Event{}, ErrNoActivePlayer
	}
	if id != a.currentID {
		return Event{}, ErrPlayerNotAvailable
	}

	p := a.players[a.currentID]
	a.unsold[p.ID] = a.round
	p.Status = StatusUnsold
	a.clearCurrent()

	return Event{Type: EvtPlayerUnsold, PlayerID: p.ID, Round: a.round}, nil
}

// StopBid records that a team withdraws from raising on the current player.
// Informational only: no ledger state changes.
func (a *Auction) StopBid(teamID string) (Event, error) {
	if a.currentID == "" {
		return Event{}, ErrNoActivePlayer
	}
	if _, ok := a.teams[teamID]; !ok {
		return Event{}, ErrUnknownTeam
	}
	return Event{Type: EvtBidStopped, PlayerID: a.currentID, TeamID: teamID, Round: a.round}, nil
}

func (a *Auction) clearCurrent() {
	a.currentID = ""
	a.currentBid = 0
	a.leadingTeamID = ""
	a.lastBidTeamID = ""
	a.history = nil
}

func (a *Auction) removeFromQueue(id string) {
	for i, qid := range a.queue {
		if qid == id {
			a.queue = append(a.queue[:i], a.queue[i+1:]...)
			return
		}
	}
}

// MaxBid exposes the rules-engine affordability limit for one team.
func (a *Auction) MaxBid(teamID string) (int64, error) {
	t, ok := a.teams[teamID]
	if !ok {
		return 0, ErrUnknownTeam
	}
	return CalculateMaxBid(a.cfg, *t), nil
}

// TeamHealth exposes the ok/warning/danger indicator for one team.
func (a *Auction) TeamHealth(teamID string) (Health, error) {
	t, ok := a.teams[teamID]
	if !ok {
		return "", ErrUnknownTeam
	}
	return TeamStatus(a.cfg, *t, a.currentBid), nil
}

func (a *Auction) CurrentPlayer() *Player {
	if a.currentID == "" {
		return nil
	}
	cp := *a.players[a.currentID]
	return &cp
}

func (a *Auction) CurrentBid() int64      { return a.currentBid }
func (a *Auction) LeadingTeamID() string  { return a.leadingTeamID }
func (a *Auction) LastBidTeamID() string  { return a.lastBidTeamID }
func (a *Auction) Round() int             { return a.round }
func (a *Auction) Mode() Mode             { return a.mode }
func (a *Auction) AvailableCount() int    { return len(a.queue) }
func (a *Auction) UnsoldCount() int       { return len(a.unsold) }
func (a *Auction) Config() Config         { return a.cfg }

func (a *Auction) Team(id string) (Team, bool) {
	t, ok := a.teams[id]
	if !ok {
		return Team{}, false
	}
	return *t, true
}

// Teams returns every team in registration order, by value.
func (a *Auction) Teams() []Team {
	out := make([]Team, 0, len(a.teamOrder))
	for _, id := range a.teamOrder {
		out = append(out, *a.teams[id])
	}
	return out
}

func (a *Auction) Player(id string) (Player, bool) {
	p, ok := a.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (a *Auction) History() []BidEntry {
	out := make([]BidEntry, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Auction) SoldRecord(id string) (SoldRecord, bool) {
	rec, ok := a.sold[id]
	return rec, ok
}
