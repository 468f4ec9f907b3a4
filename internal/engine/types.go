package engine

import "time"

type Role string

const (
	RoleBatsman      Role = "batsman"
	RoleBowler       Role = "bowler"
	RoleAllRounder   Role = "all_rounder"
	RoleWicketKeeper Role = "wicket_keeper"
)

// Status is the player lifecycle. A player is in exactly one status at any
// time; Unsold players may return to Available when a new round starts.
type Status string

const (
	StatusAvailable Status = "available"
	StatusCurrent   Status = "current"
	StatusSold      Status = "sold"
	StatusUnsold    Status = "unsold"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeRandom     Mode = "random"
)

type CareerStats struct {
	Matches        int     `json:"matches"`
	Runs           int     `json:"runs"`
	Wickets        int     `json:"wickets"`
	BattingAverage float64 `json:"batting_average"`
	EconomyRate    float64 `json:"economy_rate"`
}

type Player struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      Role        `json:"role"`
	BasePrice int64       `json:"base_price"`
	Age       *int        `json:"age,omitempty"`
	Stats     CareerStats `json:"stats"`
	Status    Status      `json:"status"`
}

type Team struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Allocated      int64  `json:"allocated"`
	RemainingPurse int64  `json:"remaining_purse"`
	PlayerCap      int    `json:"player_cap"`
	PlayersBought  int    `json:"players_bought"`
	UnderAge       int    `json:"under_age"`
	HighestBid     int64  `json:"highest_bid"`
}

// RemainingSlots is the number of roster spots the team still has to fill.
func (t Team) RemainingSlots() int { return t.PlayerCap - t.PlayersBought }

// BidEntry is one accepted bid on the current player. Append-only while the
// player is under auction; consumed by undo and the alternation check.
type BidEntry struct {
	TeamID string    `json:"team_id"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

type SoldRecord struct {
	PlayerID string    `json:"player_id"`
	TeamID   string    `json:"team_id"`
	Amount   int64     `json:"amount"`
	At       time.Time `json:"at"`
}

type EventType string

const (
	EvtPlayerSelected EventType = "PlayerSelected"
	EvtBidRaised      EventType = "BidRaised"
	EvtBidUndone      EventType = "BidUndone"
	EvtPlayerSold     EventType = "PlayerSold"
	EvtPlayerUnsold   EventType = "PlayerUnsold"
	EvtRoundStarted   EventType = "RoundStarted"
	EvtBidStopped     EventType = "BidStopped"
)

// Event describes one accepted ledger transition; the session uses it to
// drive broadcasting and best-effort persistence.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	TeamID   string    `json:"team_id,omitempty"`
	Amount   int64     `json:"amount,omitempty"`
	Round    int       `json:"round,omitempty"`
}
