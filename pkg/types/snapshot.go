package types

import (
	"time"

	"github.com/cricbid/auction-backend/internal/engine"
)

// StopNotice is the informational record of a team withdrawing from the
// current player. It changes no ledger state; it rides along on the
// snapshot so every device can render it.
type StopNotice struct {
	TeamID   string    `json:"team_id"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
}

// AuctionSnapshot is the broadcastable projection of the ledger: the only
// state remote devices ever see. One writer (the authoritative session),
// many readers; LastUpdate increases monotonically so last-write-wins on
// the shared store is safe.
type AuctionSnapshot struct {
	SessionID      string         `json:"session_id"`
	Code           string         `json:"code"`
	Version        int            `json:"version"`
	Active         bool           `json:"active"`
	Round          int            `json:"round"`
	Mode           engine.Mode    `json:"mode"`
	BidIncrement   int64          `json:"bid_increment"`
	CurrentPlayer  *engine.Player `json:"current_player,omitempty"`
	CurrentBid     int64          `json:"current_bid"`
	LeadingTeamID  string         `json:"leading_team_id,omitempty"`
	Teams          []engine.Team  `json:"teams"`
	AvailableCount int            `json:"available_count"`
	UnsoldCount    int            `json:"unsold_count"`
	LastStop       *StopNotice    `json:"last_stop,omitempty"`
	LastUpdate     time.Time      `json:"last_update"`
}

// Roster is the one-shot input from the roster source collaborator.
type Roster struct {
	Players []engine.Player `json:"players"`
	Teams   []engine.Team   `json:"teams"`
}
