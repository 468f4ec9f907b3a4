package types

import "time"

type IntentType string

const (
	IntentRaise IntentType = "raise"
	IntentStop  IntentType = "stop"
)

// BidIntent is a proposal from a remote device. It becomes a ledger
// mutation only after the authoritative session replays it through the
// same validation as local input. The id deduplicates at-least-once
// redelivery.
type BidIntent struct {
	ID       string     `json:"id"`
	Type     IntentType `json:"type"`
	TeamID   string     `json:"team_id"`
	PlayerID string     `json:"player_id,omitempty"`
	Amount   int64      `json:"amount,omitempty"`
	SenderID string     `json:"sender_id,omitempty"`
	At       time.Time  `json:"at"`
}
