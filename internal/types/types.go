package types

import "github.com/cricbid/auction-backend/pkg/types"

// ClientMessage is what a websocket device sends: bid intents only, never
// direct state mutations.
type ClientMessage struct {
	Type     string `json:"type"` // "RaiseBid" | "StopBid"
	TeamID   string `json:"team_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
}

type ServerMessage struct {
	Type     string                 `json:"type"` // "Snapshot" | "Error"
	Snapshot *types.AuctionSnapshot `json:"snapshot,omitempty"`
	Error    string                 `json:"error,omitempty"`
}
