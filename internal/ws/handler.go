package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cricbid/auction-backend/internal/hub"
	"github.com/cricbid/auction-backend/internal/session"
	itypes "github.com/cricbid/auction-backend/internal/types"
	"github.com/cricbid/auction-backend/pkg/types"
)

// Handler upgrades viewer/bidder connections. Clients only ever receive
// snapshots and submit bid intents; every mutation is arbitrated by the
// session actor.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		teamID := r.URL.Query().Get("team")
		senderID := r.URL.Query().Get("device")
		if senderID == "" {
			senderID = randID(8)
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.AuctionSnapshot, 8)
		clientID := senderID + "-" + randID(4)

		s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Leave{ClientID: clientID} }()

		// lastPlayer tracks the player this client last saw under auction,
		// so its intents can be pinned to it.
		var (
			mu         sync.Mutex
			lastPlayer string
		)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				mu.Lock()
				if snap.CurrentPlayer != nil {
					lastPlayer = snap.CurrentPlayer.ID
				} else {
					lastPlayer = ""
				}
				mu.Unlock()

				msg := itypes.ServerMessage{Type: "Snapshot", Snapshot: &snap}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (session.Leave in defer):
				return
			}

			var cm itypes.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}
			if cm.SenderID == "" {
				cm.SenderID = senderID
			}
			if cm.TeamID == "" {
				cm.TeamID = teamID
			}

			mu.Lock()
			seenPlayer := lastPlayer
			mu.Unlock()

			intent, ok := toIntent(cm, seenPlayer)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			log.Debug("intent from websocket",
				zap.String("code", code),
				zap.String("type", string(intent.Type)),
				zap.String("team", intent.TeamID))
			s.Inbox() <- session.FromIntent{Intent: intent}
		}
	}
}

// toIntent maps a client message to a bid intent, pinned to the player the
// client last saw under auction (or the one it names). The session drops
// intents whose pin no longer matches the current player, so a raise that
// races a sale or selection is discarded rather than misapplied.
func toIntent(m itypes.ClientMessage, seenPlayerID string) (types.BidIntent, bool) {
	playerID := m.PlayerID
	if playerID == "" {
		playerID = seenPlayerID
	}

	base := types.BidIntent{
		ID:       uuid.NewString(),
		TeamID:   m.TeamID,
		PlayerID: playerID,
		SenderID: m.SenderID,
		At:       time.Now(),
	}

	switch m.Type {
	case "RaiseBid":
		if m.TeamID == "" || playerID == "" {
			return types.BidIntent{}, false
		}
		base.Type = types.IntentRaise
		return base, true
	case "StopBid":
		base.Type = types.IntentStop
		return base, true
	default:
		return types.BidIntent{}, false
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
