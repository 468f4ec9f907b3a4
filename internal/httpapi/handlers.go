package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/hub"
	"github.com/cricbid/auction-backend/internal/session"
	"github.com/cricbid/auction-backend/pkg/types"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateAuction takes the one-shot roster upload and starts an
// authoritative session under a fresh join code.
func CreateAuction(h *hub.Hub, cfg engine.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var roster types.Roster
		if err := json.NewDecoder(r.Body).Decode(&roster); err != nil {
			http.Error(w, "bad roster payload", http.StatusBadRequest)
			return
		}

		auction, err := engine.NewAuction(cfg, roster.Players, roster.Teams)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *session.Session, 1)
			h.Inbox() <- hub.GetSession{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Info("collision on code, regenerating")
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.CreateSession{Code: code, Auction: auction, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create auction", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"code": code})
	}
}

// commandRequest is the operator wire format; each type maps 1:1 to a
// ledger operation.
type commandRequest struct {
	Type     string `json:"type"`
	TeamID   string `json:"team_id,omitempty"`
	Steps    int    `json:"steps,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Position int    `json:"position,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type commandResponse struct {
	Duplicate bool                   `json:"duplicate,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Verdict   *engine.Verdict        `json:"verdict,omitempty"`
	Snapshot  *types.AuctionSnapshot `json:"snapshot,omitempty"`
}

// Command dispatches one operator command into the session mailbox and
// translates the structured result onto HTTP.
func Command(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := findSession(h, chi.URLParam(r, "code"))
		if s == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad command payload", http.StatusBadRequest)
			return
		}

		cmd := session.Command{
			Type:     session.CommandType(req.Type),
			TeamID:   req.TeamID,
			Steps:    req.Steps,
			PlayerID: req.PlayerID,
			Position: req.Position,
			Mode:     engine.Mode(req.Mode),
		}

		reply := make(chan session.Result, 1)
		select {
		case s.Inbox() <- session.FromOperator{Cmd: cmd, Reply: reply}:
		case <-time.After(2 * time.Second):
			http.Error(w, "auction busy", http.StatusServiceUnavailable)
			return
		}
		res := <-reply

		switch {
		case res.Err == nil && !res.Duplicate:
			writeJSON(w, http.StatusOK, commandResponse{Snapshot: &res.Snapshot})
		case res.Duplicate:
			// Idempotent no-op, not an error.
			writeJSON(w, http.StatusOK, commandResponse{Duplicate: true, Snapshot: &res.Snapshot})
		case res.Verdict != nil:
			writeJSON(w, http.StatusUnprocessableEntity, commandResponse{Error: res.Err.Error(), Verdict: res.Verdict})
		case errors.Is(res.Err, engine.ErrUnknownPlayer), errors.Is(res.Err, engine.ErrUnknownTeam):
			writeJSON(w, http.StatusNotFound, commandResponse{Error: res.Err.Error()})
		case errors.Is(res.Err, engine.ErrUnsupportedCommand):
			writeJSON(w, http.StatusBadRequest, commandResponse{Error: res.Err.Error()})
		default:
			// Illegal state transition: sell without a leader, jump in
			// random mode, replay past the round cap, and so on.
			writeJSON(w, http.StatusConflict, commandResponse{Error: res.Err.Error()})
		}
	}
}

// State exposes the operator console view: snapshot plus per-team max
// bids and purse health.
func State(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := findSession(h, chi.URLParam(r, "code"))
		if s == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		reply := make(chan session.View, 1)
		s.Inbox() <- session.GetState{Reply: reply}
		writeJSON(w, http.StatusOK, <-reply)
	}
}

// MaxBid answers the affordability query for one team: the most it can
// bid right now while still filling its remaining roster slots.
func MaxBid(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := findSession(h, chi.URLParam(r, "code"))
		if s == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		reply := make(chan session.View, 1)
		s.Inbox() <- session.GetState{Reply: reply}
		view := <-reply

		teamID := chi.URLParam(r, "team")
		mb, ok := view.MaxBids[teamID]
		if !ok {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"team_id": teamID,
			"max_bid": mb,
			"health":  view.Health[teamID],
		})
	}
}

// Reset publishes the fleet-wide session reset signal.
func Reset(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := findSession(h, chi.URLParam(r, "code"))
		if s == nil {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}

		reply := make(chan session.Result, 1)
		s.Inbox() <- session.FromOperator{Cmd: session.Command{Type: session.CmdReset}, Reply: reply}
		res := <-reply
		if res.Err != nil {
			writeJSON(w, http.StatusServiceUnavailable, commandResponse{Error: res.Err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, commandResponse{Snapshot: &res.Snapshot})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func findSession(h *hub.Hub, code string) *session.Session {
	if code == "" {
		return nil
	}
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
	return <-reply
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
