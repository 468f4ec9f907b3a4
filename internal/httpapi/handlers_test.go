package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/hub"
	"github.com/cricbid/auction-backend/internal/session"
	"github.com/cricbid/auction-backend/pkg/types"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, session.Options{Logger: zap.NewNop()})
	return SetupRoutes(h, engine.DefaultConfig(), zap.NewNop())
}

func testRoster() types.Roster {
	return types.Roster{
		Players: []engine.Player{
			{ID: "p1", Name: "Player One", Role: engine.RoleBatsman, BasePrice: 100},
			{ID: "p2", Name: "Player Two", Role: engine.RoleBowler, BasePrice: 200},
		},
		Teams: []engine.Team{
			{ID: "csk", Name: "Chennai", Allocated: 100000, PlayerCap: 11},
			{ID: "mi", Name: "Mumbai", Allocated: 100000, PlayerCap: 11},
		},
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createAuction(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auctions", testRoster())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create auction: status %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if out["code"] == "" {
		t.Fatal("empty join code")
	}
	return out["code"]
}

func TestCreateAuction_BadRoster(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auctions", types.Roster{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rec.Code)
	}
}

func TestCommand_FullFlow(t *testing.T) {
	router := newTestRouter(t)
	code := createAuction(t, router)
	cmdPath := fmt.Sprintf("/auctions/%s/commands", code)

	rec := doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "next"})
	if rec.Code != http.StatusOK {
		t.Fatalf("next: status %d, body %s", rec.Code, rec.Body.String())
	}
	var res commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Snapshot == nil || res.Snapshot.CurrentPlayer == nil || res.Snapshot.CurrentPlayer.ID != "p1" {
		t.Fatalf("expected p1 under auction, got %+v", res.Snapshot)
	}

	rec = doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "raise", TeamID: "csk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("raise: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Same team raising twice in a row must come back as a structured
	// rule rejection, not a plain 500.
	rec = doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "raise", TeamID: "csk"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("repeat raise: status %d, want 422", rec.Code)
	}
	res = commandResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Verdict == nil || res.Verdict.RuleID != engine.RuleAlternation {
		t.Fatalf("expected alternation verdict, got %+v", res.Verdict)
	}

	rec = doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "sell"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sell: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Redelivered sale for the same player is a flagged no-op.
	rec = doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "sell", PlayerID: "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate sell: status %d, body %s", rec.Code, rec.Body.String())
	}
	res = commandResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate flag, got %+v", res)
	}
}

func TestCommand_IllegalTransitionIs409(t *testing.T) {
	router := newTestRouter(t)
	code := createAuction(t, router)
	cmdPath := fmt.Sprintf("/auctions/%s/commands", code)

	// Selling with nobody under auction is a state error, not a rule one.
	rec := doJSON(t, router, http.MethodPost, cmdPath, commandRequest{Type: "sell"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rec.Code)
	}
}

func TestCommand_UnknownCode(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auctions/NOPE42/commands", commandRequest{Type: "next"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestState_ReportsMaxBids(t *testing.T) {
	router := newTestRouter(t)
	code := createAuction(t, router)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/auctions/%s/state", code), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: status %d", rec.Code)
	}
	var view session.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	// 100000 purse, 11 slots: 100000 - 10*100.
	if view.MaxBids["csk"] != 99000 {
		t.Fatalf("csk max bid %d, want 99000", view.MaxBids["csk"])
	}
	if view.Health["csk"] != engine.HealthOK {
		t.Fatalf("csk health %q, want ok", view.Health["csk"])
	}
}

func TestMaxBidEndpoint(t *testing.T) {
	router := newTestRouter(t)
	code := createAuction(t, router)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/auctions/%s/teams/mi/maxbid", code), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("maxbid: status %d", rec.Code)
	}
	var out struct {
		TeamID string `json:"team_id"`
		MaxBid int64  `json:"max_bid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MaxBid != 99000 {
		t.Fatalf("mi max bid %d, want 99000", out.MaxBid)
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/auctions/%s/teams/nobody/maxbid", code), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown team: status %d, want 404", rec.Code)
	}
}

func TestGenerateCode_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q length %d", code, len(code))
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not varying")
	}
}
