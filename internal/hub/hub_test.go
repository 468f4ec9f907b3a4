package hub

import (
	"context"
	"testing"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/session"
)

func testAuction(t *testing.T) *engine.Auction {
	t.Helper()
	a, err := engine.NewAuction(engine.DefaultConfig(),
		[]engine.Player{{ID: "p1", Name: "Askey", Role: engine.RoleBatsman, BasePrice: 100}},
		[]engine.Team{{ID: "csk", Name: "Chennai", Allocated: 100000, PlayerCap: 11}})
	if err != nil {
		t.Fatalf("NewAuction: %v", err)
	}
	return a
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, session.Options{})
	reply := make(chan *session.Session, 1)

	h.Inbox() <- CreateSession{Code: "AUC123", Auction: testAuction(t), Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetSession{Code: "AUC123", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
}

func TestHub_RemoveForgetsSession(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, session.Options{})
	reply := make(chan *session.Session, 1)

	h.Inbox() <- CreateSession{Code: "AUC124", Auction: testAuction(t), Reply: reply}
	if <-reply == nil {
		t.Fatalf("create returned nil")
	}

	h.Inbox() <- RemoveSession{Code: "AUC124"}
	h.Inbox() <- GetSession{Code: "AUC124", Reply: reply}
	if <-reply != nil {
		t.Fatalf("expected session to be gone")
	}
}
