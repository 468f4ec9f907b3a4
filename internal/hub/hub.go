// Package hub keeps the registry of live auction sessions, one per join
// code. Exactly one authoritative session exists per code.
package hub

import (
	"context"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code    string
	Auction *engine.Auction
	Reply   chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     session.Options
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts the registry loop. opts are handed to every session the
// hub creates (transport, recorder, logger, clock).
func NewHub(parent context.Context, opts session.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, msg.Code, msg.Auction, h.opts)
				h.sessions[msg.Code] = s
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Inbox() <- session.Shutdown{}
				}
				delete(h.sessions, msg.Code)

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}
