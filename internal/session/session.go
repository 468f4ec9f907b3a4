// Package session hosts the authoritative auction actor. Local operator
// commands and remote bid intents both funnel into one mailbox, so ledger
// mutations are never interleaved even though delivery is asynchronous.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/store"
	"github.com/cricbid/auction-backend/internal/transport"
	"github.com/cricbid/auction-backend/pkg/types"
)

type Msg interface{ isSessionMsg() }

type CommandType string

// Operator commands map 1:1 to ledger operations.
const (
	CmdRaise     CommandType = "raise"
	CmdSell      CommandType = "sell"
	CmdUnsold    CommandType = "unsold"
	CmdNext      CommandType = "next"
	CmdSelect    CommandType = "select"
	CmdJump      CommandType = "jump"
	CmdUndo      CommandType = "undo"
	CmdNextRound CommandType = "next_round"
	CmdSetMode   CommandType = "set_mode"
	CmdStop      CommandType = "stop"
	CmdReset     CommandType = "reset"
)

type Command struct {
	Type     CommandType
	TeamID   string
	Steps    int
	PlayerID string
	Position int
	Mode     engine.Mode
}

// Result reports a command outcome. Verdict is set when a business rule
// rejected the command; Duplicate marks an idempotent no-op.
type Result struct {
	Err       error
	Verdict   *engine.Verdict
	Duplicate bool
	Snapshot  types.AuctionSnapshot
}

type FromOperator struct {
	Cmd   Command
	Reply chan Result
}

type FromIntent struct {
	Intent types.BidIntent
}

type Join struct {
	ClientID string
	Outbox   chan types.AuctionSnapshot
}

type Leave struct{ ClientID string }

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

type heartbeatTick struct{}

func (FromOperator) isSessionMsg()  {}
func (FromIntent) isSessionMsg()    {}
func (Join) isSessionMsg()          {}
func (Leave) isSessionMsg()         {}
func (GetState) isSessionMsg()      {}
func (Shutdown) isSessionMsg()      {}
func (heartbeatTick) isSessionMsg() {}

// View reflects internal state without data races; used by the HTTP state
// endpoint and tests.
type View struct {
	Version     int                      `json:"version"`
	NumClients  int                      `json:"num_clients"`
	SeenIntents int                      `json:"seen_intents"`
	Snapshot    types.AuctionSnapshot    `json:"snapshot"`
	MaxBids     map[string]int64         `json:"max_bids"`
	Health      map[string]engine.Health `json:"health"`
}

type Options struct {
	Transport      transport.Transport
	Recorder       store.Recorder
	Logger         *zap.Logger
	Clock          clockwork.Clock
	HeartbeatEvery time.Duration
}

type Session struct {
	code      string
	sessionID string
	inbox     chan Msg
	auction   *engine.Auction
	version   int
	clients   map[string]chan types.AuctionSnapshot
	seen      map[string]struct{}
	lastStop  *types.StopNotice
	lastSnap  types.AuctionSnapshot

	tr      transport.Transport
	rec     store.Recorder
	log     *zap.Logger
	clock   clockwork.Clock
	hbEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, code string, a *engine.Auction, opts Options) *Session {
	if opts.Transport == nil {
		opts.Transport = transport.NewInproc()
	}
	if opts.Recorder == nil {
		opts.Recorder = store.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.HeartbeatEvery <= 0 {
		opts.HeartbeatEvery = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		code:      code,
		sessionID: uuid.NewString(),
		inbox:     make(chan Msg, 64),
		auction:   a,
		clients:   make(map[string]chan types.AuctionSnapshot),
		seen:      make(map[string]struct{}),
		tr:        opts.Transport,
		rec:       opts.Recorder,
		log:       opts.Logger.With(zap.String("auction", code)),
		clock:     opts.Clock,
		hbEvery:   opts.HeartbeatEvery,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.lastSnap = s.snapshot()
	s.publish(s.lastSnap)

	go s.loop()
	go s.heartbeat()
	go s.consumeIntents()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }
func (s *Session) Code() string      { return s.code }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.lastSnap

			case Leave:
				// Close the outbox so the client's writer loop terminates.
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromOperator:
				msg.Reply <- s.apply(msg.Cmd)

			case FromIntent:
				s.applyIntent(msg.Intent)

			case GetState:
				msg.Reply <- s.view()

			case heartbeatTick:
				// Re-write the snapshot unchanged so readers can detect
				// liveness independent of mutation frequency. The
				// timestamp still moves forward for last-write-wins.
				s.lastSnap.LastUpdate = s.clock.Now()
				s.publish(s.lastSnap)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// apply runs one operator command against the ledger. Validate-then-apply:
// a rejected command leaves no partial mutation behind.
func (s *Session) apply(cmd Command) Result {
	var (
		evt engine.Event
		err error
	)

	switch cmd.Type {
	case CmdRaise:
		evt, err = s.auction.RaiseBid(cmd.TeamID, cmd.Steps)
	case CmdSell:
		_, evt, err = s.auction.MarkSold(cmd.PlayerID)
	case CmdUnsold:
		evt, err = s.auction.MarkUnsold(cmd.PlayerID)
	case CmdNext:
		evt, err = s.auction.NextPlayer()
	case CmdSelect:
		evt, err = s.auction.SelectPlayer(cmd.PlayerID)
	case CmdJump:
		_, err = s.auction.JumpTo(cmd.Position)
	case CmdUndo:
		evt, err = s.auction.Undo()
	case CmdNextRound:
		evt, err = s.auction.StartNextRound()
	case CmdSetMode:
		err = s.auction.SetMode(cmd.Mode)
	case CmdStop:
		evt, err = s.auction.StopBid(cmd.TeamID)
		if err == nil {
			s.lastStop = &types.StopNotice{TeamID: cmd.TeamID, PlayerID: evt.PlayerID, At: s.clock.Now()}
		}
	case CmdReset:
		err = s.reset()
	default:
		err = engine.ErrUnsupportedCommand
	}

	switch {
	case err == nil:
		s.commit(evt)
		return Result{Snapshot: s.lastSnap}

	case errors.Is(err, engine.ErrDuplicateOperation):
		s.log.Debug("duplicate operation ignored", zap.String("cmd", string(cmd.Type)))
		return Result{Duplicate: true, Snapshot: s.lastSnap}

	default:
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			s.log.Info("command rejected",
				zap.String("cmd", string(cmd.Type)),
				zap.String("rule", verr.Verdict.RuleID))
			return Result{Err: err, Verdict: &verr.Verdict, Snapshot: s.lastSnap}
		}
		s.log.Info("command rejected", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Err: err, Snapshot: s.lastSnap}
	}
}

// applyIntent replays a remote intent through the exact same command path
// as local input, after deduplicating on the intent id.
func (s *Session) applyIntent(intent types.BidIntent) {
	if _, dup := s.seen[intent.ID]; dup {
		s.log.Debug("duplicate intent delivery ignored", zap.String("intent", intent.ID))
		return
	}
	s.seen[intent.ID] = struct{}{}

	// An intent pinned to a player that is no longer current raced a sale
	// or selection; dropping it is the safe outcome.
	if intent.PlayerID != "" {
		cur := s.auction.CurrentPlayer()
		if cur == nil || cur.ID != intent.PlayerID {
			s.log.Info("stale intent dropped",
				zap.String("intent", intent.ID),
				zap.String("player", intent.PlayerID))
			return
		}
	}

	var res Result
	switch intent.Type {
	case types.IntentRaise:
		// A raise must be pinned to a player; without the pin the stale
		// check above cannot tell which player the sender meant.
		if intent.PlayerID == "" {
			s.log.Info("unpinned raise intent dropped", zap.String("intent", intent.ID))
			return
		}
		res = s.apply(Command{Type: CmdRaise, TeamID: intent.TeamID, Steps: 1})
	case types.IntentStop:
		res = s.apply(Command{Type: CmdStop, TeamID: intent.TeamID})
	default:
		s.log.Warn("unknown intent type", zap.String("intent", intent.ID), zap.String("type", string(intent.Type)))
		return
	}
	if res.Err != nil {
		s.log.Info("intent rejected",
			zap.String("intent", intent.ID),
			zap.String("team", intent.TeamID),
			zap.Error(res.Err))
	}
}

// commit publishes an accepted mutation: bump version, rebuild the
// snapshot, fan out to local clients, write the shared channel, and mirror
// to the persistence sink.
func (s *Session) commit(evt engine.Event) {
	s.version++
	s.lastSnap = s.snapshot()
	s.broadcast(s.lastSnap)
	s.publish(s.lastSnap)
	s.record(evt)
}

func (s *Session) snapshot() types.AuctionSnapshot {
	a := s.auction
	return types.AuctionSnapshot{
		SessionID:      s.sessionID,
		Code:           s.code,
		Version:        s.version,
		Active:         true,
		Round:          a.Round(),
		Mode:           a.Mode(),
		BidIncrement:   a.Config().BidIncrement,
		CurrentPlayer:  a.CurrentPlayer(),
		CurrentBid:     a.CurrentBid(),
		LeadingTeamID:  a.LeadingTeamID(),
		Teams:          a.Teams(),
		AvailableCount: a.AvailableCount(),
		UnsoldCount:    a.UnsoldCount(),
		LastStop:       s.lastStop,
		LastUpdate:     s.clock.Now(),
	}
}

func (s *Session) broadcast(snap types.AuctionSnapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) publish(snap types.AuctionSnapshot) {
	if err := s.tr.PublishSnapshot(s.ctx, s.code, snap); err != nil {
		// Local operation continues; the next write or heartbeat retries.
		s.log.Warn("snapshot publish failed, running local-only", zap.Error(err))
	}
}

// record mirrors an accepted transition to the sink, fire-and-forget.
func (s *Session) record(evt engine.Event) {
	switch evt.Type {
	case engine.EvtPlayerSold:
		rec, ok := s.auction.SoldRecord(evt.PlayerID)
		if !ok {
			return
		}
		teams := s.auction.Teams()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.rec.RecordSold(ctx, s.code, rec); err != nil {
				s.log.Error("record sold failed", zap.String("player", rec.PlayerID), zap.Error(err))
			}
			if err := s.rec.RecordTeams(ctx, s.code, teams); err != nil {
				s.log.Error("record teams failed", zap.Error(err))
			}
		}()

	case engine.EvtPlayerUnsold:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.rec.RecordUnsold(ctx, s.code, evt.PlayerID, evt.Round); err != nil {
				s.log.Error("record unsold failed", zap.String("player", evt.PlayerID), zap.Error(err))
			}
		}()
	}
}

// reset tears down every remote bidder session: publish the reset signal
// for the old session id, then start broadcasting under a fresh one.
func (s *Session) reset() error {
	old := s.sessionID
	if err := s.tr.PublishReset(s.ctx, s.code, old); err != nil {
		return err
	}
	s.sessionID = uuid.NewString()
	s.log.Info("session reset published", zap.String("old", old), zap.String("new", s.sessionID))
	return nil
}

func (s *Session) view() View {
	maxBids := make(map[string]int64)
	health := make(map[string]engine.Health)
	for _, t := range s.auction.Teams() {
		if mb, err := s.auction.MaxBid(t.ID); err == nil {
			maxBids[t.ID] = mb
		}
		if h, err := s.auction.TeamHealth(t.ID); err == nil {
			health[t.ID] = h
		}
	}
	return View{
		Version:     s.version,
		NumClients:  len(s.clients),
		SeenIntents: len(s.seen),
		Snapshot:    s.lastSnap,
		MaxBids:     maxBids,
		Health:      health,
	}
}

func (s *Session) heartbeat() {
	ticker := s.clock.NewTicker(s.hbEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			select {
			case s.inbox <- heartbeatTick{}:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// consumeIntents feeds the shared channel's intent stream into the
// mailbox, re-subscribing with a delay whenever the channel is down.
func (s *Session) consumeIntents() {
	for {
		ch, err := s.tr.WatchIntents(s.ctx, s.code)
		if err != nil {
			s.log.Warn("intent watch unavailable, retrying", zap.Error(err))
			select {
			case <-s.ctx.Done():
				return
			case <-s.clock.After(2 * time.Second):
				continue
			}
		}

		for intent := range ch {
			select {
			case s.inbox <- FromIntent{Intent: intent}:
			case <-s.ctx.Done():
				return
			}
		}
		if s.ctx.Err() != nil {
			return
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}
