// Command bidder is a terminal bid console for one team. It joins the
// shared sync channel, mirrors the live auction state, and submits raise
// and stop intents for the operator console to arbitrate.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/relay"
	"github.com/cricbid/auction-backend/internal/transport"
)

func main() {
	var (
		natsURL = flag.String("nats", "nats://127.0.0.1:4222", "NATS server url")
		code    = flag.String("code", "", "auction join code")
		teamID  = flag.String("team", "", "team id to bid for")
		device  = flag.String("device", "", "stable device id (optional)")
	)
	flag.Parse()
	if *code == "" || *teamID == "" {
		log.Fatal("both -code and -team are required")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := transport.NewNATS(ctx, *natsURL, logger)
	if err != nil {
		logger.Fatal("nats connect", zap.Error(err))
	}
	defer tr.Close()

	r := relay.New(tr, *code, relay.Options{
		SenderID: *device,
		Logger:   logger,
		OnReset: func(sessionID string) {
			fmt.Println("!! session was reset by the operator, re-join required")
		},
	})
	go func() {
		if err := r.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("relay stopped", zap.Error(err))
		}
	}()

	fmt.Printf("bidding for team %s on auction %s\n", *teamID, *code)
	fmt.Println("commands: r=raise  s=stop  v=view  q=quit")

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.TrimSpace(in.Text()) {
		case "r":
			id, err := r.SubmitRaise(ctx, *teamID)
			if err != nil {
				fmt.Println("raise failed:", err)
				continue
			}
			fmt.Println("raise submitted:", id)
		case "s":
			id, err := r.SubmitStop(ctx, *teamID)
			if err != nil {
				fmt.Println("stop failed:", err)
				continue
			}
			fmt.Println("stop submitted:", id)
		case "v":
			printView(r)
		case "q":
			return
		case "":
		default:
			fmt.Println("unknown command")
		}
	}
}

func printView(r *relay.Relay) {
	snap, ok := r.Snapshot()
	if !ok {
		fmt.Println("no state received yet")
		return
	}
	link := "LIVE"
	if !r.Connected() {
		link = "STALE (console link down)"
	}
	fmt.Printf("[%s] round %d, v%d\n", link, snap.Round, snap.Version)
	if snap.CurrentPlayer != nil {
		fmt.Printf("  under auction: %s (%s), bid %d, leader %s\n",
			snap.CurrentPlayer.Name, snap.CurrentPlayer.Role, snap.CurrentBid, snap.LeadingTeamID)
	} else {
		fmt.Println("  no player under auction")
	}
	for _, t := range snap.Teams {
		fmt.Printf("  %-12s purse %d, bought %d\n", t.Name, t.RemainingPurse, t.PlayersBought)
	}
}
