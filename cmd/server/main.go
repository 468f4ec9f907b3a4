package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cricbid/auction-backend/internal/config"
	"github.com/cricbid/auction-backend/internal/httpapi"
	"github.com/cricbid/auction-backend/internal/hub"
	"github.com/cricbid/auction-backend/internal/session"
	"github.com/cricbid/auction-backend/internal/store"
	"github.com/cricbid/auction-backend/internal/transport"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tr transport.Transport
	if cfg.NATSURL != "" {
		tr, err = transport.NewNATS(ctx, cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("nats connect", zap.Error(err))
		}
	} else {
		logger.Info("no NATS url configured, running in-process sync only")
		tr = transport.NewInproc()
	}
	defer tr.Close()

	var rec store.Recorder = store.Noop{}
	if cfg.DatabaseDSN != "" {
		st, err := store.Open(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("database open", zap.Error(err))
		}
		rec = st
	}

	h := hub.NewHub(ctx, session.Options{
		Transport:      tr,
		Recorder:       rec,
		Logger:         logger,
		HeartbeatEvery: cfg.HeartbeatInterval,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, cfg.Auction.Engine(), logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
