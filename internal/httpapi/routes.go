package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/engine"
	"github.com/cricbid/auction-backend/internal/hub"
	"github.com/cricbid/auction-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, cfg engine.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/auctions", CreateAuction(h, cfg, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/auctions/{code}", func(r chi.Router) {
		r.Post("/commands", Command(h))
		r.Post("/reset", Reset(h))
		r.Get("/state", State(h))
		r.Get("/teams/{team}/maxbid", MaxBid(h))
	})
	return r
}
