package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookverse/bookverse/internal/stats/application"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	admin   func(http.Handler) http.Handler
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:     log,
		service: service,
		admin:   admin,
		tracer:  otel.Tracer("stats-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.admin).Get("/stats", h.adminStats)
	return r
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminStats")
	defer span.End()

	stats, err := h.service.Collect(ctx)
	if err != nil {
		h.log.Error("stats collection failed", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Failed to fetch admin stats"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stats)
}
