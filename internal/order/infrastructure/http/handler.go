package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookverse/bookverse/internal/order/application"
	"github.com/bookverse/bookverse/internal/order/domain"
	"github.com/bookverse/bookverse/pkg/tracing"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	verifier application.WebhookVerifier
	user     func(http.Handler) http.Handler
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, verifier application.WebhookVerifier, user func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		user:     user,
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	// webhook stays outside the auth middleware: the provider authenticates
	// with a signature over the raw body, not a bearer token
	r.Post("/webhook", h.webhook)
	r.With(h.user).Post("/create-checkout-session", h.createCheckoutSession)
	r.With(h.user).Post("/cod", h.createPendingOrder)
	r.With(h.user).Post("/", h.createPendingOrder)
	r.With(h.user).Get("/user/{userId}", h.ordersByUser)
	r.With(h.user).Get("/{id}", h.orderByID)
	return r
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckoutSession")
	defer span.End()

	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	session, err := h.service.CreateCheckoutSession(ctx, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session)
	case errors.Is(err, application.ErrBooksNotFound):
		writeError(w, http.StatusNotFound, "Books not found")
	case errors.Is(err, application.ErrEmptyCart), errors.Is(err, application.ErrBadQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("checkout session creation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Checkout session creation failed")
	}
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "Missing Stripe signature")
		return
	}

	ev, err := h.verifier.Verify(payload, sig)
	if err != nil {
		h.log.Warn("webhook signature verification failed", "err", err)
		writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	if err := h.service.HandlePaymentEvent(ctx, ev, tracing.Traceparent(ctx)); err != nil {
		// a 5xx makes the provider redeliver, which the session-id
		// constraint renders safe
		h.log.Error("webhook handling failed", "event_id", ev.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Webhook handler failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event processed"})
}

func (h *Handler) createPendingOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RecordPendingOrder")
	defer span.End()

	var o domain.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	created, err := h.service.RecordPendingOrder(ctx, o, tracing.Traceparent(ctx))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, created)
	case errors.Is(err, domain.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("order creation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order")
	}
}

func (h *Handler) ordersByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OrdersByUser(r.Context(), chi.URLParam(r, "userId"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, orders)
	case errors.Is(err, application.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "No orders found for this user")
	default:
		h.log.Error("fetching orders failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders")
	}
}

func (h *Handler) orderByID(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.OrderByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, order)
	case errors.Is(err, application.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	default:
		h.log.Error("fetching order failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch order")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
