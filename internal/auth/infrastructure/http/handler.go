package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookverse/bookverse/internal/auth/application"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("auth-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/admin", h.loginAdmin)
	r.Post("/register", h.register)
	return r
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) loginAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminLogin")
	defer span.End()

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := h.service.LoginAdmin(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Authentication successful",
			"token":   res.Token,
			"user": map[string]any{
				"username": res.Username,
				"role":     res.Role,
			},
		})
	case errors.Is(err, application.ErrAdminNotFound):
		writeError(w, http.StatusNotFound, "Admin not found")
	case errors.Is(err, application.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.log.Error("admin login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Register")
	defer span.End()

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	c, err := h.service.Register(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "User registered successfully",
			"user": map[string]any{
				"username": c.Username,
				"role":     c.Role,
			},
		})
	case errors.Is(err, application.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, application.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Username and password are required")
	default:
		h.log.Error("registration failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
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
