package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookverse/bookverse/internal/catalog/application"
	"github.com/bookverse/bookverse/internal/catalog/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	admin   func(http.Handler) http.Handler
	user    func(http.Handler) http.Handler
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, admin, user func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:     log,
		service: service,
		admin:   admin,
		user:    user,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.admin).Post("/create-book", h.createBook)
	r.Get("/", h.listBooks)
	r.Get("/search", h.searchBooks)
	r.Get("/{id}", h.getBook)
	r.With(h.admin).Put("/edit/{id}", h.updateBook)
	r.With(h.admin).Delete("/{id}", h.deleteBook)
	r.With(h.user).Post("/{id}/favorite", h.toggleFavorite)
	return r
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateBook")
	defer span.End()

	var b domain.Book
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	created, err := h.service.Create(ctx, b)
	if err != nil {
		h.respondErr(w, err, "Failed to create book")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Book posted successfully",
		"book":    created,
	})
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.respondErr(w, err, "Failed to fetch books")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err, "Failed to fetch book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Book retrieved successfully",
		"book":    book,
	})
}

func (h *Handler) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	res, err := h.service.Search(r.Context(), application.SearchQuery{
		Query:     q.Get("query"),
		Category:  q.Get("category"),
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.respondErr(w, err, "Server error during book search")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateBook")
	defer span.End()

	var b domain.Book
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	updated, err := h.service.Update(ctx, chi.URLParam(r, "id"), b)
	if err != nil {
		h.respondErr(w, err, "Failed to update book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Book updated successfully",
		"book":    updated,
	})
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteBook")
	defer span.End()

	deleted, err := h.service.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err, "Failed to delete book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Book deleted successfully",
		"book":    deleted,
	})
}

type favoriteReq struct {
	Email string `json:"email"`
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ToggleFavorite")
	defer span.End()

	var req favoriteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "User email is required")
		return
	}
	book, favorited, err := h.service.ToggleFavorite(ctx, chi.URLParam(r, "id"), req.Email)
	if err != nil {
		h.respondErr(w, err, "Failed to toggle favorite status")
		return
	}
	msg := "Book unfavorited successfully"
	if favorited {
		msg = "Book favorited successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "book": book})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, application.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "Book not found!")
	case errors.Is(err, domain.ErrInvalidBook):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(fallback, "err", err)
		writeError(w, http.StatusInternalServerError, fallback)
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
