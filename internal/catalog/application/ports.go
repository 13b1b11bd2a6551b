package application

import (
	"context"

	"github.com/bookverse/bookverse/internal/catalog/domain"
)

// SortField values accepted by Search. Anything else falls back to created_at.
const (
	SortByCreatedAt = "createdAt"
	SortByTitle     = "title"
	SortByAuthor    = "author"
	SortByPrice     = "price"
)

type SearchQuery struct {
	Query     string
	Category  string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" or "desc"
}

type SearchResult struct {
	Books       []domain.Book `json:"books"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalBooks  int64         `json:"totalBooks"`
}

type BookRepository interface {
	Create(ctx context.Context, b domain.Book) error
	Get(ctx context.Context, id string) (domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Book, error)
	Search(ctx context.Context, q SearchQuery) ([]domain.Book, int64, error)
	Update(ctx context.Context, b domain.Book) (domain.Book, error)
	Delete(ctx context.Context, id string) (domain.Book, error)
	// ToggleFavorite atomically adds the email to the book's favorites if
	// absent, otherwise removes it. Reports whether the book ended up
	// favorited.
	ToggleFavorite(ctx context.Context, bookID, email string) (bool, error)
}
