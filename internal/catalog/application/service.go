package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bookverse/bookverse/internal/catalog/domain"
)

var ErrBookNotFound = errors.New("book not found")

const (
	maxPageSize     = 100
	defaultPageSize = 10
)

type Service struct {
	repo BookRepository
}

func NewService(repo BookRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, b domain.Book) (domain.Book, error) {
	if err := b.Validate(); err != nil {
		return domain.Book{}, err
	}
	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.FavoritedBy == nil {
		b.FavoritedBy = []string{}
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return domain.Book{}, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Book, error) {
	return s.repo.List(ctx)
}

func (s *Service) FindByIDs(ctx context.Context, ids []string) ([]domain.Book, error) {
	if len(ids) == 0 {
		return []domain.Book{}, nil
	}
	return s.repo.FindByIDs(ctx, ids)
}

// Search clamps paging to sane bounds and whitelists the sort field before
// handing the query to the store.
func (s *Service) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	switch q.SortBy {
	case SortByTitle, SortByAuthor, SortByPrice, SortByCreatedAt:
	default:
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}

	books, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return SearchResult{
		Books:       books,
		CurrentPage: q.Page,
		TotalPages:  totalPages,
		TotalBooks:  total,
	}, nil
}

func (s *Service) Update(ctx context.Context, id string, b domain.Book) (domain.Book, error) {
	if err := b.Validate(); err != nil {
		return domain.Book{}, err
	}
	b.ID = id
	b.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, b)
}

func (s *Service) Delete(ctx context.Context, id string) (domain.Book, error) {
	return s.repo.Delete(ctx, id)
}

// ToggleFavorite flips the (book, email) favorite flag and returns the book in
// its new state. The flip itself is a single atomic store operation.
func (s *Service) ToggleFavorite(ctx context.Context, bookID, email string) (domain.Book, bool, error) {
	if _, err := s.repo.Get(ctx, bookID); err != nil {
		return domain.Book{}, false, err
	}
	favorited, err := s.repo.ToggleFavorite(ctx, bookID, email)
	if err != nil {
		return domain.Book{}, false, err
	}
	b, err := s.repo.Get(ctx, bookID)
	if err != nil {
		return domain.Book{}, false, err
	}
	return b, favorited, nil
}
