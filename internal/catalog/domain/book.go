package domain

import (
	"errors"
	"time"
)

// Book is a catalog record. FavoritedBy holds the emails of users who have
// favorited the book, each at most once.
type Book struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Trending    bool      `json:"trending"`
	CoverImage  string    `json:"coverImage"`
	OldPrice    float64   `json:"oldPrice"`
	NewPrice    float64   `json:"newPrice"`
	FavoritedBy []string  `json:"favoritedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var ErrInvalidBook = errors.New("invalid book")

func (b Book) Validate() error {
	switch {
	case b.Title == "":
		return errors.Join(ErrInvalidBook, errors.New("title is required"))
	case b.Description == "":
		return errors.Join(ErrInvalidBook, errors.New("description is required"))
	case b.Author == "":
		return errors.Join(ErrInvalidBook, errors.New("author is required"))
	case b.Category == "":
		return errors.Join(ErrInvalidBook, errors.New("category is required"))
	case b.CoverImage == "":
		return errors.Join(ErrInvalidBook, errors.New("cover image is required"))
	case b.OldPrice < 0 || b.NewPrice < 0:
		return errors.Join(ErrInvalidBook, errors.New("prices must be non-negative"))
	}
	return nil
}
