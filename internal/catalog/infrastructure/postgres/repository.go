package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/bookverse/internal/catalog/application"
	"github.com/bookverse/bookverse/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Migrate creates the catalog tables. Favorites live in their own table so a
// toggle is a single conditional insert or delete, never a read-modify-write
// of an array column.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS books (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			author      TEXT NOT NULL,
			category    TEXT NOT NULL,
			trending    BOOLEAN NOT NULL DEFAULT FALSE,
			cover_image TEXT NOT NULL,
			old_price   DOUBLE PRECISION NOT NULL CHECK (old_price >= 0),
			new_price   DOUBLE PRECISION NOT NULL CHECK (new_price >= 0),
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS book_favorites (
			book_id    TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			user_email TEXT NOT NULL,
			PRIMARY KEY (book_id, user_email)
		)`)
	return err
}

const bookColumns = `
	b.id, b.title, b.description, b.author, b.category, b.trending,
	b.cover_image, b.old_price, b.new_price,
	COALESCE(array_agg(f.user_email ORDER BY f.user_email)
		FILTER (WHERE f.user_email IS NOT NULL), '{}'),
	b.created_at, b.updated_at`

const bookJoin = `FROM books b LEFT JOIN book_favorites f ON f.book_id = b.id`

func (r *Repository) Create(ctx context.Context, b domain.Book) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO books (id, title, description, author, category, trending,
			cover_image, old_price, new_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.Title, b.Description, b.Author, b.Category, b.Trending,
		b.CoverImage, b.OldPrice, b.NewPrice, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Book, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` `+bookJoin+` WHERE b.id=$1 GROUP BY b.id`, id)
	return scanBook(row)
}

func (r *Repository) List(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+` `+bookJoin+` GROUP BY b.id ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBooks(rows)
}

func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+` `+bookJoin+` WHERE b.id = ANY($1) GROUP BY b.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBooks(rows)
}

var sortColumns = map[string]string{
	application.SortByCreatedAt: "b.created_at",
	application.SortByTitle:     "b.title",
	application.SortByAuthor:    "b.author",
	application.SortByPrice:     "b.new_price",
}

func (r *Repository) Search(ctx context.Context, q application.SearchQuery) ([]domain.Book, int64, error) {
	where := `WHERE (b.title ILIKE $1 OR b.author ILIKE $1 OR b.description ILIKE $1)`
	args := []any{"%" + q.Query + "%"}
	if q.Category != "" {
		where += fmt.Sprintf(` AND b.category = $%d`, len(args)+1)
		args = append(args, q.Category)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM books b `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "b.created_at"
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s %s %s GROUP BY b.id ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		bookColumns, bookJoin, where, col, dir, len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	books, err := scanBooks(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *Repository) Update(ctx context.Context, b domain.Book) (domain.Book, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE books SET title=$2, description=$3, author=$4, category=$5,
			trending=$6, cover_image=$7, old_price=$8, new_price=$9, updated_at=$10
		WHERE id=$1`,
		b.ID, b.Title, b.Description, b.Author, b.Category, b.Trending,
		b.CoverImage, b.OldPrice, b.NewPrice, b.UpdatedAt)
	if err != nil {
		return domain.Book{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Book{}, application.ErrBookNotFound
	}
	return r.Get(ctx, b.ID)
}

func (r *Repository) Delete(ctx context.Context, id string) (domain.Book, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id=$1`, id); err != nil {
		return domain.Book{}, err
	}
	return b, nil
}

func (r *Repository) ToggleFavorite(ctx context.Context, bookID, email string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO book_favorites (book_id, user_email) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, bookID, email)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() > 0 {
		return true, nil
	}
	_, err = r.pool.Exec(ctx,
		`DELETE FROM book_favorites WHERE book_id=$1 AND user_email=$2`, bookID, email)
	return false, err
}

func scanBook(row pgx.Row) (domain.Book, error) {
	var b domain.Book
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Author, &b.Category,
		&b.Trending, &b.CoverImage, &b.OldPrice, &b.NewPrice, &b.FavoritedBy,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Book{}, application.ErrBookNotFound
	}
	if err != nil {
		return domain.Book{}, err
	}
	return b, nil
}

func scanBooks(rows pgx.Rows) ([]domain.Book, error) {
	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
