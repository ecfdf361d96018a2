package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/media-reviews/backend/internal/models"
)

// Taxonomy names one of the two name/slug tables.
type Taxonomy string

const (
	Categories Taxonomy = "categories"
	Genres     Taxonomy = "genres"
)

// TaxonomyStore handles CRUD for categories or genres. Both tables share a
// shape, so one implementation serves both.
type TaxonomyStore struct {
	pool  *pgxpool.Pool
	table Taxonomy
}

func NewTaxonomyStore(pool *pgxpool.Pool, table Taxonomy) *TaxonomyStore {
	return &TaxonomyStore{pool: pool, table: table}
}

func (s *TaxonomyStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	var out models.Category
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+string(s.table)+` (name, slug) VALUES ($1, $2) RETURNING id, name, slug`,
		c.Name, c.Slug,
	).Scan(&out.ID, &out.Name, &out.Slug)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", s.table, translate(err))
	}
	return &out, nil
}

func (s *TaxonomyStore) List(ctx context.Context, skip, limit int) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug FROM `+string(s.table)+` ORDER BY id OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *TaxonomyStore) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug FROM `+string(s.table)+` WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *TaxonomyStore) DeleteBySlug(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+string(s.table)+` WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

const titleSelect = `
	SELECT t.id, t.name, t.year, t.description, t.poster_key, c.id, c.name, c.slug
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(row pgx.Row) (*models.Title, error) {
	var (
		t       models.Title
		catID   *int64
		catName *string
		catSlug *string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Year, &t.Description, &t.PosterKey, &catID, &catName, &catSlug); err != nil {
		return nil, translate(err)
	}
	if catID != nil {
		t.Category = &models.Category{ID: *catID, Name: *catName, Slug: *catSlug}
	}
	return &t, nil
}

func categoryID(t *models.Title) *int64 {
	if t.Category == nil {
		return nil
	}
	return &t.Category.ID
}

// CreateTitle inserts t. Duplicate names yield models.ErrConflict.
func (s *PostgresStore) CreateTitle(ctx context.Context, t *models.Title) (*models.Title, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO titles (name, year, description, category_id)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		t.Name, t.Year, t.Description, categoryID(t),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create title: %w", translate(err))
	}
	return s.GetTitle(ctx, id)
}

func (s *PostgresStore) GetTitle(ctx context.Context, id int64) (*models.Title, error) {
	return scanTitle(s.pool.QueryRow(ctx, titleSelect+` WHERE t.id = $1`, id))
}

func (s *PostgresStore) ListTitles(ctx context.Context) ([]models.Title, error) {
	rows, err := s.pool.Query(ctx, titleSelect+` ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	titles := []models.Title{}
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, err
		}
		titles = append(titles, *t)
	}
	return titles, rows.Err()
}

// UpdateTitle writes every column of t, including the poster key.
func (s *PostgresStore) UpdateTitle(ctx context.Context, t *models.Title) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE titles SET name = $2, year = $3, description = $4, category_id = $5, poster_key = $6
		 WHERE id = $1`,
		t.ID, t.Name, t.Year, t.Description, categoryID(t), t.PosterKey,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTitle(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// TitleRating is the mean review score rounded to two decimals, or nil when
// the title has no reviews.
func (s *PostgresStore) TitleRating(ctx context.Context, titleID int64) (*float64, error) {
	var rating *float64
	err := s.pool.QueryRow(ctx,
		`SELECT ROUND(AVG(score)::numeric, 2)::float8 FROM reviews WHERE title_id = $1`, titleID,
	).Scan(&rating)
	if err != nil {
		return nil, fmt.Errorf("title rating: %w", err)
	}
	return rating, nil
}
