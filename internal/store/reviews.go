package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ayush/media-reviews/backend/internal/models"
)

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

func scanReview(row pgx.Row) (*models.Review, error) {
	var r models.Review
	if err := row.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate); err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// CreateReview inserts r and returns it with id, author name and pub_date set.
func (s *PostgresStore) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (title_id, author_id, text, score) VALUES ($1, $2, $3, $4) RETURNING id`,
		r.TitleID, r.AuthorID, r.Text, r.Score,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", translate(err))
	}
	return s.GetReview(ctx, r.TitleID, id)
}

// GetReview looks a review up within its title.
func (s *PostgresStore) GetReview(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	return scanReview(s.pool.QueryRow(ctx,
		reviewSelect+` WHERE r.title_id = $1 AND r.id = $2`, titleID, reviewID))
}

func (s *PostgresStore) ListReviews(ctx context.Context, titleID int64) ([]models.Review, error) {
	rows, err := s.pool.Query(ctx, reviewSelect+` WHERE r.title_id = $1 ORDER BY r.pub_date, r.id`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) UpdateReview(ctx context.Context, r *models.Review) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reviews SET text = $3, score = $4 WHERE title_id = $1 AND id = $2`,
		r.TitleID, r.ID, r.Text, r.Score,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteReview(ctx context.Context, titleID, reviewID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE title_id = $1 AND id = $2`, titleID, reviewID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (review_id, author_id, text) VALUES ($1, $2, $3) RETURNING id`,
		c.ReviewID, c.AuthorID, c.Text,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", translate(err))
	}
	return s.GetComment(ctx, c.ReviewID, id)
}

// GetComment looks a comment up within its review.
func (s *PostgresStore) GetComment(ctx context.Context, reviewID, commentID int64) (*models.Comment, error) {
	return scanComment(s.pool.QueryRow(ctx,
		commentSelect+` WHERE c.review_id = $1 AND c.id = $2`, reviewID, commentID))
}

func (s *PostgresStore) ListComments(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx,
		commentSelect+` WHERE c.review_id = $1 ORDER BY c.pub_date, c.id OFFSET $2 LIMIT $3`,
		reviewID, skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (s *PostgresStore) UpdateComment(ctx context.Context, c *models.Comment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET text = $3 WHERE review_id = $1 AND id = $2`,
		c.ReviewID, c.ID, c.Text,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, reviewID, commentID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE review_id = $1 AND id = $2`, reviewID, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
