package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

const tweetColumns = `t.id, t.owner_id, t.content, t.created_at, t.updated_at`

func tweetTargets(t *models.Tweet) []any {
	return []any{&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt}
}

// Create persists a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		if mapped := classifyWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert tweet: %w", err)
	}
	return nil
}

// FindByID fetches a tweet.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var tweet models.Tweet
	if err := conn.QueryRow(ctx, `SELECT `+tweetColumns+` FROM tweets t WHERE t.id = $1`, id).Scan(tweetTargets(&tweet)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("select tweet: %w", err)
	}
	return tweet, nil
}

// UpdateContent rewrites the text of a tweet.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var tweet models.Tweet
	err = conn.QueryRow(ctx, `
        UPDATE tweets t SET content = $2, updated_at = $3 WHERE t.id = $1
        RETURNING `+tweetColumns, id, content, at).Scan(tweetTargets(&tweet)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return tweet, nil
}

// Delete removes a tweet and every like on it.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE tweet_id = $1`, id); err != nil {
			return fmt.Errorf("delete tweet likes: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tweets WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete tweet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListForOwner returns one page of tweets by ownerID, newest first.
func (r *PostgresTweetRepository) ListForOwner(ctx context.Context, ownerID, viewerID string, page readmodel.PageRequest) ([]models.TweetView, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tweets WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tweets: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+tweetColumns+`, `+ownerColumns+`,
            (SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id),
            ($2 <> '' AND EXISTS (SELECT 1 FROM likes l WHERE l.tweet_id = t.id AND l.liked_by = $2))
        FROM tweets t
        LEFT JOIN users u ON u.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC, t.id DESC
        LIMIT $3 OFFSET $4
    `, ownerID, viewerID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	views := []models.TweetView{}
	for rows.Next() {
		var (
			view  models.TweetView
			owner ownerRow
		)
		targets := append(tweetTargets(&view.Tweet), owner.targets()...)
		targets = append(targets, &view.LikesCount, &view.IsLiked)
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, fmt.Errorf("scan tweet: %w", err)
		}
		view.Owner = readmodel.CollapseOwner(owner.matches())
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tweets: %w", err)
	}
	return views, total, nil
}
