package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

var likeColumnByKind = map[models.LikeKind]string{
	models.LikeVideo:   "video_id",
	models.LikeComment: "comment_id",
	models.LikeTweet:   "tweet_id",
}

// Toggle removes the like of likerID on target when present and adds it
// otherwise. The partial unique indexes on likes keep concurrent toggles from
// producing duplicates.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, target models.LikeTarget, likerID string) (models.ToggleResult, error) {
	column, ok := likeColumnByKind[target.Kind]
	if !ok {
		return "", fmt.Errorf("unknown like target kind %q", target.Kind)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var result models.ToggleResult
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2`, likerID, target.ID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if tag.RowsAffected() > 0 {
			result = models.Removed
			return nil
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO likes (id, liked_by, `+column+`, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT DO NOTHING
        `, uuid.NewString(), likerID, target.ID, time.Now().UTC())
		if err != nil {
			if mapped := classifyWriteError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("insert like: %w", err)
		}
		result = models.Added
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// LikedVideos returns the published videos userID likes, most recently liked first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT COUNT(*) FROM likes c WHERE c.video_id = v.id)
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND v.is_published
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	return collectVideoSummaries(rows)
}
