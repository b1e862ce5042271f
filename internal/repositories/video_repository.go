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

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create persists a new video.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.Thumbnail,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := classifyWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID fetches the stored video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var video models.Video
	if err := conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id).Scan(videoTargets(&video)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// Update stores the mutable fields of video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail = $4, is_published = $5, updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, video.IsPublished, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a video together with its likes, its comments and the likes
// on those comments, in one transaction.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		cascade := []struct{ op, sql string }{
			{"delete comment likes", `DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE video_id = $1)`},
			{"delete video likes", `DELETE FROM likes WHERE video_id = $1`},
			{"delete comments", `DELETE FROM comments WHERE video_id = $1`},
			{"delete playlist entries", `DELETE FROM playlist_videos WHERE video_id = $1`},
		}
		for _, step := range cascade {
			if _, err := tx.Exec(ctx, step.sql, id); err != nil {
				return fmt.Errorf("%s: %w", step.op, err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IncrementViews adds one view to the video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of the video feed and the number of matching videos.
func (r *PostgresVideoRepository) List(ctx context.Context, q readmodel.VideoQuery) ([]models.VideoSummary, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	const filter = `
        WHERE ($1 = '' OR v.owner_id = $1)
          AND ($2 OR v.is_published)
          AND ($3 = '' OR v.title ILIKE $4 OR v.description ILIKE $4)`
	args := []any{q.OwnerID, q.IncludeUnpublished(), q.Search, q.LikePattern()}

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	if total == 0 {
		return []models.VideoSummary{}, 0, nil
	}

	// Column and direction come from the readmodel whitelist.
	order := fmt.Sprintf(` ORDER BY v.%s %s, v.id %s LIMIT $5 OFFSET $6`, q.Sort.Column(), q.Sort.Direction(), q.Sort.Direction())
	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
        FROM videos v
        LEFT JOIN users u ON u.id = v.owner_id`+filter+order,
		append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}

	docs, err := collectVideoSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Detail builds the single-video projection relative to viewerID.
func (r *PostgresVideoRepository) Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		detail       models.VideoDetail
		owner        ownerRow
		subscribers  int64
		isSubscribed bool
	)
	targets := append(videoTargets(&detail.Video), owner.targets()...)
	targets = append(targets, &detail.LikeCount, &detail.IsLiked, &subscribers, &isSubscribed)

	err = conn.QueryRow(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id),
            ($2 <> '' AND EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.liked_by = $2)),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = v.owner_id),
            ($2 <> '' AND EXISTS (
                SELECT 1 FROM subscriptions s WHERE s.channel_id = v.owner_id AND s.subscriber_id = $2
            ))
        FROM videos v
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id, viewerID).Scan(targets...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoDetail{}, ErrNotFound
		}
		return models.VideoDetail{}, fmt.Errorf("select video detail: %w", err)
	}

	if collapsed := readmodel.CollapseOwner(owner.matches()); collapsed != nil {
		detail.Owner = &models.ChannelOwner{Owner: *collapsed, SubscriberCount: subscribers, IsSubscribed: isSubscribed}
	}
	return detail, nil
}

// Stats summarises engagement on a video relative to viewerID.
func (r *PostgresVideoRepository) Stats(ctx context.Context, id, viewerID string) (models.VideoStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	stats := models.VideoStats{VideoID: id}
	err = conn.QueryRow(ctx, `
        SELECT v.views,
            (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id),
            (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id),
            ($2 <> '' AND EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.liked_by = $2))
        FROM videos v
        WHERE v.id = $1
    `, id, viewerID).Scan(&stats.Views, &stats.LikeCount, &stats.CommentCount, &stats.IsLiked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoStats{}, ErrNotFound
		}
		return models.VideoStats{}, fmt.Errorf("select video stats: %w", err)
	}
	return stats, nil
}

// ChannelStats aggregates the dashboard numbers of ownerID.
func (r *PostgresVideoRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1),
            (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1)
    `, ownerID).Scan(&stats.TotalViews, &stats.TotalVideos, &stats.TotalLikes, &stats.TotalSubscribers)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}
	return stats, nil
}

// touch is shared by writers that only bump updated_at.
func touch(ctx context.Context, q querier, table, id string, at time.Time) error {
	if _, err := q.Exec(ctx, `UPDATE `+table+` SET updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch %s: %w", table, err)
	}
	return nil
}
