package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// PostgresStore bundles every repository over one pool.
type PostgresStore struct {
	Users         *PostgresUserRepository
	Videos        *PostgresVideoRepository
	Comments      *PostgresCommentRepository
	Likes         *PostgresLikeRepository
	Subscriptions *PostgresSubscriptionRepository
	Playlists     *PostgresPlaylistRepository
	Tweets        *PostgresTweetRepository

	pool db.Pool
}

// NewPostgresStore constructs all repositories backed by pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		Users:         NewPostgresUserRepository(pool),
		Videos:        NewPostgresVideoRepository(pool),
		Comments:      NewPostgresCommentRepository(pool),
		Likes:         NewPostgresLikeRepository(pool),
		Subscriptions: NewPostgresSubscriptionRepository(pool),
		Playlists:     NewPostgresPlaylistRepository(pool),
		Tweets:        NewPostgresTweetRepository(pool),
		pool:          pool,
	}
}

// Ping checks that the database answers.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const videoColumns = `v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
        v.duration, v.views, v.is_published, v.created_at, v.updated_at`

// ownerColumns selects the owner projection from a LEFT JOIN on users u.
const ownerColumns = `u.id, u.username, u.full_name, u.avatar`

// ownerRow receives the nullable owner columns of a LEFT JOIN.
type ownerRow struct {
	id, username, fullName, avatar *string
}

func (o *ownerRow) targets() []any {
	return []any{&o.id, &o.username, &o.fullName, &o.avatar}
}

// matches returns the joined users, zero or one, for readmodel.CollapseOwner.
func (o ownerRow) matches() []models.User {
	if o.id == nil {
		return nil
	}
	return []models.User{{ID: *o.id, Username: deref(o.username), FullName: deref(o.fullName), Avatar: deref(o.avatar)}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func videoTargets(v *models.Video) []any {
	return []any{&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt}
}

// scanVideoSummary reads a row of videoColumns, ownerColumns and a like count.
func scanVideoSummary(row pgx.Row) (models.VideoSummary, error) {
	var (
		video models.Video
		owner ownerRow
		likes int64
	)
	targets := append(videoTargets(&video), owner.targets()...)
	targets = append(targets, &likes)
	if err := row.Scan(targets...); err != nil {
		return models.VideoSummary{}, err
	}
	return models.VideoSummary{
		Video:      video,
		Owner:      readmodel.CollapseOwner(owner.matches()),
		LikesCount: likes,
	}, nil
}

// videoSummariesByID loads list rows for ids, keyed by video id. Missing ids
// are simply absent from the map.
func videoSummariesByID(ctx context.Context, q querier, ids []string) (map[string]models.VideoSummary, error) {
	out := make(map[string]models.VideoSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `
        SELECT `+videoColumns+`, `+ownerColumns+`,
            (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
        FROM videos v
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE v.id = ANY($1)
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query videos by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		summary, err := scanVideoSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out[summary.ID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos by id: %w", err)
	}
	return out, nil
}

// collectVideoSummaries drains rows produced by a videoColumns/ownerColumns/count select.
func collectVideoSummaries(rows pgx.Rows) ([]models.VideoSummary, error) {
	defer rows.Close()

	summaries := []models.VideoSummary{}
	for rows.Next() {
		summary, err := scanVideoSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return summaries, nil
}
