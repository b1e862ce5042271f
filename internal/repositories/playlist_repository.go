package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

const playlistColumns = `p.id, p.owner_id, p.name, p.description, p.is_public, p.is_watch_later,
        ARRAY(SELECT pv.video_id FROM playlist_videos pv WHERE pv.playlist_id = p.id ORDER BY pv.position),
        p.created_at, p.updated_at`

func playlistTargets(p *models.Playlist) []any {
	return []any{&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.IsPublic, &p.IsWatchLater, &p.VideoIDs, &p.CreatedAt, &p.UpdatedAt}
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	if err := row.Scan(playlistTargets(&playlist)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, err
	}
	if playlist.VideoIDs == nil {
		playlist.VideoIDs = []string{}
	}
	return playlist, nil
}

// Create persists a new playlist. A second Watch Later playlist for the same
// owner is rejected with ErrConflict.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return insertPlaylist(ctx, conn, playlist)
}

func insertPlaylist(ctx context.Context, q querier, playlist models.Playlist) error {
	_, err := q.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, is_public, is_watch_later, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.IsPublic, playlist.IsWatchLater,
		playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		if mapped := classifyWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

// FindByID fetches a playlist with its ordered video ids.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists p WHERE p.id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}
	return playlist, err
}

// Update renames a playlist and replaces its description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	return r.updateReturning(ctx, "update playlist", `
        UPDATE playlists p SET name = $2, description = $3, updated_at = $4 WHERE p.id = $1
        RETURNING `+playlistColumns, id, name, description, at)
}

// SetVisibility stores the public flag of a playlist.
func (r *PostgresPlaylistRepository) SetVisibility(ctx context.Context, id string, public bool, at time.Time) (models.Playlist, error) {
	return r.updateReturning(ctx, "update playlist visibility", `
        UPDATE playlists p SET is_public = $2, updated_at = $3 WHERE p.id = $1
        RETURNING `+playlistColumns, id, public, at)
}

func (r *PostgresPlaylistRepository) updateReturning(ctx context.Context, op, sql string, args ...any) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, sql, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.Playlist{}, fmt.Errorf("%s: %w", op, err)
	}
	return playlist, err
}

// Delete removes a playlist; its entries go with it.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo appends videoID to the end of the playlist unless it is already there.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) (models.MembershipResult, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var result models.MembershipResult
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		tag, err := tx.Exec(ctx, `
            INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
            SELECT $1::TEXT, $2::TEXT, COALESCE(MAX(position), 0) + 1, $3::TIMESTAMPTZ
            FROM playlist_videos
            WHERE playlist_id = $1::TEXT
            ON CONFLICT (playlist_id, video_id) DO NOTHING
        `, playlistID, videoID, now)
		if err != nil {
			if mapped := classifyWriteError(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("insert playlist entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			result = models.MemberAlreadyPresent
			return nil
		}
		result = models.MemberAdded
		return touch(ctx, tx, "playlists", playlistID, now)
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// RemoveVideo drops videoID from the playlist when present.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) (models.MembershipResult, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var result models.MembershipResult
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`, playlistID, videoID)
		if err != nil {
			return fmt.Errorf("delete playlist entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			result = models.MemberNotPresent
			return nil
		}
		result = models.MemberRemoved
		return touch(ctx, tx, "playlists", playlistID, time.Now().UTC())
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Detail resolves the playlist, its owner and its videos in order.
func (r *PostgresPlaylistRepository) Detail(ctx context.Context, id string) (models.PlaylistDetail, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		playlist models.Playlist
		owner    ownerRow
	)
	targets := append(playlistTargets(&playlist), owner.targets()...)
	err = conn.QueryRow(ctx, `
        SELECT `+playlistColumns+`, `+ownerColumns+`
        FROM playlists p
        LEFT JOIN users u ON u.id = p.owner_id
        WHERE p.id = $1
    `, id).Scan(targets...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlaylistDetail{}, ErrNotFound
		}
		return models.PlaylistDetail{}, fmt.Errorf("select playlist detail: %w", err)
	}

	videos, err := videoSummariesByID(ctx, conn, playlist.VideoIDs)
	if err != nil {
		return models.PlaylistDetail{}, err
	}
	return readmodel.ShapePlaylistDetail(playlist, owner.matches(), videos), nil
}

// ListForOwner returns one page of the playlists of ownerID, newest first.
// Private playlists are included only when includePrivate is set.
func (r *PostgresPlaylistRepository) ListForOwner(ctx context.Context, ownerID string, includePrivate bool, page readmodel.PageRequest) ([]models.PlaylistSummary, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM playlists p WHERE p.owner_id = $1 AND ($2 OR p.is_public)
    `, ownerID, includePrivate).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count playlists: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+playlistColumns+`, `+ownerColumns+`
        FROM playlists p
        LEFT JOIN users u ON u.id = p.owner_id
        WHERE p.owner_id = $1 AND ($2 OR p.is_public)
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $3 OFFSET $4
    `, ownerID, includePrivate, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	summaries := []models.PlaylistSummary{}
	for rows.Next() {
		var (
			playlist models.Playlist
			owner    ownerRow
		)
		if err := rows.Scan(append(playlistTargets(&playlist), owner.targets()...)...); err != nil {
			return nil, 0, fmt.Errorf("scan playlist: %w", err)
		}
		summaries = append(summaries, readmodel.ShapePlaylistSummary(playlist, owner.matches()))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate playlists: %w", err)
	}
	return summaries, total, nil
}

// WatchLater returns the Watch Later playlist of ownerID. When create is set a
// missing playlist is provisioned; the partial unique index resolves racing
// first uses to a single row.
func (r *PostgresPlaylistRepository) WatchLater(ctx context.Context, ownerID string, create bool) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	find := func() (models.Playlist, error) {
		return scanPlaylist(conn.QueryRow(ctx, `
            SELECT `+playlistColumns+` FROM playlists p WHERE p.owner_id = $1 AND p.is_watch_later
        `, ownerID))
	}

	playlist, err := find()
	switch {
	case err == nil:
		return playlist, nil
	case !errors.Is(err, ErrNotFound):
		return models.Playlist{}, fmt.Errorf("select watch later: %w", err)
	case !create:
		return models.Playlist{}, ErrNotFound
	}

	now := time.Now().UTC()
	err = insertPlaylist(ctx, conn, models.Playlist{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         models.WatchLaterName,
		IsWatchLater: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil && !errors.Is(err, ErrConflict) {
		return models.Playlist{}, err
	}

	playlist, err = find()
	if err != nil {
		return models.Playlist{}, fmt.Errorf("select watch later: %w", err)
	}
	return playlist, nil
}
