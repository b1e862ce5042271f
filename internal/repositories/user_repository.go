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

// PostgresUserRepository provides PostgreSQL-backed persistence for users,
// their refresh tokens and their watch history.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user    models.User
		refresh *string
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage,
		&user.PasswordHash, &refresh, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.RefreshToken = deref(refresh)
	return user, nil
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := classifyWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return user, err
}

// FindByLogin fetches the user whose username or email matches.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, username, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        LIMIT 1
    `, username, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("select user by login: %w", err)
	}
	return user, err
}

// UpdateAccount changes the profile fields of a user and returns the stored row.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, username, email string) (models.User, error) {
	return r.updateReturning(ctx, "update account", `
        UPDATE users
        SET full_name = $2, username = $3, email = $4, updated_at = $5
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, username, email, time.Now().UTC())
}

// UpdateAvatar replaces the avatar URL of a user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "update avatar", `
        UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1
        RETURNING `+userColumns, id, url, time.Now().UTC())
}

// UpdateCoverImage replaces the cover image URL of a user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "update cover image", `
        UPDATE users SET cover_image = $2, updated_at = $3 WHERE id = $1
        RETURNING `+userColumns, id, url, time.Now().UTC())
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, op, sql string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
		if mapped := classifyWriteError(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRefreshToken stores the current refresh token of a user. An empty token
// clears it.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var value *string
	if token != "" {
		value = &token
	}

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, value)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshToken returns the stored refresh token of a user, empty when cleared.
func (r *PostgresUserRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token *string
	if err := conn.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, userID).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}
	return deref(token), nil
}

// ChannelProfile builds the public channel page for username relative to viewerID.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var p models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar, u.cover_image,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
            ($2 <> '' AND EXISTS (
                SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2
            )),
            (SELECT COUNT(*) FROM videos v WHERE v.owner_id = u.id AND v.is_published)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID).Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.Avatar, &p.CoverImage,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed, &p.VideosCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}
	return p, nil
}

// RecordView appends videoID to the watch history of userID unless it is
// already the most recent entry. It reports whether a row was added.
func (r *PostgresUserRepository) RecordView(ctx context.Context, userID, videoID string, at time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO watch_history (id, user_id, video_id, watched_at)
        SELECT $1::TEXT, $2::TEXT, $3::TEXT, $4::TIMESTAMPTZ
        WHERE NOT EXISTS (
            SELECT 1 FROM (
                SELECT video_id FROM watch_history
                WHERE user_id = $2::TEXT
                ORDER BY watched_at DESC
                LIMIT 1
            ) latest
            WHERE latest.video_id = $3::TEXT
        )
    `, uuid.NewString(), userID, videoID, at.UTC())
	if err != nil {
		if mapped := classifyWriteError(err); mapped != nil {
			return false, mapped
		}
		return false, fmt.Errorf("insert watch history: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// History returns the watch history of userID, most recent first, resolved to
// the videos that still exist.
func (r *PostgresUserRepository) History(ctx context.Context, userID string) ([]models.WatchHistoryItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, user_id, video_id, watched_at
        FROM watch_history
        WHERE user_id = $1
        ORDER BY watched_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}

	var (
		entries []models.WatchEntry
		ids     []string
	)
	for rows.Next() {
		var entry models.WatchEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.VideoID, &entry.WatchedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		entries = append(entries, entry)
		ids = append(ids, entry.VideoID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	videos, err := videoSummariesByID(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	return readmodel.ShapeWatchHistory(entries, videos), nil
}

// RemoveFromHistory deletes every history entry of userID for videoID.
func (r *PostgresUserRepository) RemoveFromHistory(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM watch_history WHERE user_id = $1 AND video_id = $2`, userID, videoID)
	if err != nil {
		return fmt.Errorf("delete watch history entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearHistory deletes the whole watch history of userID.
func (r *PostgresUserRepository) ClearHistory(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM watch_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear watch history: %w", err)
	}
	return nil
}
