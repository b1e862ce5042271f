package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

type userRepository interface {
	handlers.UserStore
	handlers.WatchHistoryStore
	auth.SessionStore
}

// storeSet is one persistence backend seen through the handler interfaces.
type storeSet struct {
	Users         userRepository
	Videos        handlers.VideoStore
	Comments      handlers.CommentStore
	Tweets        handlers.TweetStore
	Likes         handlers.LikeStore
	Subscriptions handlers.SubscriptionStore
	Playlists     handlers.PlaylistStore
	Health        handlers.HealthChecker
}

func postgresStoreSet(store *repositories.PostgresStore) storeSet {
	return storeSet{
		Users:         store.Users,
		Videos:        store.Videos,
		Comments:      store.Comments,
		Tweets:        store.Tweets,
		Likes:         store.Likes,
		Subscriptions: store.Subscriptions,
		Playlists:     store.Playlists,
		Health:        store,
	}
}

func memoryStoreSet(store *repositories.MemoryStore) storeSet {
	return storeSet{
		Users:         store.Users,
		Videos:        store.Videos,
		Comments:      store.Comments,
		Tweets:        store.Tweets,
		Likes:         store.Likes,
		Subscriptions: store.Subscriptions,
		Playlists:     store.Playlists,
		Health:        store,
	}
}

// openStores returns the requested backend and a func releasing it.
func openStores(ctx context.Context, cfg config.Config, backend string) (storeSet, func(), error) {
	switch backend {
	case storeMemory:
		return memoryStoreSet(repositories.NewMemoryStore()), func() {}, nil
	case storePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return storeSet{}, nil, err
		}
		return postgresStoreSet(repositories.NewPostgresStore(pool)), pool.Close, nil
	default:
		return storeSet{}, nil, fmt.Errorf("unknown store %q", backend)
	}
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup drains the media janitor.
func buildDependencies(ctx context.Context, cfg config.Config, stores storeSet, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	prober := media.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.ProbeTimeout)
	uploader := media.NewUploader(objectStore, prober, cfg.Media.UploadDir, cfg.Media.MaxUploadMB<<20)
	janitor := media.NewJanitor(objectStore, media.JanitorConfig{
		QueueSize: cfg.Media.JanitorQueue,
		Workers:   cfg.Media.JanitorWorkers,
	}, logger)

	sessions := auth.NewManager(auth.Options{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, stores.Users, stores.Users)

	deps := handlers.Dependencies{
		Users:         stores.Users,
		History:       stores.Users,
		Videos:        stores.Videos,
		Comments:      stores.Comments,
		Tweets:        stores.Tweets,
		Likes:         stores.Likes,
		Subscriptions: stores.Subscriptions,
		Playlists:     stores.Playlists,
		Health:        stores.Health,
		Sessions:      sessions,
		Media:         uploader,
		Janitor:       janitor,

		Logger:        logger,
		AuthLimiter:   middleware.NewAuthRateLimiter(cfg.Auth),
		APIRateLimit:  cfg.Auth.APIRateLimit,
		TrustProxy:    cfg.TrustProxy,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.CookieSecure,
		Started:       time.Now(),
	}

	return deps, janitor.Shutdown, nil
}
