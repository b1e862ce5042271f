package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	History       WatchHistoryStore
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Sessions      SessionManager
	Media         MediaUploader
	Janitor       MediaJanitor
	Health        HealthChecker

	Logger        *slog.Logger
	AuthLimiter   RateLimiter
	APIRateLimit  int
	TrustProxy    bool
	CORSOrigins   []string
	SecureCookies bool
	Started       time.Time
	NowFunc       func() time.Time
}

// NewRouter wires every API route under /api/v1.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	started := deps.Started
	if started.IsZero() {
		started = time.Now().UTC()
	}

	gate := Gate{Sessions: deps.Sessions, Users: deps.Users}
	users := UserHandler{
		Users:    deps.Users,
		History:  deps.History,
		Sessions: deps.Sessions,
		Media:    deps.Media,
		Janitor:  deps.Janitor,
		Cookies:  cookieJar{secure: deps.SecureCookies},
		NowFunc:  deps.NowFunc,
	}
	videos := VideoHandler{Videos: deps.Videos, History: deps.History, Media: deps.Media, Janitor: deps.Janitor, NowFunc: deps.NowFunc}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Users: deps.Users, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Videos: deps.Videos}
	health := HealthHandler{Store: deps.Health, Started: started, NowFunc: deps.NowFunc}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimw.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(apiFunc(func(http.ResponseWriter, *http.Request) error {
		return notFound("Route not found")
	}).ServeHTTP)
	r.MethodNotAllowed(apiFunc(func(http.ResponseWriter, *http.Request) error {
		return &APIError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
	}).ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.APIRateLimit > 0 {
			r.Use(httprate.Limit(deps.APIRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, req *http.Request) {
					metrics.RecordRateLimitHit("api")
					apiFunc(func(http.ResponseWriter, *http.Request) error {
						return tooManyRequests("Too many requests, please try again later")
					}).ServeHTTP(w, req)
				}),
			))
		}

		r.Method(http.MethodGet, "/healthcheck", apiFunc(health.Handle))

		r.Route("/users", func(r chi.Router) {
			r.Method(http.MethodPost, "/register", limitRequests(deps.AuthLimiter, middleware.ScopeRegister, users.Register))
			r.Method(http.MethodPost, "/login", limitRequests(deps.AuthLimiter, middleware.ScopeLogin, users.Login))
			r.Method(http.MethodPost, "/refresh-token", limitRequests(deps.AuthLimiter, middleware.ScopeRefresh, users.RefreshToken))

			r.With(gate.Optional).Method(http.MethodGet, "/channel/{username}", apiFunc(users.Channel))

			r.Group(func(r chi.Router) {
				r.Use(gate.Require)
				r.Method(http.MethodPost, "/logout", apiFunc(users.Logout))
				r.Method(http.MethodPost, "/change-password", apiFunc(users.ChangePassword))
				r.Method(http.MethodGet, "/current-user", apiFunc(users.CurrentUser))
				r.Method(http.MethodPatch, "/update-account", apiFunc(users.UpdateAccount))
				r.Method(http.MethodPatch, "/update-avatar", apiFunc(users.UpdateAvatar))
				r.Method(http.MethodPatch, "/update-cover-img", apiFunc(users.UpdateCoverImage))
				r.Method(http.MethodGet, "/watch-history", apiFunc(users.WatchHistory))
				r.Method(http.MethodPatch, "/watch-history", apiFunc(users.ClearWatchHistory))
				r.Method(http.MethodPatch, "/watch-history/{videoId}", apiFunc(users.RemoveFromWatchHistory))
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(gate.Optional)
				r.Method(http.MethodGet, "/", apiFunc(videos.List))
				r.Method(http.MethodGet, "/{videoId}", apiFunc(videos.Get))
				r.Method(http.MethodPatch, "/view/{videoId}", apiFunc(videos.View))
				r.Method(http.MethodGet, "/stats/{videoId}", apiFunc(videos.Stats))
			})
			r.Group(func(r chi.Router) {
				r.Use(gate.Require)
				r.Method(http.MethodPost, "/", apiFunc(videos.Publish))
				r.Method(http.MethodPatch, "/{videoId}", apiFunc(videos.Update))
				r.Method(http.MethodDelete, "/{videoId}", apiFunc(videos.Delete))
				r.Method(http.MethodPatch, "/toggle/publish/{videoId}", apiFunc(videos.TogglePublish))
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(gate.Optional).Method(http.MethodGet, "/{videoId}", apiFunc(comments.List))
			r.Group(func(r chi.Router) {
				r.Use(gate.Require)
				r.Method(http.MethodPost, "/{videoId}", apiFunc(comments.Add))
				r.Method(http.MethodPatch, "/c/{commentId}", apiFunc(comments.Update))
				r.Method(http.MethodDelete, "/c/{commentId}", apiFunc(comments.Delete))
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(gate.Require)
			r.Method(http.MethodPost, "/toggle/v/{videoId}", apiFunc(likes.ToggleVideo))
			r.Method(http.MethodPost, "/toggle/c/{commentId}", apiFunc(likes.ToggleComment))
			r.Method(http.MethodPost, "/toggle/t/{tweetId}", apiFunc(likes.ToggleTweet))
			r.Method(http.MethodGet, "/videos", apiFunc(likes.LikedVideos))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.With(gate.Require).Method(http.MethodPost, "/c/{channelId}", apiFunc(subscriptions.Toggle))
			r.With(gate.Optional).Method(http.MethodGet, "/c/{channelId}", apiFunc(subscriptions.Subscribers))
			r.With(gate.Optional).Method(http.MethodGet, "/u/{subscriberId}", apiFunc(subscriptions.SubscribedChannels))
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(gate.Optional)
				r.Method(http.MethodGet, "/user/{userId}", apiFunc(playlists.ListForUser))
				r.Method(http.MethodGet, "/{playlistId}", apiFunc(playlists.Get))
			})
			r.Group(func(r chi.Router) {
				r.Use(gate.Require)
				r.Method(http.MethodPost, "/", apiFunc(playlists.Create))
				r.Method(http.MethodPatch, "/{playlistId}", apiFunc(playlists.Update))
				r.Method(http.MethodDelete, "/{playlistId}", apiFunc(playlists.Delete))
				r.Method(http.MethodPatch, "/add/{videoId}/{playlistId}", apiFunc(playlists.AddVideo))
				r.Method(http.MethodPatch, "/remove/{videoId}/{playlistId}", apiFunc(playlists.RemoveVideo))
				r.Method(http.MethodPatch, "/toggle/{playlistId}", apiFunc(playlists.ToggleVisibility))
				r.Method(http.MethodPost, "/save/watch-later/{videoId}", apiFunc(playlists.SaveToWatchLater))
				r.Method(http.MethodDelete, "/remove/watch-later/{videoId}", apiFunc(playlists.RemoveFromWatchLater))
				r.Method(http.MethodGet, "/get/watch-later", apiFunc(playlists.WatchLater))
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(gate.Optional).Method(http.MethodGet, "/user/{userId}", apiFunc(tweets.ListForUser))
			r.Group(func(r chi.Router) {
				r.Use(gate.Require)
				r.Method(http.MethodPost, "/", apiFunc(tweets.Create))
				r.Method(http.MethodPatch, "/{tweetId}", apiFunc(tweets.Update))
				r.Method(http.MethodDelete, "/{tweetId}", apiFunc(tweets.Delete))
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(gate.Require)
			r.Method(http.MethodGet, "/stats", apiFunc(dashboard.Stats))
			r.Method(http.MethodGet, "/videos", apiFunc(dashboard.ChannelVideos))
		})
	})

	return r
}
