package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunedeck/config"
	"tunedeck/core/auth"
	"tunedeck/db"
	"tunedeck/logger"
	"tunedeck/model"
	"tunedeck/repository"
	"tunedeck/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	defer logger.Sync()

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	if cfg.MigrateOnStart {
		if err := db.ConnectGormDB(cfg); err != nil {
			logger.Fatal("failed to connect for migration", logger.ErrorField(err))
		}
		err := db.AutoMigrateModels(
			&model.User{},
			&model.Playlist{},
			&model.Track{},
			&model.TrackPlaylist{},
			&model.PlaylistUserPermission{},
			&model.RefreshToken{},
		)
		if cerr := db.CloseGormDB(); cerr != nil {
			logger.Warn("failed to close migration connection", logger.ErrorField(cerr))
		}
		if err != nil {
			logger.Fatal("failed to migrate schema", logger.ErrorField(err))
		}
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)
	membershipRepo := repository.NewMySQLTrackPlaylistRepository(db.DB)
	permissionRepo := repository.NewMySQLPermissionRepository(db.DB)
	refreshTokenRepo := repository.NewMySQLRefreshTokenRepository(db.DB)
	uow := repository.NewUnitOfWork(db.DB)
	tokens := auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.AccessTokenTTL)

	apiHandler := NewAPIHandler(
		userRepo,
		trackRepo,
		playlistRepo,
		membershipRepo,
		permissionRepo,
		refreshTokenRepo,
		uow,
		tokens,
		cfg,
	)

	router := NewRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", logger.ErrorField(err))
	}
}

// NewRouter builds the API route table.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Auth
	router.HandleFunc("/api/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/refresh", h.RefreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", h.AuthMiddleware(h.LogoutHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet)

	// Tracks
	router.HandleFunc("/api/tracks", h.AuthMiddleware(h.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", h.AuthMiddleware(h.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", h.OptionalAuthMiddleware(h.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", h.AuthMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)

	// Favorites
	router.HandleFunc("/api/tracks/{id}/favorite", h.AuthMiddleware(h.FavoriteTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/favorite", h.AuthMiddleware(h.UnfavoriteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/favorites", h.AuthMiddleware(h.GetFavoritesHandler)).Methods(http.MethodGet)

	// Playlists
	router.HandleFunc("/api/playlists", h.OptionalAuthMiddleware(h.GetPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", h.OptionalAuthMiddleware(h.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/clone", h.AuthMiddleware(h.ClonePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}/tracks", h.AuthMiddleware(h.PlaylistTracksHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/cover", h.AuthMiddleware(h.UploadPlaylistCoverHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}/permissions", h.AuthMiddleware(h.GrantPermissionHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}/permissions", h.AuthMiddleware(h.RevokePermissionHandler)).Methods(http.MethodDelete)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
