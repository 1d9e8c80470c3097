package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tunedeck/config"
	"tunedeck/core/auth"
	"tunedeck/core/playlist"
	"tunedeck/db"
	"tunedeck/logger"
	"tunedeck/model"
	"tunedeck/repository"
	"tunedeck/storage"

	"github.com/gorilla/mux"
)

// APIHandler handles all API requests.
type APIHandler struct {
	userRepo         repository.UserRepository
	trackRepo        repository.TrackRepository
	playlistRepo     repository.PlaylistRepository
	membershipRepo   repository.TrackPlaylistRepository
	permissionRepo   repository.PermissionRepository
	refreshTokenRepo repository.RefreshTokenRepository
	uow              *repository.UnitOfWork
	evaluator        *playlist.PermissionEvaluator
	reconciler       *playlist.Reconciler
	cloneEngine      *playlist.CloneEngine
	tokens           *auth.TokenIssuer
	cfg              *config.Config
	// Redis-backed jti revocation, injectable for tests.
	jtiDenylisted func(ctx context.Context, jti string) bool
	denylistJti   func(ctx context.Context, jti string, ttl time.Duration) error

	// Object-storage hooks, injectable for tests.
	resolveURI func(ctx context.Context, uri string) string
	removeURI  func(ctx context.Context, uri string)
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	trackRepo repository.TrackRepository,
	playlistRepo repository.PlaylistRepository,
	membershipRepo repository.TrackPlaylistRepository,
	permissionRepo repository.PermissionRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	uow *repository.UnitOfWork,
	tokens *auth.TokenIssuer,
	cfg *config.Config,
) *APIHandler {
	evaluator := playlist.NewPermissionEvaluator(playlistRepo, permissionRepo)
	return &APIHandler{
		userRepo:         userRepo,
		trackRepo:        trackRepo,
		playlistRepo:     playlistRepo,
		membershipRepo:   membershipRepo,
		permissionRepo:   permissionRepo,
		refreshTokenRepo: refreshTokenRepo,
		uow:              uow,
		evaluator:        evaluator,
		reconciler:       playlist.NewReconciler(trackRepo, membershipRepo),
		cloneEngine:      playlist.NewCloneEngine(playlistRepo, trackRepo, membershipRepo, userRepo, evaluator, uow),
		tokens:           tokens,
		cfg:              cfg,
		jtiDenylisted:    db.IsJtiDenylisted,
		denylistJti:      db.DenylistJti,
		resolveURI:       storage.ResolveURI,
		removeURI:        storage.TryRemoveURI,
	}
}

type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
	jtiKey      contextKey = "jti"
)

// AuthMiddleware is a middleware function that checks for a valid JWT token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := h.tokens.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Tokens revoked at logout are denied until they would expire anyway.
		if h.jtiDenylisted(r.Context(), claims.ID) {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, usernameKey, claims.Username)
		ctx = context.WithValue(ctx, jtiKey, claims.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

func getJtiFromContext(ctx context.Context) string {
	jti, _ := ctx.Value(jtiKey).(string)
	return jti
}

// optionalUserID returns the authenticated user id or 0 for anonymous
// callers, on routes that serve both.
func optionalUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(userIDKey).(int64)
	return userID
}

// OptionalAuthMiddleware resolves the caller when a Bearer token is present
// but lets anonymous requests through.
func (h *APIHandler) OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}
		h.AuthMiddleware(next).ServeHTTP(w, r)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondCoreError translates engine sentinel errors into HTTP responses.
// Missing resources and insufficient permission share one response so a
// caller can't tell locked playlists from nonexistent ones.
func respondCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playlist.ErrNotFound), errors.Is(err, playlist.ErrForbidden):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, playlist.ErrQuotaExceeded):
		respondError(w, http.StatusBadRequest, "playlist limit reached")
	case errors.Is(err, playlist.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("internal error", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// presentTrack swaps stored object references for fetchable signed URLs in
// one track about to be returned.
func (h *APIHandler) presentTrack(ctx context.Context, t *model.Track) {
	t.TrackURI = h.resolveURI(ctx, t.TrackURI)
	t.CoverURI = h.resolveURI(ctx, t.CoverURI)
}

func (h *APIHandler) presentTracks(ctx context.Context, tracks []*model.Track) {
	for _, t := range tracks {
		h.presentTrack(ctx, t)
	}
}

// pagination reads offset/limit query params with sane bounds.
func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return offset, limit
}
