package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tunedeck/core/auth"
	"tunedeck/logger"
	"tunedeck/model"
	"tunedeck/repository"
)

const favoritePlaylistName = "Favorites"

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	// Login accepts a username or an email address.
	Login    string `json:"login"`
	Password string `json:"password"`
}

// tokenPairResponse carries a fresh access/refresh pair plus the user.
type tokenPairResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user,omitempty"`
}

// issueTokenPair signs an access token and persists the paired refresh token.
func (h *APIHandler) issueTokenPair(r *http.Request, user *model.User) (*tokenPairResponse, error) {
	access, jti, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	refresh := &model.RefreshToken{
		UserID:   user.ID,
		Jti:      jti,
		Token:    auth.NewRefreshTokenValue(),
		ValidDue: time.Now().Add(h.cfg.RefreshTokenTTL),
	}
	if _, err := h.refreshTokenRepo.Create(r.Context(), refresh); err != nil {
		return nil, err
	}

	return &tokenPairResponse{Token: access, RefreshToken: refresh.Token, User: user}, nil
}

// RegisterHandler creates a user together with their private favorite
// playlist. Both rows land in one transaction so no user exists without one.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		logger.Error("[Register] failed to query user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] failed to hash password", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	tx, err := h.uow.BeginTx(r.Context())
	if err != nil {
		logger.Error("[Register] failed to begin transaction", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback()

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	userID, err := h.userRepo.CreateWithQueryer(r.Context(), tx.Queryer(), user)
	if err != nil {
		logger.Error("[Register] failed to create user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	favorite := &model.Playlist{
		OwnerUserID: userID,
		Name:        favoritePlaylistName,
		Visibility:  model.PlaylistPrivate,
	}
	favoriteID, err := tx.CreatePlaylist(r.Context(), favorite)
	if err != nil {
		logger.Error("[Register] failed to create favorite playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.userRepo.SetFavoritePlaylistWithQueryer(r.Context(), tx.Queryer(), userID, favoriteID); err != nil {
		logger.Error("[Register] failed to bind favorite playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := tx.Commit(); err != nil {
		logger.Error("[Register] failed to commit", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user.ID = userID
	user.FavoritePlaylistID = favoriteID

	pair, err := h.issueTokenPair(r, user)
	if err != nil {
		logger.Error("[Register] failed to issue tokens", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("[Register] user registered",
		logger.Int64("userId", userID),
		logger.String("username", user.Username),
	)
	respondJSON(w, http.StatusCreated, pair)
}

// LoginHandler handles user login requests.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Login, "@") {
		user, err = h.userRepo.GetByEmail(r.Context(), repository.NormalizeEmail(req.Login))
	} else {
		user, err = h.userRepo.GetByUsername(r.Context(), req.Login)
	}
	if err != nil {
		logger.Error("[Login] failed to query user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] invalid credentials", logger.String("login", req.Login))
		respondError(w, http.StatusUnauthorized, "invalid login or password")
		return
	}

	pair, err := h.issueTokenPair(r, user)
	if err != nil {
		logger.Error("[Login] failed to issue tokens", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("[Login] login successful", logger.String("username", user.Username))
	respondJSON(w, http.StatusOK, pair)
}

// RefreshHandler rotates a refresh token: the presented token is revoked and
// a fresh access/refresh pair is issued. A reused or expired token gets 401.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	stored, err := h.refreshTokenRepo.GetActiveByToken(r.Context(), req.RefreshToken)
	if err != nil {
		logger.Error("[Refresh] failed to query refresh token", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if stored == nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), stored.UserID)
	if err != nil {
		logger.Error("[Refresh] failed to load user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	if err := h.refreshTokenRepo.Revoke(r.Context(), stored.ID); err != nil {
		logger.Error("[Refresh] failed to revoke refresh token", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pair, err := h.issueTokenPair(r, user)
	if err != nil {
		logger.Error("[Refresh] failed to issue tokens", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	pair.User = nil

	respondJSON(w, http.StatusOK, pair)
}

// LogoutHandler revokes the caller's refresh tokens and denylists the access
// token's jti so the session cannot be resumed.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.refreshTokenRepo.RevokeAllForUser(r.Context(), userID); err != nil {
		logger.Error("[Logout] failed to revoke refresh tokens", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The access token stays dead for its remaining lifetime. A denylist
	// failure is logged, not surfaced; logout still succeeds.
	if jti := getJtiFromContext(r.Context()); jti != "" {
		if err := h.denylistJti(r.Context(), jti, h.cfg.AccessTokenTTL); err != nil {
			logger.Warn("[Logout] failed to denylist jti", logger.ErrorField(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// MeHandler returns the authenticated user's profile.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		logger.Error("[Me] failed to load user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
