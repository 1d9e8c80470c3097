package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"tunedeck/core/playlist"
	"tunedeck/logger"
	"tunedeck/model"
	"tunedeck/storage"

	"github.com/google/uuid"
)

// CreatePlaylistRequest represents the playlist creation body.
type CreatePlaylistRequest struct {
	Name       string                   `json:"name"`
	Visibility model.PlaylistVisibility `json:"visibility"`
}

// playlistDetailResponse is the playlist plus its member tracks.
type playlistDetailResponse struct {
	Playlist *model.Playlist `json:"playlist"`
	Tracks   []*model.Track  `json:"tracks"`
	Total    int             `json:"total"`
}

// trackActionRequest is one bulk membership edit.
type trackActionRequest struct {
	TrackID int64  `json:"trackId"`
	Action  string `json:"action"`
}

// trackActionResponse reports the outcome for one requested edit.
type trackActionResponse struct {
	TrackID int64  `json:"trackId"`
	Outcome string `json:"outcome"`
}

// GetPlaylistsHandler lists the playlists visible to the caller: public ones,
// their own, and those shared with them. Anonymous callers see public only.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID := optionalUserID(r.Context())
	offset, limit := pagination(r)

	playlists, err := h.playlistRepo.ListVisibleTo(r.Context(), userID, offset, limit)
	if err != nil {
		logger.Error("[Playlists] failed to list playlists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

// CreatePlaylistHandler creates a playlist owned by the caller.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := playlist.ValidateName(req.Name); err != nil {
		respondCoreError(w, err)
		return
	}
	if req.Visibility != model.PlaylistPrivate && req.Visibility != model.PlaylistPublic {
		respondError(w, http.StatusBadRequest, "invalid visibility")
		return
	}

	owned, err := h.playlistRepo.CountByOwner(r.Context(), userID)
	if err != nil {
		logger.Error("[Playlists] failed to count playlists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := playlist.CheckQuota(owned); err != nil {
		respondCoreError(w, err)
		return
	}

	p := &model.Playlist{
		OwnerUserID: userID,
		Name:        req.Name,
		Visibility:  req.Visibility,
	}
	id, err := h.playlistRepo.Create(r.Context(), p)
	if err != nil {
		logger.Error("[Playlists] failed to create playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	p.ID = id

	logger.Info("[Playlists] playlist created",
		logger.Int64("playlistId", id),
		logger.Int64("userId", userID),
	)
	respondJSON(w, http.StatusCreated, p)
}

// GetPlaylistHandler returns one playlist with its member tracks. Hidden
// tracks owned by someone else stay listed but their asset URIs are blanked.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := optionalUserID(r.Context())

	ok, err := h.evaluator.CanView(r.Context(), playlistID, userID)
	if err != nil {
		logger.Error("[Playlists] permission check failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	p, err := h.playlistRepo.GetByID(r.Context(), playlistID)
	if err != nil || p == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	offset, limit := pagination(r)
	tracks, err := h.membershipRepo.ListTracksByPlaylist(r.Context(), playlistID, userID, offset, limit)
	if err != nil {
		logger.Error("[Playlists] failed to list tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.membershipRepo.CountByPlaylist(r.Context(), playlistID)
	if err != nil {
		logger.Error("[Playlists] failed to count tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.presentTracks(r.Context(), tracks)
	out := *p
	out.CoverURI = h.resolveURI(r.Context(), p.CoverURI)

	respondJSON(w, http.StatusOK, playlistDetailResponse{Playlist: &out, Tracks: tracks, Total: total})
}

// UpdatePlaylistHandler renames a playlist. The favorite playlist keeps its
// generated name.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := playlist.ValidateName(req.Name); err != nil {
		respondCoreError(w, err)
		return
	}

	p, ok := h.requireFullAccess(w, r, playlistID, userID)
	if !ok {
		return
	}
	if h.isFavoritePlaylist(w, r, p) {
		return
	}

	if err := h.playlistRepo.UpdateName(r.Context(), playlistID, req.Name); err != nil {
		logger.Error("[Playlists] failed to rename playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeletePlaylistHandler deletes a playlist and its memberships. The favorite
// playlist cannot be deleted.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.requireFullAccess(w, r, playlistID, userID)
	if !ok {
		return
	}
	if h.isFavoritePlaylist(w, r, p) {
		return
	}

	if err := h.playlistRepo.Delete(r.Context(), playlistID); err != nil {
		logger.Error("[Playlists] failed to delete playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("[Playlists] playlist deleted",
		logger.Int64("playlistId", playlistID),
		logger.Int64("userId", userID),
	)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClonePlaylistHandler copies a playlist into the caller's library.
func (h *APIHandler) ClonePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	clone, err := h.cloneEngine.ClonePlaylist(r.Context(), playlistID, userID, req.Name)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, clone)
}

// PlaylistTracksHandler applies bulk add/delete membership edits for callers
// allowed to modify tracks.
func (h *APIHandler) PlaylistTracksHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Actions []trackActionRequest `json:"actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Actions) == 0 {
		respondError(w, http.StatusBadRequest, "actions are required")
		return
	}

	ok, err := h.evaluator.CanModifyTracks(r.Context(), playlistID, userID)
	if err != nil {
		logger.Error("[Playlists] permission check failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	actions := make([]playlist.TrackAction, 0, len(req.Actions))
	for _, a := range req.Actions {
		actions = append(actions, playlist.TrackAction{
			TrackID: a.TrackID,
			Action:  playlist.ActionKind(a.Action),
		})
	}

	results, err := h.reconciler.ReconcileTracks(r.Context(), playlistID, actions)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	resp := make([]trackActionResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, trackActionResponse{TrackID: res.TrackID, Outcome: string(res.Outcome)})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": resp})
}

// UploadPlaylistCoverHandler replaces a playlist's cover image.
func (h *APIHandler) UploadPlaylistCoverHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if _, ok := h.requireFullAccess(w, r, playlistID, userID); !ok {
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	coverFile, coverHeader, err := r.FormFile("coverFile")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing 'coverFile' in form")
		return
	}
	defer coverFile.Close()

	objectName := fmt.Sprintf("playlists/%s%s", uuid.NewString(), filepath.Ext(coverHeader.Filename))
	uri, err := storage.UploadStream(r.Context(), h.cfg.MinioCoverBucket, objectName, coverFile, coverHeader.Size, coverHeader.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("[Playlists] cover upload failed", logger.ErrorField(err))
		respondError(w, http.StatusBadRequest, "cover upload failed")
		return
	}

	if err := h.playlistRepo.UpdateCoverURI(r.Context(), playlistID, uri); err != nil {
		logger.Error("[Playlists] failed to store cover uri", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"coverUri": h.resolveURI(r.Context(), uri)})
}

// GrantPermissionRequest shares a playlist with another user at one tier.
type GrantPermissionRequest struct {
	UserID     int64                    `json:"userId"`
	Permission model.PlaylistPermission `json:"permission"`
}

// GrantPermissionHandler shares a playlist with another user.
func (h *APIHandler) GrantPermissionHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GrantPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Permission < model.PermissionFull || req.Permission > model.PermissionAllowedToView {
		respondError(w, http.StatusBadRequest, "invalid permission")
		return
	}

	p, ok := h.requireFullAccess(w, r, playlistID, userID)
	if !ok {
		return
	}
	if req.UserID == p.OwnerUserID {
		respondError(w, http.StatusBadRequest, "owner already has full access")
		return
	}

	target, err := h.userRepo.GetByID(r.Context(), req.UserID)
	if err != nil {
		logger.Error("[Playlists] failed to load grantee", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if target == nil {
		respondError(w, http.StatusBadRequest, "no such user")
		return
	}

	if err := h.permissionRepo.Grant(r.Context(), playlistID, req.UserID, req.Permission); err != nil {
		logger.Error("[Playlists] failed to grant permission", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("[Playlists] permission granted",
		logger.Int64("playlistId", playlistID),
		logger.Int64("granteeId", req.UserID),
		logger.Int("permission", int(req.Permission)),
	)
	respondJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// RevokePermissionHandler removes a grant, or every grant the target holds on
// the playlist when no tier is given.
func (h *APIHandler) RevokePermissionHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		UserID     int64                     `json:"userId"`
		Permission *model.PlaylistPermission `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := h.requireFullAccess(w, r, playlistID, userID); !ok {
		return
	}

	if req.Permission != nil {
		if _, err := h.permissionRepo.Revoke(r.Context(), playlistID, req.UserID, *req.Permission); err != nil {
			logger.Error("[Playlists] failed to revoke permission", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	} else {
		if _, err := h.permissionRepo.RevokeAll(r.Context(), playlistID, req.UserID); err != nil {
			logger.Error("[Playlists] failed to revoke permissions", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// requireFullAccess gates mutating playlist operations. Insufficient tier
// and missing playlist both yield the not-found response so callers can't
// tell locked playlists from nonexistent ones. Returns the playlist on success.
func (h *APIHandler) requireFullAccess(w http.ResponseWriter, r *http.Request, playlistID, userID int64) (*model.Playlist, bool) {
	ok, err := h.evaluator.CanFullAccess(r.Context(), playlistID, userID)
	if err != nil {
		logger.Error("[Playlists] permission check failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return nil, false
	}

	p, err := h.playlistRepo.GetByID(r.Context(), playlistID)
	if err != nil {
		logger.Error("[Playlists] failed to load playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return p, true
}

// isFavoritePlaylist rejects mutations of the owner's favorite playlist and
// reports whether it already wrote a response.
func (h *APIHandler) isFavoritePlaylist(w http.ResponseWriter, r *http.Request, p *model.Playlist) bool {
	owner, err := h.userRepo.GetByID(r.Context(), p.OwnerUserID)
	if err != nil {
		logger.Error("[Playlists] failed to load owner", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return true
	}
	if owner != nil && owner.FavoritePlaylistID == p.ID {
		respondError(w, http.StatusBadRequest, "the favorite playlist can't be modified")
		return true
	}
	return false
}
