package server

import (
	"net/http"

	"tunedeck/logger"
	"tunedeck/model"
)

// favoriteContext resolves the caller and their favorite playlist id.
func (h *APIHandler) favoriteContext(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		logger.Error("[Favorites] failed to load user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

// FavoriteTrackHandler adds a track to the caller's favorite playlist.
// Favoriting an already favorited track is a no-op.
func (h *APIHandler) FavoriteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := h.favoriteContext(w, r)
	if !ok {
		return
	}

	track, err := h.trackRepo.GetVisibleOrOwnedByID(r.Context(), trackID, user.ID)
	if err != nil {
		logger.Error("[Favorites] failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	exists, err := h.membershipRepo.Exists(r.Context(), user.FavoritePlaylistID, trackID)
	if err != nil {
		logger.Error("[Favorites] failed to check membership", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !exists {
		if err := h.membershipRepo.Add(r.Context(), user.FavoritePlaylistID, trackID); err != nil {
			logger.Error("[Favorites] failed to add favorite", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "favorited"})
}

// UnfavoriteTrackHandler removes a track from the caller's favorite playlist.
// Removing a track that was never favorited is a no-op.
func (h *APIHandler) UnfavoriteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := h.favoriteContext(w, r)
	if !ok {
		return
	}

	if _, err := h.membershipRepo.Remove(r.Context(), user.FavoritePlaylistID, trackID); err != nil {
		logger.Error("[Favorites] failed to remove favorite", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "unfavorited"})
}

// GetFavoritesHandler lists the caller's favorited tracks, paged.
func (h *APIHandler) GetFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.favoriteContext(w, r)
	if !ok {
		return
	}
	offset, limit := pagination(r)

	tracks, err := h.membershipRepo.ListTracksByPlaylist(r.Context(), user.FavoritePlaylistID, user.ID, offset, limit)
	if err != nil {
		logger.Error("[Favorites] failed to list favorites", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.membershipRepo.CountByPlaylist(r.Context(), user.FavoritePlaylistID)
	if err != nil {
		logger.Error("[Favorites] failed to count favorites", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.presentTracks(r.Context(), tracks)
	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks, "total": total})
}
