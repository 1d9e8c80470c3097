package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"tunedeck/logger"
	"tunedeck/model"
	"tunedeck/storage"

	"github.com/google/uuid"
)

// UploadTrackHandler handles audio uploads and metadata.
// Expected multipart form fields:
// - trackFile: the audio file (required)
// - coverFile: cover art image (optional)
// - name: track name (required)
// - author: track author
// - visibility: 0 hidden, 1 visible (default hidden)
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	trackFile, trackHeader, err := r.FormFile("trackFile")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing 'trackFile' in form")
		return
	}
	defer trackFile.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing 'name' in form")
		return
	}
	author := strings.TrimSpace(r.FormValue("author"))

	visibility := model.TrackHidden
	if v := r.FormValue("visibility"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (model.TrackVisibility(n) != model.TrackHidden && model.TrackVisibility(n) != model.TrackVisible) {
			respondError(w, http.StatusBadRequest, "invalid visibility")
			return
		}
		visibility = model.TrackVisibility(n)
	}

	objectName := fmt.Sprintf("audio/%s%s", uuid.NewString(), filepath.Ext(trackHeader.Filename))
	trackURI, err := storage.UploadStream(r.Context(), h.cfg.MinioTrackBucket, objectName, trackFile, trackHeader.Size, trackHeader.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("[Tracks] track upload failed", logger.ErrorField(err))
		respondError(w, http.StatusBadRequest, "track upload failed")
		return
	}

	// The cover is optional; a failed cover upload does not sink the track.
	var coverURI string
	if coverFile, coverHeader, err := r.FormFile("coverFile"); err == nil {
		defer coverFile.Close()
		coverObject := fmt.Sprintf("tracks/%s%s", uuid.NewString(), filepath.Ext(coverHeader.Filename))
		coverURI = storage.TryUploadStream(r.Context(), h.cfg.MinioCoverBucket, coverObject, coverFile, coverHeader.Size, coverHeader.Header.Get("Content-Type"))
	} else if err != http.ErrMissingFile {
		respondError(w, http.StatusBadRequest, "error processing cover file")
		return
	}

	track := &model.Track{
		OwnerUserID: userID,
		Name:        name,
		Author:      author,
		Visibility:  visibility,
		TrackURI:    trackURI,
		CoverURI:    coverURI,
	}
	id, err := h.trackRepo.Create(r.Context(), track)
	if err != nil {
		logger.Error("[Tracks] failed to create track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	track.ID = id

	logger.Info("[Tracks] track uploaded",
		logger.Int64("trackId", id),
		logger.Int64("userId", userID),
		logger.String("name", name),
	)
	out := *track
	h.presentTrack(r.Context(), &out)
	respondJSON(w, http.StatusCreated, &out)
}

// GetTracksHandler lists the caller's own tracks, paged.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	offset, limit := pagination(r)

	tracks, err := h.trackRepo.ListByOwner(r.Context(), userID, offset, limit)
	if err != nil {
		logger.Error("[Tracks] failed to list tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.trackRepo.CountByOwner(r.Context(), userID)
	if err != nil {
		logger.Error("[Tracks] failed to count tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.presentTracks(r.Context(), tracks)
	respondJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks, "total": total})
}

// GetTrackHandler returns one track if it is visible or owned by the caller.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := optionalUserID(r.Context())

	track, err := h.trackRepo.GetVisibleOrOwnedByID(r.Context(), trackID, userID)
	if err != nil {
		logger.Error("[Tracks] failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	out := *track
	h.presentTrack(r.Context(), &out)
	respondJSON(w, http.StatusOK, &out)
}

// UpdateTrackHandler edits a track the caller owns. Multipart form fields
// name, author and visibility update metadata; coverFile replaces the cover
// and removeCover clears it. Sending both is rejected.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	track, err := h.trackRepo.GetOwnedByID(r.Context(), trackID, userID)
	if err != nil {
		logger.Error("[Tracks] failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	if name := strings.TrimSpace(r.FormValue("name")); name != "" {
		track.Name = name
	}
	if author := strings.TrimSpace(r.FormValue("author")); author != "" {
		track.Author = author
	}
	if v := r.FormValue("visibility"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (model.TrackVisibility(n) != model.TrackHidden && model.TrackVisibility(n) != model.TrackVisible) {
			respondError(w, http.StatusBadRequest, "invalid visibility")
			return
		}
		track.Visibility = model.TrackVisibility(n)
	}

	removeCover := r.FormValue("removeCover") == "true"
	coverFile, coverHeader, coverErr := r.FormFile("coverFile")
	if coverErr == nil && removeCover {
		coverFile.Close()
		respondError(w, http.StatusBadRequest, "can't both replace and remove the cover")
		return
	}

	switch {
	case coverErr == nil:
		defer coverFile.Close()
		coverObject := fmt.Sprintf("tracks/%s%s", uuid.NewString(), filepath.Ext(coverHeader.Filename))
		uri, err := storage.UploadStream(r.Context(), h.cfg.MinioCoverBucket, coverObject, coverFile, coverHeader.Size, coverHeader.Header.Get("Content-Type"))
		if err != nil {
			logger.Error("[Tracks] cover upload failed", logger.ErrorField(err))
			respondError(w, http.StatusBadRequest, "cover upload failed")
			return
		}
		track.CoverURI = uri
	case coverErr == http.ErrMissingFile:
		if removeCover {
			track.CoverURI = ""
		}
	default:
		respondError(w, http.StatusBadRequest, "error processing cover file")
		return
	}

	if err := h.trackRepo.Update(r.Context(), track); err != nil {
		logger.Error("[Tracks] failed to update track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := *track
	h.presentTrack(r.Context(), &out)
	respondJSON(w, http.StatusOK, &out)
}

// DeleteTrackHandler deletes a track the caller owns.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	track, err := h.trackRepo.GetOwnedByID(r.Context(), trackID, userID)
	if err != nil {
		logger.Error("[Tracks] failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.trackRepo.Delete(r.Context(), trackID); err != nil {
		logger.Error("[Tracks] failed to delete track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Best-effort cleanup of the stored objects.
	h.removeURI(r.Context(), track.TrackURI)
	h.removeURI(r.Context(), track.CoverURI)

	logger.Info("[Tracks] track deleted",
		logger.Int64("trackId", trackID),
		logger.Int64("userId", userID),
	)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
