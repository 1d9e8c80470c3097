package playlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tunedeck/logger"
	"tunedeck/model"
)

// CloneEngine deep-copies a playlist and its eligible track memberships into
// a new playlist owned by the cloning user. The copy runs inside one unit of
// work: a failure at any step after the playlist insert rolls the whole clone
// back, so a half-populated clone is never visible.
type CloneEngine struct {
	playlists   PlaylistStore
	tracks      TrackStore
	memberships MembershipStore
	users       UserStore
	evaluator   *PermissionEvaluator
	uow         UnitOfWork
}

// NewCloneEngine creates a CloneEngine.
func NewCloneEngine(
	playlists PlaylistStore,
	tracks TrackStore,
	memberships MembershipStore,
	users UserStore,
	evaluator *PermissionEvaluator,
	uow UnitOfWork,
) *CloneEngine {
	return &CloneEngine{
		playlists:   playlists,
		tracks:      tracks,
		memberships: memberships,
		users:       users,
		evaluator:   evaluator,
		uow:         uow,
	}
}

// ClonePlaylist copies the source playlist for the requesting user, with
// newName overriding the source name when non-blank. Hidden tracks owned by
// someone other than the requester are not carried into the clone. The
// source cover is not carried either; the clone starts without one.
func (e *CloneEngine) ClonePlaylist(ctx context.Context, sourcePlaylistID, userID int64, newName string) (*model.Playlist, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if user.FavoritePlaylistID == sourcePlaylistID {
		return nil, fmt.Errorf("%w: the favorite playlist can't be cloned", ErrValidation)
	}

	source, err := e.playlists.GetByID(ctx, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %d: %w", sourcePlaylistID, err)
	}
	if source == nil {
		return nil, ErrNotFound
	}

	ownedNames, err := e.playlists.NamesByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists of user %d: %w", userID, err)
	}
	if len(ownedNames) >= maxPlaylistsPerUser {
		return nil, ErrQuotaExceeded
	}

	if source.OwnerUserID != userID {
		canView, err := e.evaluator.CanView(ctx, sourcePlaylistID, userID)
		if err != nil {
			return nil, err
		}
		if !canView {
			// Same outcome as a missing playlist, existence stays hidden.
			return nil, ErrNotFound
		}
	}

	name := e.resolveCloneName(source.Name, newName, ownedNames)

	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin clone transaction: %w", err)
	}
	defer tx.Rollback()

	clone := &model.Playlist{
		OwnerUserID: userID,
		Name:        name,
		Visibility:  source.Visibility,
		CreatedAt:   time.Now(),
	}

	cloneID, err := tx.CreatePlaylist(ctx, clone)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloned playlist: %w", err)
	}
	clone.ID = cloneID

	memberIDs, err := e.memberships.TrackIDsByPlaylist(ctx, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership of playlist %d: %w", sourcePlaylistID, err)
	}

	eligible, err := e.eligibleTrackIDs(ctx, memberIDs, userID)
	if err != nil {
		return nil, err
	}

	for _, trackID := range eligible {
		if err := tx.AddTrackToPlaylist(ctx, cloneID, trackID); err != nil {
			return nil, fmt.Errorf("failed to copy track %d into playlist %d: %w", trackID, cloneID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit clone of playlist %d: %w", sourcePlaylistID, err)
	}

	logger.Info("Playlist cloned",
		logger.Int64("sourcePlaylistId", sourcePlaylistID),
		logger.Int64("clonePlaylistId", cloneID),
		logger.Int64("userId", userID),
		logger.Int("copiedTracks", len(eligible)),
	)

	return clone, nil
}

// resolveCloneName picks the clone's final name: the requested name when
// non-blank, else the source name; a collision with one of the requester's
// existing names gets a disambiguating suffix.
func (e *CloneEngine) resolveCloneName(sourceName, requestedName string, ownedNames []string) string {
	name := sourceName
	if trimmed := strings.TrimSpace(requestedName); trimmed != "" {
		name = trimmed
	}

	for _, owned := range ownedNames {
		if owned == name {
			return name + " (1)"
		}
	}
	return name
}

// eligibleTrackIDs filters source memberships down to tracks that are
// Visible or owned by the cloning user, preserving membership order.
func (e *CloneEngine) eligibleTrackIDs(ctx context.Context, memberIDs []int64, userID int64) ([]int64, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}

	tracks, err := e.tracks.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member tracks: %w", err)
	}

	byID := make(map[int64]*model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	eligible := make([]int64, 0, len(memberIDs))
	for _, id := range memberIDs {
		t, ok := byID[id]
		if !ok {
			continue
		}
		if t.Visibility == model.TrackVisible || t.OwnerUserID == userID {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}
