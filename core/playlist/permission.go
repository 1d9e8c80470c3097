package playlist

import (
	"context"
	"fmt"

	"tunedeck/model"
)

// PermissionEvaluator answers the three capability checks gating playlist
// operations. Each threshold is its own predicate because each call site
// needs a different tier set OR-ed together; keeping them separate keeps the
// authorization query auditable per call site.
//
// An anonymous caller passes userID 0: it owns nothing and holds no grants,
// so only CanView can succeed, through the Public visibility branch. A
// nonexistent playlist yields false for all three checks, never an error.
type PermissionEvaluator struct {
	playlists   PlaylistStore
	permissions PermissionStore
}

// NewPermissionEvaluator creates a PermissionEvaluator.
func NewPermissionEvaluator(playlists PlaylistStore, permissions PermissionStore) *PermissionEvaluator {
	return &PermissionEvaluator{playlists: playlists, permissions: permissions}
}

// CanView reports whether the user may read the playlist: it is public, the
// user owns it, or the user holds any permission tier on it.
func (e *PermissionEvaluator) CanView(ctx context.Context, playlistID, userID int64) (bool, error) {
	p, err := e.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to load playlist %d: %w", playlistID, err)
	}
	if p == nil {
		return false, nil
	}
	if p.Visibility == model.PlaylistPublic || p.OwnerUserID == userID {
		return true, nil
	}
	if userID == 0 {
		return false, nil
	}

	return e.permissions.HasAnyPermission(ctx, playlistID, userID,
		model.PermissionAllowedToView, model.PermissionAllowedToModifyTracks, model.PermissionFull)
}

// CanModifyTracks reports whether the user may edit the playlist's membership:
// ownership, or a ModifyTracks/Full grant.
func (e *PermissionEvaluator) CanModifyTracks(ctx context.Context, playlistID, userID int64) (bool, error) {
	p, err := e.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to load playlist %d: %w", playlistID, err)
	}
	if p == nil {
		return false, nil
	}
	if p.OwnerUserID == userID && userID != 0 {
		return true, nil
	}
	if userID == 0 {
		return false, nil
	}

	return e.permissions.HasAnyPermission(ctx, playlistID, userID,
		model.PermissionAllowedToModifyTracks, model.PermissionFull)
}

// CanFullAccess reports whether the user holds owner-equivalent access:
// ownership, or a Full grant.
func (e *PermissionEvaluator) CanFullAccess(ctx context.Context, playlistID, userID int64) (bool, error) {
	p, err := e.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to load playlist %d: %w", playlistID, err)
	}
	if p == nil {
		return false, nil
	}
	if p.OwnerUserID == userID && userID != 0 {
		return true, nil
	}
	if userID == 0 {
		return false, nil
	}

	return e.permissions.HasAnyPermission(ctx, playlistID, userID, model.PermissionFull)
}
