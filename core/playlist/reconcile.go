package playlist

import (
	"context"
	"fmt"
)

// TrackAction is a requested membership edit.
type TrackAction struct {
	TrackID int64
	Action  ActionKind
}

// ActionKind is the requested operation on one track.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionDelete ActionKind = "delete"
)

// ActionOutcome reports what happened to one requested action.
type ActionOutcome string

const (
	// OutcomeAdded: a membership row was inserted.
	OutcomeAdded ActionOutcome = "added"
	// OutcomeAlreadyAdded: the track was already a member, nothing inserted.
	OutcomeAlreadyAdded ActionOutcome = "alreadyAdded"
	// OutcomeDeleted: a membership row was removed.
	OutcomeDeleted ActionOutcome = "deleted"
	// OutcomeNotAMember: delete requested but the track was not a member.
	OutcomeNotAMember ActionOutcome = "notAMember"
	// OutcomeNotFound: the track id does not resolve at all.
	OutcomeNotFound ActionOutcome = "notFound"
)

// ActionResult pairs a requested track id with its outcome. Results are
// emitted in request order.
type ActionResult struct {
	TrackID int64
	Outcome ActionOutcome
}

// Reconciler applies bulk add/delete membership edits idempotently against
// current membership. The caller must have passed CanModifyTracks for the
// playlist before invoking.
type Reconciler struct {
	tracks      TrackStore
	memberships MembershipStore
}

// NewReconciler creates a Reconciler.
func NewReconciler(tracks TrackStore, memberships MembershipStore) *Reconciler {
	return &Reconciler{tracks: tracks, memberships: memberships}
}

// ReconcileTracks resolves the requested track ids, then applies each action
// in request order against an in-memory view of current membership. The view
// is updated as actions apply, so a duplicate Add within one request reports
// AlreadyAdded and an Add following a Delete re-inserts.
func (r *Reconciler) ReconcileTracks(ctx context.Context, playlistID int64, actions []TrackAction) ([]ActionResult, error) {
	ids := make([]int64, 0, len(actions))
	seen := make(map[int64]struct{}, len(actions))
	for _, a := range actions {
		if _, ok := seen[a.TrackID]; ok {
			continue
		}
		seen[a.TrackID] = struct{}{}
		ids = append(ids, a.TrackID)
	}

	tracks, err := r.tracks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tracks for playlist %d: %w", playlistID, err)
	}
	known := make(map[int64]struct{}, len(tracks))
	for _, t := range tracks {
		known[t.ID] = struct{}{}
	}

	memberIDs, err := r.memberships.TrackIDsByPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership of playlist %d: %w", playlistID, err)
	}
	members := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	results := make([]ActionResult, 0, len(actions))
	for _, a := range actions {
		if _, ok := known[a.TrackID]; !ok {
			results = append(results, ActionResult{TrackID: a.TrackID, Outcome: OutcomeNotFound})
			continue
		}

		switch a.Action {
		case ActionAdd:
			if _, member := members[a.TrackID]; member {
				results = append(results, ActionResult{TrackID: a.TrackID, Outcome: OutcomeAlreadyAdded})
				continue
			}
			if err := r.memberships.Add(ctx, playlistID, a.TrackID); err != nil {
				return nil, fmt.Errorf("failed to add track %d to playlist %d: %w", a.TrackID, playlistID, err)
			}
			members[a.TrackID] = struct{}{}
			results = append(results, ActionResult{TrackID: a.TrackID, Outcome: OutcomeAdded})

		case ActionDelete:
			removed, err := r.memberships.Remove(ctx, playlistID, a.TrackID)
			if err != nil {
				return nil, fmt.Errorf("failed to remove track %d from playlist %d: %w", a.TrackID, playlistID, err)
			}
			if !removed {
				results = append(results, ActionResult{TrackID: a.TrackID, Outcome: OutcomeNotAMember})
				continue
			}
			delete(members, a.TrackID)
			results = append(results, ActionResult{TrackID: a.TrackID, Outcome: OutcomeDeleted})

		default:
			return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, a.Action)
		}
	}

	return results, nil
}
