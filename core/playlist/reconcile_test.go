package playlist

import (
	"context"
	"testing"

	"tunedeck/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileAddDuplicateAndDelete(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "working set", model.PlaylistPrivate)
	t1 := s.addTrack(owner.ID, model.TrackVisible)
	t2 := s.addTrack(owner.ID, model.TrackVisible)
	s.addMembership(p.ID, t2.ID)

	before := s.membershipCount(p.ID)

	r := NewReconciler(s, s)
	results, err := r.ReconcileTracks(context.Background(), p.ID, []TrackAction{
		{TrackID: t1.ID, Action: ActionAdd},
		{TrackID: t1.ID, Action: ActionAdd},
		{TrackID: t2.ID, Action: ActionDelete},
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, ActionResult{TrackID: t1.ID, Outcome: OutcomeAdded}, results[0])
	assert.Equal(t, ActionResult{TrackID: t1.ID, Outcome: OutcomeAlreadyAdded}, results[1])
	assert.Equal(t, ActionResult{TrackID: t2.ID, Outcome: OutcomeDeleted}, results[2])

	// Net effect: one added (t1), one removed (t2).
	assert.Equal(t, before, s.membershipCount(p.ID))
	ids, _ := s.TrackIDsByPlaylist(context.Background(), p.ID)
	assert.Equal(t, []int64{t1.ID}, ids)
}

func TestReconcileAddIsIdempotentAcrossCalls(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "repeat after me", model.PlaylistPrivate)
	tr := s.addTrack(owner.ID, model.TrackVisible)

	r := NewReconciler(s, s)
	ctx := context.Background()

	results, err := r.ReconcileTracks(ctx, p.ID, []TrackAction{{TrackID: tr.ID, Action: ActionAdd}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, results[0].Outcome)

	results, err = r.ReconcileTracks(ctx, p.ID, []TrackAction{{TrackID: tr.ID, Action: ActionAdd}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAdded, results[0].Outcome)

	assert.Equal(t, 1, s.membershipCount(p.ID), "no duplicate membership row")
}

func TestReconcileDeleteOfNonMember(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "nothing here", model.PlaylistPrivate)
	tr := s.addTrack(owner.ID, model.TrackVisible)

	r := NewReconciler(s, s)
	results, err := r.ReconcileTracks(context.Background(), p.ID, []TrackAction{
		{TrackID: tr.ID, Action: ActionDelete},
	})
	require.NoError(t, err, "delete of a non-member never errors")
	assert.Equal(t, OutcomeNotAMember, results[0].Outcome)
	assert.Equal(t, 0, s.membershipCount(p.ID))
}

func TestReconcileUnknownTrackReportsNotFound(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "ghost tracks", model.PlaylistPrivate)

	r := NewReconciler(s, s)
	results, err := r.ReconcileTracks(context.Background(), p.ID, []TrackAction{
		{TrackID: 12345, Action: ActionAdd},
		{TrackID: 12345, Action: ActionDelete},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, results[0].Outcome)
	assert.Equal(t, OutcomeNotFound, results[1].Outcome)
	assert.Equal(t, 0, s.membershipCount(p.ID))
}

func TestReconcileDeleteThenReAdd(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "back and forth", model.PlaylistPrivate)
	tr := s.addTrack(owner.ID, model.TrackVisible)
	s.addMembership(p.ID, tr.ID)

	r := NewReconciler(s, s)
	results, err := r.ReconcileTracks(context.Background(), p.ID, []TrackAction{
		{TrackID: tr.ID, Action: ActionDelete},
		{TrackID: tr.ID, Action: ActionAdd},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, results[0].Outcome)
	assert.Equal(t, OutcomeAdded, results[1].Outcome)
	assert.Equal(t, 1, s.membershipCount(p.ID))
}

func TestReconcileRejectsUnknownAction(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "strict input", model.PlaylistPrivate)
	tr := s.addTrack(owner.ID, model.TrackVisible)

	r := NewReconciler(s, s)
	_, err := r.ReconcileTracks(context.Background(), p.ID, []TrackAction{
		{TrackID: tr.ID, Action: ActionKind("upsert")},
	})
	assert.ErrorIs(t, err, ErrValidation)
}
