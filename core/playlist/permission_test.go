package playlist

import (
	"context"
	"testing"

	"tunedeck/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(s *memStore) *PermissionEvaluator {
	return NewPermissionEvaluator(playlistStoreView{s}, s)
}

func TestCanViewPrivatePlaylist(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	stranger := s.addUser(0)
	p := s.addPlaylist(owner.ID, "late nights", model.PlaylistPrivate)

	e := newTestEvaluator(s)
	ctx := context.Background()

	canView, err := e.CanView(ctx, p.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, canView, "stranger must not see a private playlist")

	canView, err = e.CanView(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, canView, "owner always sees their playlist")

	s.grant(p.ID, stranger.ID, model.PermissionAllowedToView)

	canView, err = e.CanView(ctx, p.ID, stranger.ID)
	require.NoError(t, err)
	assert.True(t, canView, "view grant opens the playlist")

	canModify, err := e.CanModifyTracks(ctx, p.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, canModify, "view grant does not allow membership edits")
}

func TestPublicPlaylistViewableByAnyone(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "road trip mix", model.PlaylistPublic)

	e := newTestEvaluator(s)
	ctx := context.Background()

	// Anonymous callers pass userID 0.
	canView, err := e.CanView(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.True(t, canView)

	canModify, err := e.CanModifyTracks(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.False(t, canModify)

	canFull, err := e.CanFullAccess(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.False(t, canFull)
}

func TestNonexistentPlaylistYieldsFalseNotError(t *testing.T) {
	s := newMemStore()
	u := s.addUser(0)
	e := newTestEvaluator(s)
	ctx := context.Background()

	for name, check := range map[string]func(context.Context, int64, int64) (bool, error){
		"CanView":         e.CanView,
		"CanModifyTracks": e.CanModifyTracks,
		"CanFullAccess":   e.CanFullAccess,
	} {
		ok, err := check(ctx, 9999, u.ID)
		require.NoError(t, err, name)
		assert.False(t, ok, name)
	}
}

// Higher tiers always imply lower ones, for every way access can arise.
func TestPermissionMonotonicity(t *testing.T) {
	type setup func(s *memStore, playlistID, userID int64)

	cases := map[string]setup{
		"no access":    func(s *memStore, pid, uid int64) {},
		"view grant":   func(s *memStore, pid, uid int64) { s.grant(pid, uid, model.PermissionAllowedToView) },
		"modify grant": func(s *memStore, pid, uid int64) { s.grant(pid, uid, model.PermissionAllowedToModifyTracks) },
		"full grant":   func(s *memStore, pid, uid int64) { s.grant(pid, uid, model.PermissionFull) },
		"stacked grants": func(s *memStore, pid, uid int64) {
			s.grant(pid, uid, model.PermissionAllowedToView)
			s.grant(pid, uid, model.PermissionFull)
		},
	}

	for name, apply := range cases {
		t.Run(name, func(t *testing.T) {
			s := newMemStore()
			owner := s.addUser(0)
			user := s.addUser(0)
			p := s.addPlaylist(owner.ID, "monotone set", model.PlaylistPrivate)
			apply(s, p.ID, user.ID)

			e := newTestEvaluator(s)
			ctx := context.Background()

			canFull, err := e.CanFullAccess(ctx, p.ID, user.ID)
			require.NoError(t, err)
			canModify, err := e.CanModifyTracks(ctx, p.ID, user.ID)
			require.NoError(t, err)
			canView, err := e.CanView(ctx, p.ID, user.ID)
			require.NoError(t, err)

			if canFull {
				assert.True(t, canModify, "Full implies ModifyTracks")
			}
			if canModify {
				assert.True(t, canView, "ModifyTracks implies View")
			}
		})
	}
}

func TestOwnerHasFullAccessWithoutPermissionRow(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(0)
	p := s.addPlaylist(owner.ID, "owner things", model.PlaylistPrivate)

	e := newTestEvaluator(s)
	ctx := context.Background()

	canFull, err := e.CanFullAccess(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, canFull)
}
