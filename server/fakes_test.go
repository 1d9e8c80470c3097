package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	"tunedeck/config"
	"tunedeck/core/auth"
	"tunedeck/core/playlist"
	"tunedeck/db"
	"tunedeck/model"
	"tunedeck/repository"
)

// testState is the in-memory backend shared by the per-repository fakes.
type testState struct {
	nextID     int64
	users      map[int64]*model.User
	tracks     map[int64]*model.Track
	playlists  map[int64]*model.Playlist
	members    map[int64][]int64
	grants     map[string]bool
	refreshIDs map[string]*model.RefreshToken
}

func newTestState() *testState {
	return &testState{
		users:      make(map[int64]*model.User),
		tracks:     make(map[int64]*model.Track),
		playlists:  make(map[int64]*model.Playlist),
		members:    make(map[int64][]int64),
		grants:     make(map[string]bool),
		refreshIDs: make(map[string]*model.RefreshToken),
	}
}

func (s *testState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *testState) addUser(username string) *model.User {
	u := &model.User{ID: s.id(), Username: username, Email: username + "@example.com"}
	s.users[u.ID] = u
	return u
}

func (s *testState) addPlaylist(owner int64, name string, vis model.PlaylistVisibility) *model.Playlist {
	p := &model.Playlist{ID: s.id(), OwnerUserID: owner, Name: name, Visibility: vis, CreatedAt: time.Now()}
	s.playlists[p.ID] = p
	return p
}

func (s *testState) addTrack(owner int64, name string, vis model.TrackVisibility) *model.Track {
	t := &model.Track{ID: s.id(), OwnerUserID: owner, Name: name, Author: "artist", Visibility: vis, TrackURI: fmt.Sprintf("minio://tracks/%d", s.nextID)}
	s.tracks[t.ID] = t
	return t
}

func (s *testState) addMember(playlistID, trackID int64) {
	s.members[playlistID] = append(s.members[playlistID], trackID)
}

func (s *testState) grant(playlistID, userID int64, perm model.PlaylistPermission) {
	s.grants[grantKey(playlistID, userID, perm)] = true
}

func grantKey(playlistID, userID int64, perm model.PlaylistPermission) string {
	return fmt.Sprintf("%d:%d:%d", playlistID, userID, perm)
}

type fakeUserRepo struct{ s *testState }

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.s.users[id], nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) CreateWithQueryer(_ context.Context, _ db.Queryer, user *model.User) (int64, error) {
	user.ID = f.s.id()
	f.s.users[user.ID] = user
	return user.ID, nil
}

func (f *fakeUserRepo) SetFavoritePlaylistWithQueryer(_ context.Context, _ db.Queryer, userID, playlistID int64) error {
	f.s.users[userID].FavoritePlaylistID = playlistID
	return nil
}

type fakeTrackRepo struct{ s *testState }

func (f *fakeTrackRepo) Create(_ context.Context, track *model.Track) (int64, error) {
	track.ID = f.s.id()
	f.s.tracks[track.ID] = track
	return track.ID, nil
}

func (f *fakeTrackRepo) GetByID(_ context.Context, id int64) (*model.Track, error) {
	return f.s.tracks[id], nil
}

func (f *fakeTrackRepo) GetByIDs(_ context.Context, ids []int64) ([]*model.Track, error) {
	var out []*model.Track
	for _, id := range ids {
		if t, ok := f.s.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) GetVisibleOrOwnedByID(_ context.Context, id, userID int64) (*model.Track, error) {
	t := f.s.tracks[id]
	if t == nil || (t.Visibility != model.TrackVisible && t.OwnerUserID != userID) {
		return nil, nil
	}
	return t, nil
}

func (f *fakeTrackRepo) GetOwnedByID(_ context.Context, id, userID int64) (*model.Track, error) {
	t := f.s.tracks[id]
	if t == nil || t.OwnerUserID != userID {
		return nil, nil
	}
	return t, nil
}

func (f *fakeTrackRepo) ListByOwner(_ context.Context, ownerUserID int64, offset, limit int) ([]*model.Track, error) {
	var out []*model.Track
	for _, t := range f.s.tracks {
		if t.OwnerUserID == ownerUserID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, offset, limit), nil
}

func (f *fakeTrackRepo) CountByOwner(_ context.Context, ownerUserID int64) (int, error) {
	n := 0
	for _, t := range f.s.tracks {
		if t.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTrackRepo) Update(_ context.Context, track *model.Track) error {
	f.s.tracks[track.ID] = track
	return nil
}

func (f *fakeTrackRepo) Delete(_ context.Context, id int64) error {
	delete(f.s.tracks, id)
	return nil
}

type fakePlaylistRepo struct{ s *testState }

func (f *fakePlaylistRepo) Create(_ context.Context, p *model.Playlist) (int64, error) {
	p.ID = f.s.id()
	f.s.playlists[p.ID] = p
	return p.ID, nil
}

func (f *fakePlaylistRepo) GetByID(_ context.Context, id int64) (*model.Playlist, error) {
	return f.s.playlists[id], nil
}

func (f *fakePlaylistRepo) CountByOwner(_ context.Context, ownerUserID int64) (int, error) {
	n := 0
	for _, p := range f.s.playlists {
		if p.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (f *fakePlaylistRepo) NamesByOwner(_ context.Context, ownerUserID int64) ([]string, error) {
	var names []string
	for _, p := range f.s.playlists {
		if p.OwnerUserID == ownerUserID {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (f *fakePlaylistRepo) ListVisibleTo(_ context.Context, userID int64, offset, limit int) ([]*model.Playlist, error) {
	var out []*model.Playlist
	for _, p := range f.s.playlists {
		visible := p.Visibility == model.PlaylistPublic || p.OwnerUserID == userID
		if !visible && userID != 0 {
			for _, perm := range []model.PlaylistPermission{model.PermissionFull, model.PermissionAllowedToModifyTracks, model.PermissionAllowedToView} {
				if f.s.grants[grantKey(p.ID, userID, perm)] {
					visible = true
					break
				}
			}
		}
		if visible {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, offset, limit), nil
}

func (f *fakePlaylistRepo) UpdateName(_ context.Context, id int64, name string) error {
	f.s.playlists[id].Name = name
	return nil
}

func (f *fakePlaylistRepo) UpdateCoverURI(_ context.Context, id int64, coverURI string) error {
	f.s.playlists[id].CoverURI = coverURI
	return nil
}

func (f *fakePlaylistRepo) Delete(_ context.Context, id int64) error {
	delete(f.s.playlists, id)
	delete(f.s.members, id)
	return nil
}

type fakeMembershipRepo struct{ s *testState }

func (f *fakeMembershipRepo) TrackIDsByPlaylist(_ context.Context, playlistID int64) ([]int64, error) {
	return append([]int64(nil), f.s.members[playlistID]...), nil
}

func (f *fakeMembershipRepo) Add(_ context.Context, playlistID, trackID int64) error {
	f.s.addMember(playlistID, trackID)
	return nil
}

func (f *fakeMembershipRepo) Remove(_ context.Context, playlistID, trackID int64) (bool, error) {
	ids := f.s.members[playlistID]
	for i, id := range ids {
		if id == trackID {
			f.s.members[playlistID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembershipRepo) Exists(_ context.Context, playlistID, trackID int64) (bool, error) {
	for _, id := range f.s.members[playlistID] {
		if id == trackID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembershipRepo) ListTracksByPlaylist(_ context.Context, playlistID, viewerUserID int64, offset, limit int) ([]*model.Track, error) {
	var out []*model.Track
	for _, id := range f.s.members[playlistID] {
		if t, ok := f.s.tracks[id]; ok {
			c := *t
			if c.Visibility == model.TrackHidden && c.OwnerUserID != viewerUserID {
				c.TrackURI = ""
				c.CoverURI = ""
			}
			out = append(out, &c)
		}
	}
	return page(out, offset, limit), nil
}

func (f *fakeMembershipRepo) CountByPlaylist(_ context.Context, playlistID int64) (int, error) {
	return len(f.s.members[playlistID]), nil
}

type fakePermissionRepo struct{ s *testState }

func (f *fakePermissionRepo) HasAnyPermission(_ context.Context, playlistID, userID int64, tiers ...model.PlaylistPermission) (bool, error) {
	for _, tier := range tiers {
		if f.s.grants[grantKey(playlistID, userID, tier)] {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePermissionRepo) Grant(_ context.Context, playlistID, userID int64, perm model.PlaylistPermission) error {
	f.s.grant(playlistID, userID, perm)
	return nil
}

func (f *fakePermissionRepo) Revoke(_ context.Context, playlistID, userID int64, perm model.PlaylistPermission) (bool, error) {
	key := grantKey(playlistID, userID, perm)
	had := f.s.grants[key]
	delete(f.s.grants, key)
	return had, nil
}

func (f *fakePermissionRepo) RevokeAll(_ context.Context, playlistID, userID int64) (int64, error) {
	var n int64
	for _, perm := range []model.PlaylistPermission{model.PermissionFull, model.PermissionAllowedToModifyTracks, model.PermissionAllowedToView} {
		key := grantKey(playlistID, userID, perm)
		if f.s.grants[key] {
			delete(f.s.grants, key)
			n++
		}
	}
	return n, nil
}

type fakeRefreshRepo struct{ s *testState }

func (f *fakeRefreshRepo) Create(_ context.Context, token *model.RefreshToken) (int64, error) {
	token.ID = f.s.id()
	f.s.refreshIDs[token.Token] = token
	return token.ID, nil
}

func (f *fakeRefreshRepo) GetActiveByToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt := f.s.refreshIDs[token]
	if rt == nil || rt.Revoked || rt.ValidDue.Before(time.Now()) {
		return nil, nil
	}
	return rt, nil
}

func (f *fakeRefreshRepo) Revoke(_ context.Context, id int64) error {
	for _, rt := range f.s.refreshIDs {
		if rt.ID == id {
			rt.Revoked = true
		}
	}
	return nil
}

func (f *fakeRefreshRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	for _, rt := range f.s.refreshIDs {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// fakeUow stages clone writes in memory and applies them on Commit, so the
// clone endpoint runs without a database.
type fakeUow struct{ s *testState }

func (u *fakeUow) Begin(_ context.Context) (playlist.Tx, error) {
	return &fakeTx{s: u.s}, nil
}

type fakeTx struct {
	s        *testState
	playlist *model.Playlist
	members  []int64
	done     bool
}

func (t *fakeTx) CreatePlaylist(_ context.Context, p *model.Playlist) (int64, error) {
	p.ID = t.s.id()
	t.playlist = p
	return p.ID, nil
}

func (t *fakeTx) AddTrackToPlaylist(_ context.Context, _, trackID int64) error {
	t.members = append(t.members, trackID)
	return nil
}

func (t *fakeTx) Commit() error {
	t.s.playlists[t.playlist.ID] = t.playlist
	t.s.members[t.playlist.ID] = t.members
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.done = true
	return nil
}

const testSigningKey = "test-signing-key"

func newTestHandler(s *testState) *APIHandler {
	cfg := &config.Config{
		JWTSigningKey:    testSigningKey,
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		MinioTrackBucket: "tracks",
		MinioCoverBucket: "covers",
	}
	h := NewAPIHandler(
		&fakeUserRepo{s},
		&fakeTrackRepo{s},
		&fakePlaylistRepo{s},
		&fakeMembershipRepo{s},
		&fakePermissionRepo{s},
		&fakeRefreshRepo{s},
		repository.NewUnitOfWork(nil),
		auth.NewTokenIssuer(testSigningKey, time.Hour),
		cfg,
	)
	h.denylistJti = func(context.Context, string, time.Duration) error { return nil }
	h.resolveURI = func(_ context.Context, uri string) string { return uri }
	h.removeURI = func(context.Context, string) {}
	h.cloneEngine = playlist.NewCloneEngine(
		&fakePlaylistRepo{s},
		&fakeTrackRepo{s},
		&fakeMembershipRepo{s},
		&fakeUserRepo{s},
		h.evaluator,
		&fakeUow{s},
	)
	return h
}

// serve routes the request through the real route table.
func serve(h *APIHandler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, r)
	return rec
}

func bearer(t *auth.TokenIssuer, user *model.User) string {
	token, _, _ := t.GenerateToken(user.ID, user.Username)
	return "Bearer " + token
}
