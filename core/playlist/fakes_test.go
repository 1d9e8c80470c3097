package playlist

import (
	"context"
	"errors"
	"sync"

	"tunedeck/model"
)

// memStore is an in-memory stand-in for the MySQL repositories, implementing
// every store interface the engines consume.
type memStore struct {
	mu sync.Mutex

	nextID      int64
	users       map[int64]*model.User
	playlists   map[int64]*model.Playlist
	tracks      map[int64]*model.Track
	memberships []*model.TrackPlaylist
	permissions []*model.PlaylistUserPermission
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[int64]*model.User),
		playlists: make(map[int64]*model.Playlist),
		tracks:    make(map[int64]*model.Track),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(favoritePlaylistID int64) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: s.id(), FavoritePlaylistID: favoritePlaylistID}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addPlaylist(owner int64, name string, vis model.PlaylistVisibility) *model.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Playlist{ID: s.id(), OwnerUserID: owner, Name: name, Visibility: vis}
	s.playlists[p.ID] = p
	return p
}

func (s *memStore) addTrack(owner int64, vis model.TrackVisibility) *model.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &model.Track{ID: s.id(), OwnerUserID: owner, Visibility: vis}
	s.tracks[t.ID] = t
	return t
}

func (s *memStore) addMembership(playlistID, trackID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, &model.TrackPlaylist{ID: s.id(), PlaylistID: playlistID, TrackID: trackID})
}

func (s *memStore) grant(playlistID, userID int64, perm model.PlaylistPermission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = append(s.permissions, &model.PlaylistUserPermission{
		ID: s.id(), PlaylistID: playlistID, UserID: userID, Permission: perm,
	})
}

func (s *memStore) membershipCount(playlistID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.PlaylistID == playlistID {
			n++
		}
	}
	return n
}

// UserStore

func (s *memStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

// PlaylistStore (method names disambiguated via wrapper below)

type playlistStoreView struct{ s *memStore }

func (v playlistStoreView) GetByID(ctx context.Context, id int64) (*model.Playlist, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.playlists[id], nil
}

func (v playlistStoreView) NamesByOwner(ctx context.Context, owner int64) ([]string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var names []string
	for _, p := range v.s.playlists {
		if p.OwnerUserID == owner {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// TrackStore

func (s *memStore) GetByIDs(ctx context.Context, ids []int64) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Track
	for _, id := range ids {
		if t, ok := s.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// MembershipStore

func (s *memStore) TrackIDsByPlaylist(ctx context.Context, playlistID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, m := range s.memberships {
		if m.PlaylistID == playlistID {
			ids = append(ids, m.TrackID)
		}
	}
	return ids, nil
}

func (s *memStore) Add(ctx context.Context, playlistID, trackID int64) error {
	for _, m := range s.memberships {
		if m.PlaylistID == playlistID && m.TrackID == trackID {
			return errors.New("duplicate membership row")
		}
	}
	s.addMembership(playlistID, trackID)
	return nil
}

func (s *memStore) Remove(ctx context.Context, playlistID, trackID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.memberships {
		if m.PlaylistID == playlistID && m.TrackID == trackID {
			s.memberships = append(s.memberships[:i], s.memberships[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// PermissionStore

func (s *memStore) HasAnyPermission(ctx context.Context, playlistID, userID int64, tiers ...model.PlaylistPermission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.permissions {
		if p.PlaylistID != playlistID || p.UserID != userID {
			continue
		}
		for _, tier := range tiers {
			if p.Permission == tier {
				return true, nil
			}
		}
	}
	return false, nil
}

// memUnitOfWork stages writes and applies them on Commit, discards on
// Rollback. failAddAfter > 0 makes the n-th AddTrackToPlaylist call fail, to
// exercise mid-clone faults.
type memUnitOfWork struct {
	store        *memStore
	failAddAfter int
}

func (u *memUnitOfWork) Begin(ctx context.Context) (Tx, error) {
	return &memTx{uow: u}, nil
}

type memTx struct {
	uow      *memUnitOfWork
	adds     int
	done     bool
	playlist *model.Playlist
	members  []*model.TrackPlaylist
}

func (t *memTx) CreatePlaylist(ctx context.Context, p *model.Playlist) (int64, error) {
	cp := *p
	cp.ID = t.uow.store.id()
	t.playlist = &cp
	return cp.ID, nil
}

func (t *memTx) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64) error {
	t.adds++
	if t.uow.failAddAfter > 0 && t.adds >= t.uow.failAddAfter {
		return errors.New("simulated storage fault")
	}
	t.members = append(t.members, &model.TrackPlaylist{PlaylistID: playlistID, TrackID: trackID})
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already resolved")
	}
	t.done = true

	s := t.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.playlist != nil {
		s.playlists[t.playlist.ID] = t.playlist
	}
	for _, m := range t.members {
		m.ID = s.id()
		s.memberships = append(s.memberships, m)
	}
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.playlist = nil
	t.members = nil
	return nil
}
