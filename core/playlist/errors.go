package playlist

import "errors"

// Error taxonomy for the playlist core. Expected negative outcomes are
// sentinel errors checked with errors.Is at the HTTP boundary; anything else
// escaping the engines is an internal storage fault.
var (
	// ErrNotFound covers both a missing entity and a caller without view
	// permission. The two collapse deliberately so responses never reveal
	// whether a playlist exists.
	ErrNotFound = errors.New("playlist not found")

	// ErrQuotaExceeded is returned when a user at the playlist ceiling tries
	// to create or clone another one.
	ErrQuotaExceeded = errors.New("playlist quota exceeded")

	// ErrForbidden is returned when the caller is known but lacks the
	// required permission tier.
	ErrForbidden = errors.New("operation not permitted")

	// ErrValidation covers malformed input (name length, conflicting fields).
	ErrValidation = errors.New("validation failed")
)

// maxPlaylistsPerUser is the hard ceiling on playlists one user may own,
// enforced before create and clone.
const maxPlaylistsPerUser = 10

const (
	// User-supplied playlist names must be within these bounds.
	minPlaylistNameLen = 5
	maxPlaylistNameLen = 17
)
