package playlist

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateName checks a user-supplied playlist name against the allowed
// bounds. Generated names (the favorite playlist, clone suffixes) bypass it.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < minPlaylistNameLen || n > maxPlaylistNameLen {
		return fmt.Errorf("%w: playlist name must be %d-%d characters", ErrValidation, minPlaylistNameLen, maxPlaylistNameLen)
	}
	return nil
}

// CheckQuota returns ErrQuotaExceeded when owned has reached the per-user
// playlist ceiling.
func CheckQuota(owned int) error {
	if owned >= maxPlaylistsPerUser {
		return ErrQuotaExceeded
	}
	return nil
}
