package lockstore

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

// KeyLength is the length of a resource key in hex characters.
const KeyLength = 16

// Key derives the stable resource key for a path, plus the normalized form
// the key was computed from.
//
// The path is cleaned and made absolute, then expressed relative to
// checkoutRoot when it lies inside it. Keying on the relative form means the
// same logical file in two worktrees of one repository contends on a single
// lease. Paths outside any checkout (checkoutRoot empty, or the path escapes
// it) key on their absolute form. The normalized path is hashed so the key
// is filename-safe regardless of the path's depth or characters.
func Key(path, checkoutRoot string) (key, normalized string, err error) {
	if path == "" {
		return "", "", errors.NewValidationError("resource path cannot be empty").
			WithField("path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "cannot resolve path %s", path)
	}

	normalized = abs
	if checkoutRoot != "" {
		if rel, relErr := filepath.Rel(checkoutRoot, abs); relErr == nil && filepath.IsLocal(rel) {
			normalized = filepath.ToSlash(rel)
		}
	}

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:KeyLength/2]), normalized, nil
}
