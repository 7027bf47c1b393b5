// Package instance resolves the identity under which this process
// participates in coordination.
//
// Identity is resolved in precedence order: an explicit override (the
// --instance flag), the LOCKSTEP_INSTANCE_ID environment variable, the
// instance file at <checkout root>/.lockstep/instance.json, and finally a
// freshly generated ID persisted back to that file. The file keeps identity
// stable across the one-shot hook processes of a single agent session. It
// lives at the checkout root, not the shared coordination directory, so each
// worktree coordinates under its own identity.
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

const (
	// EnvVar names the environment variable that overrides the persisted
	// identity.
	EnvVar = "LOCKSTEP_INSTANCE_ID"

	// FileName is the identity file kept under the checkout's .lockstep
	// directory.
	FileName = "instance.json"

	// IDPrefix marks generated identities apart from operator-supplied ones.
	IDPrefix = "agent-"

	// MaxIDLength is the maximum length for an instance ID.
	MaxIDLength = 128
)

// IDPattern is the regex pattern for valid instance IDs. IDs appear in lease
// records, log lines and status output, so they are restricted to printable
// path-safe characters.
var IDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Source identifies where an identity was resolved from.
type Source string

const (
	SourceFlag      Source = "flag"
	SourceEnv       Source = "env"
	SourceFile      Source = "file"
	SourceGenerated Source = "generated"
)

// Identity is the per-checkout coordination identity.
type Identity struct {
	ID        string    `json:"instance_id"`
	CreatedAt time.Time `json:"created_at"`

	// Source records how this identity was resolved. It is not persisted;
	// a loaded identity always reports SourceFile.
	Source Source `json:"-"`
}

// FilePath returns the identity file location for a checkout.
func FilePath(checkoutRoot string) string {
	return filepath.Join(checkoutRoot, ".lockstep", FileName)
}

// ValidateID checks an instance ID against the naming rules.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewValidationError("instance ID cannot be empty").
			WithField("instance_id").
			WithValue(id)
	}

	if len(id) > MaxIDLength {
		return errors.NewValidationError(
			fmt.Sprintf("instance ID too long: %d characters (max: %d)", len(id), MaxIDLength)).
			WithField("instance_id").
			WithValue(id)
	}

	if !IDPattern.MatchString(id) {
		return errors.NewValidationError(
			"instance ID must be alphanumeric with dots, underscores or hyphens").
			WithField("instance_id").
			WithValue(id)
	}

	return nil
}

// Generate mints a new identity.
func Generate() *Identity {
	return &Identity{
		ID:        IDPrefix + uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Source:    SourceGenerated,
	}
}

// Load reads the persisted identity for a checkout.
func Load(checkoutRoot string) (*Identity, error) {
	path := FilePath(checkoutRoot)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("instance file", path).WithCause(err)
		}
		return nil, errors.Wrapf(err, "failed to read instance file %s", path)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, errors.Wrapf(err, "corrupt instance file %s", path)
	}
	if err := ValidateID(id.ID); err != nil {
		return nil, errors.Wrapf(err, "corrupt instance file %s", path)
	}

	id.Source = SourceFile
	return &id, nil
}

// Save persists the identity at the checkout root, creating the .lockstep
// directory if needed. The write is atomic so a concurrent reader never sees
// a partial file.
func Save(checkoutRoot string, id *Identity) error {
	if err := ValidateID(id.ID); err != nil {
		return err
	}

	path := FilePath(checkoutRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create instance directory")
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal identity")
	}

	return atomicWriteFile(path, data, 0644)
}

// Regenerate mints a new identity and persists it, replacing any existing
// file. Leases held under the previous identity age out via their TTL.
func Regenerate(checkoutRoot string) (*Identity, error) {
	id := Generate()
	if err := Save(checkoutRoot, id); err != nil {
		return nil, err
	}
	return id, nil
}

// Resolve returns the identity this process coordinates under.
//
// Precedence: override (the --instance flag) wins, then LOCKSTEP_INSTANCE_ID,
// then the persisted instance file, then a freshly generated identity. A
// generated identity is persisted back so later invocations in the same
// session reuse it; persistence is best-effort because an unwritable checkout
// must not stop this invocation from coordinating.
func Resolve(checkoutRoot, override string) (*Identity, error) {
	if override != "" {
		if err := ValidateID(override); err != nil {
			return nil, err
		}
		return &Identity{ID: override, CreatedAt: time.Now().UTC(), Source: SourceFlag}, nil
	}

	if env := os.Getenv(EnvVar); env != "" {
		if err := ValidateID(env); err != nil {
			return nil, err
		}
		return &Identity{ID: env, CreatedAt: time.Now().UTC(), Source: SourceEnv}, nil
	}

	// A file that cannot be read or cannot prove an identity is replaced,
	// not honored.
	if id, err := Load(checkoutRoot); err == nil {
		return id, nil
	}

	id := Generate()
	_ = Save(checkoutRoot, id)
	return id, nil
}

// atomicWriteFile writes data to path via a temp file and rename.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "failed to write temp file")
	}

	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return errors.Wrap(err, "failed to set permissions")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}

	success = true
	return nil
}
