package instance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if !strings.HasPrefix(id.ID, IDPrefix) {
		t.Errorf("ID = %q, want prefix %q", id.ID, IDPrefix)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id.ID, IDPrefix)); err != nil {
		t.Errorf("ID suffix should be a valid uuid: %v", err)
	}
	if id.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if id.Source != SourceGenerated {
		t.Errorf("Source = %q, want %q", id.Source, SourceGenerated)
	}

	other := Generate()
	if other.ID == id.ID {
		t.Errorf("two generated identities should differ, both %q", id.ID)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "agent-1", false},
		{"uuid style", "agent-" + uuid.New().String(), false},
		{"with dots and underscores", "host.worker_3", false},
		{"single character", "a", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"leading hyphen", "-agent", true},
		{"contains space", "agent one", true},
		{"contains slash", "agent/one", true},
		{"contains newline", "agent\n1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestFilePath(t *testing.T) {
	result := FilePath("/repos/main")
	expected := filepath.Join("/repos/main", ".lockstep", "instance.json")
	if result != expected {
		t.Errorf("FilePath() = %q, want %q", result, expected)
	}
}

func TestSaveLoad(t *testing.T) {
	root := t.TempDir()

	saved := Generate()
	if err := Save(root, saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.ID != saved.ID {
		t.Errorf("loaded ID = %q, want %q", loaded.ID, saved.ID)
	}
	if !loaded.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("loaded CreatedAt = %v, want %v", loaded.CreatedAt, saved.CreatedAt)
	}
	if loaded.Source != SourceFile {
		t.Errorf("loaded Source = %q, want %q", loaded.Source, SourceFile)
	}
}

func TestSave_InvalidID(t *testing.T) {
	root := t.TempDir()

	err := Save(root, &Identity{ID: "not a valid id"})
	if err == nil {
		t.Fatal("expected error for invalid ID")
	}
}

func TestLoad_Missing(t *testing.T) {
	root := t.TempDir()

	_, err := Load(root)
	if err == nil {
		t.Fatal("expected error for missing instance file")
	}

	var notFound *errors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		root := t.TempDir()
		writeInstanceFile(t, root, "{not json")

		if _, err := Load(root); err == nil {
			t.Fatal("expected error for corrupt instance file")
		}
	})

	t.Run("missing instance_id", func(t *testing.T) {
		root := t.TempDir()
		writeInstanceFile(t, root, `{"created_at":"2026-01-02T15:04:05Z"}`)

		if _, err := Load(root); err == nil {
			t.Fatal("expected error for instance file without an ID")
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("flag override wins", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "env-id")
		mustSave(t, root, "file-id")

		id, err := Resolve(root, "flag-id")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.ID != "flag-id" {
			t.Errorf("ID = %q, want %q", id.ID, "flag-id")
		}
		if id.Source != SourceFlag {
			t.Errorf("Source = %q, want %q", id.Source, SourceFlag)
		}
	})

	t.Run("env wins over file", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "env-id")
		mustSave(t, root, "file-id")

		id, err := Resolve(root, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.ID != "env-id" {
			t.Errorf("ID = %q, want %q", id.ID, "env-id")
		}
		if id.Source != SourceEnv {
			t.Errorf("Source = %q, want %q", id.Source, SourceEnv)
		}
	})

	t.Run("file wins over generation", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "")
		mustSave(t, root, "file-id")

		id, err := Resolve(root, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.ID != "file-id" {
			t.Errorf("ID = %q, want %q", id.ID, "file-id")
		}
		if id.Source != SourceFile {
			t.Errorf("Source = %q, want %q", id.Source, SourceFile)
		}
	})

	t.Run("generates and persists when nothing is set", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "")

		id, err := Resolve(root, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !strings.HasPrefix(id.ID, IDPrefix) {
			t.Errorf("ID = %q, want generated prefix %q", id.ID, IDPrefix)
		}
		if id.Source != SourceGenerated {
			t.Errorf("Source = %q, want %q", id.Source, SourceGenerated)
		}

		// Later invocations in the same session reuse the persisted ID
		again, err := Resolve(root, "")
		if err != nil {
			t.Fatalf("second Resolve() error = %v", err)
		}
		if again.ID != id.ID {
			t.Errorf("second Resolve() ID = %q, want %q", again.ID, id.ID)
		}
		if again.Source != SourceFile {
			t.Errorf("second Resolve() Source = %q, want %q", again.Source, SourceFile)
		}
	})

	t.Run("replaces corrupt file", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "")
		writeInstanceFile(t, root, "{not json")

		id, err := Resolve(root, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !strings.HasPrefix(id.ID, IDPrefix) {
			t.Errorf("ID = %q, want generated prefix %q", id.ID, IDPrefix)
		}

		loaded, err := Load(root)
		if err != nil {
			t.Fatalf("Load() after replacement error = %v", err)
		}
		if loaded.ID != id.ID {
			t.Errorf("persisted ID = %q, want %q", loaded.ID, id.ID)
		}
	})

	t.Run("invalid override is rejected", func(t *testing.T) {
		root := t.TempDir()

		if _, err := Resolve(root, "not a valid id"); err == nil {
			t.Fatal("expected error for invalid override")
		}
	})

	t.Run("invalid env is rejected", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(EnvVar, "not a valid id")

		if _, err := Resolve(root, ""); err == nil {
			t.Fatal("expected error for invalid env identity")
		}
	})
}

func TestRegenerate(t *testing.T) {
	root := t.TempDir()
	mustSave(t, root, "old-id")

	id, err := Regenerate(root)
	if err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if id.ID == "old-id" {
		t.Error("Regenerate() should mint a fresh ID")
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != id.ID {
		t.Errorf("persisted ID = %q, want %q", loaded.ID, id.ID)
	}
}

func mustSave(t *testing.T, root, id string) {
	t.Helper()
	if err := Save(root, &Identity{ID: id}); err != nil {
		t.Fatalf("Save(%q) error = %v", id, err)
	}
}

func writeInstanceFile(t *testing.T, root, content string) {
	t.Helper()
	path := FilePath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
