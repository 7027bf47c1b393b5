package gitroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

// makePrimaryCheckout creates a directory with a .git directory.
func makePrimaryCheckout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatalf("failed to create .git directory: %v", err)
	}
	return dir
}

// makeWorktree creates a linked-worktree layout: a primary checkout with a
// .git/worktrees/<name> directory, and a worktree directory whose .git file
// points at it. Returns (worktreeDir, primaryDir).
func makeWorktree(t *testing.T, name string) (string, string) {
	t.Helper()
	primary := makePrimaryCheckout(t)

	gitDir := filepath.Join(primary, ".git", "worktrees", name)
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("failed to create worktree git dir: %v", err)
	}

	worktree := t.TempDir()
	gitFile := filepath.Join(worktree, ".git")
	if err := os.WriteFile(gitFile, []byte("gitdir: "+gitDir+"\n"), 0644); err != nil {
		t.Fatalf("failed to write .git file: %v", err)
	}

	return worktree, primary
}

// mockCall records a single command invocation
type mockCall struct {
	dir  string
	name string
	args []string
}

// mockExecutor is a test double for CommandExecutor
type mockExecutor struct {
	calls  []mockCall
	output []byte
	err    error
}

func (m *mockExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, mockCall{dir: dir, name: name, args: args})
	return m.output, m.err
}

func TestCheckoutRoot(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) (startDir string, wantRoot string)
		wantErr bool
	}{
		{
			name: "from checkout root",
			setup: func(t *testing.T) (string, string) {
				dir := makePrimaryCheckout(t)
				return dir, dir
			},
		},
		{
			name: "from nested subdirectory",
			setup: func(t *testing.T) (string, string) {
				dir := makePrimaryCheckout(t)
				subDir := filepath.Join(dir, "internal", "cmd", "deep")
				if err := os.MkdirAll(subDir, 0755); err != nil {
					t.Fatalf("failed to create subdirectory: %v", err)
				}
				return subDir, dir
			},
		},
		{
			name: "from worktree with .git file",
			setup: func(t *testing.T) (string, string) {
				worktree, _ := makeWorktree(t, "agent-a")
				return worktree, worktree
			},
		},
		{
			name: "non-git directory",
			setup: func(t *testing.T) (string, string) {
				return t.TempDir(), ""
			},
			wantErr: true,
		},
		{
			name: "non-existent directory",
			setup: func(t *testing.T) (string, string) {
				return "/non/existent/path", ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			startDir, wantRoot := tt.setup(t)
			gotRoot, err := CheckoutRoot(startDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckoutRoot() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrNotGitRepository) {
					t.Errorf("CheckoutRoot() error = %v, want ErrNotGitRepository", err)
				}
				return
			}
			// Resolve symlinks for comparison (macOS /var -> /private/var)
			resolvedWant, _ := filepath.EvalSymlinks(wantRoot)
			resolvedGot, _ := filepath.EvalSymlinks(gotRoot)
			if resolvedGot != resolvedWant {
				t.Errorf("CheckoutRoot() = %v, want %v", gotRoot, wantRoot)
			}
		})
	}
}

func TestResolverCommonRoot(t *testing.T) {
	t.Run("primary checkout is its own common root", func(t *testing.T) {
		dir := makePrimaryCheckout(t)

		r := NewResolver()
		common, err := r.CommonRoot(dir)
		if err != nil {
			t.Fatalf("CommonRoot() error = %v", err)
		}
		if common != dir {
			t.Errorf("CommonRoot() = %v, want %v", common, dir)
		}
	})

	t.Run("worktree resolves to primary checkout", func(t *testing.T) {
		worktree, primary := makeWorktree(t, "agent-a")

		r := NewResolver()
		common, err := r.CommonRoot(worktree)
		if err != nil {
			t.Fatalf("CommonRoot() error = %v", err)
		}
		if common != primary {
			t.Errorf("CommonRoot() = %v, want %v", common, primary)
		}
	})

	t.Run("worktree resolution does not shell out", func(t *testing.T) {
		worktree, _ := makeWorktree(t, "agent-b")

		exec := &mockExecutor{}
		r := NewResolverWithExecutor(exec)
		if _, err := r.CommonRoot(worktree); err != nil {
			t.Fatalf("CommonRoot() error = %v", err)
		}
		if len(exec.calls) != 0 {
			t.Errorf("expected no git invocations, got %d", len(exec.calls))
		}
	})

	t.Run("non-standard gitdir falls back to git CLI", func(t *testing.T) {
		// gitdir points somewhere that is not .git/worktrees/<name>
		worktree := t.TempDir()
		oddGitDir := filepath.Join(t.TempDir(), "odd", "location")
		if err := os.MkdirAll(oddGitDir, 0755); err != nil {
			t.Fatalf("failed to create git dir: %v", err)
		}
		gitFile := filepath.Join(worktree, ".git")
		if err := os.WriteFile(gitFile, []byte("gitdir: "+oddGitDir+"\n"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		mainRepo := filepath.Join("/", "repos", "main")
		exec := &mockExecutor{output: []byte(filepath.Join(mainRepo, ".git") + "\n")}
		r := NewResolverWithExecutor(exec)

		common, err := r.CommonRoot(worktree)
		if err != nil {
			t.Fatalf("CommonRoot() error = %v", err)
		}
		if common != mainRepo {
			t.Errorf("CommonRoot() = %v, want %v", common, mainRepo)
		}

		if len(exec.calls) != 1 {
			t.Fatalf("expected 1 git invocation, got %d", len(exec.calls))
		}
		call := exec.calls[0]
		if call.dir != worktree || call.name != "git" {
			t.Errorf("unexpected invocation: %+v", call)
		}
		if len(call.args) != 2 || call.args[0] != "rev-parse" || call.args[1] != "--git-common-dir" {
			t.Errorf("unexpected git args: %v", call.args)
		}
	})

	t.Run("relative common dir is resolved against checkout root", func(t *testing.T) {
		worktree := t.TempDir()
		gitFile := filepath.Join(worktree, ".git")
		if err := os.WriteFile(gitFile, []byte("not a gitdir pointer"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		exec := &mockExecutor{output: []byte(".git\n")}
		r := NewResolverWithExecutor(exec)

		common, err := r.CommonRoot(worktree)
		if err != nil {
			t.Fatalf("CommonRoot() error = %v", err)
		}
		if common != worktree {
			t.Errorf("CommonRoot() = %v, want %v", common, worktree)
		}
	})

	t.Run("missing .git yields ErrNotGitRepository", func(t *testing.T) {
		r := NewResolver()
		_, err := r.CommonRoot(t.TempDir())
		if !errors.Is(err, errors.ErrNotGitRepository) {
			t.Errorf("CommonRoot() error = %v, want ErrNotGitRepository", err)
		}
	})

	t.Run("git CLI failure yields ErrNotGitRepository", func(t *testing.T) {
		worktree := t.TempDir()
		gitFile := filepath.Join(worktree, ".git")
		if err := os.WriteFile(gitFile, []byte("not a gitdir pointer"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		exec := &mockExecutor{err: errors.New("git not found")}
		r := NewResolverWithExecutor(exec)

		_, err := r.CommonRoot(worktree)
		if !errors.Is(err, errors.ErrNotGitRepository) {
			t.Errorf("CommonRoot() error = %v, want ErrNotGitRepository", err)
		}
	})
}

func TestResolverDiscover(t *testing.T) {
	t.Run("primary checkout", func(t *testing.T) {
		dir := makePrimaryCheckout(t)
		subDir := filepath.Join(dir, "src")
		if err := os.MkdirAll(subDir, 0755); err != nil {
			t.Fatalf("failed to create subdirectory: %v", err)
		}

		r := NewResolver()
		roots, err := r.Discover(subDir)
		if err != nil {
			t.Fatalf("Discover() error = %v", err)
		}

		if roots.Checkout != dir {
			t.Errorf("Checkout = %v, want %v", roots.Checkout, dir)
		}
		if roots.Common != dir {
			t.Errorf("Common = %v, want %v", roots.Common, dir)
		}
		if roots.IsWorktree() {
			t.Error("IsWorktree() = true for primary checkout")
		}
	})

	t.Run("linked worktree", func(t *testing.T) {
		worktree, primary := makeWorktree(t, "agent-a")

		r := NewResolver()
		roots, err := r.Discover(worktree)
		if err != nil {
			t.Fatalf("Discover() error = %v", err)
		}

		if roots.Checkout != worktree {
			t.Errorf("Checkout = %v, want %v", roots.Checkout, worktree)
		}
		if roots.Common != primary {
			t.Errorf("Common = %v, want %v", roots.Common, primary)
		}
		if !roots.IsWorktree() {
			t.Error("IsWorktree() = false for linked worktree")
		}
	})

	t.Run("outside any checkout", func(t *testing.T) {
		r := NewResolver()
		_, err := r.Discover(t.TempDir())
		if !errors.Is(err, errors.ErrNotGitRepository) {
			t.Errorf("Discover() error = %v, want ErrNotGitRepository", err)
		}
	})
}

func TestWorktreeGitDir(t *testing.T) {
	t.Run("absolute gitdir", func(t *testing.T) {
		dir := t.TempDir()
		gitFile := filepath.Join(dir, ".git")
		if err := os.WriteFile(gitFile, []byte("gitdir: /repos/main/.git/worktrees/a\n"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		got, err := worktreeGitDir(gitFile)
		if err != nil {
			t.Fatalf("worktreeGitDir() error = %v", err)
		}
		want := filepath.Clean("/repos/main/.git/worktrees/a")
		if got != want {
			t.Errorf("worktreeGitDir() = %v, want %v", got, want)
		}
	})

	t.Run("relative gitdir is resolved against the file", func(t *testing.T) {
		dir := t.TempDir()
		gitFile := filepath.Join(dir, ".git")
		if err := os.WriteFile(gitFile, []byte("gitdir: ../main/.git/worktrees/a"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		got, err := worktreeGitDir(gitFile)
		if err != nil {
			t.Fatalf("worktreeGitDir() error = %v", err)
		}
		want := filepath.Join(filepath.Dir(dir), "main", ".git", "worktrees", "a")
		if got != want {
			t.Errorf("worktreeGitDir() = %v, want %v", got, want)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		gitFile := filepath.Join(dir, ".git")
		if err := os.WriteFile(gitFile, []byte("nonsense"), 0644); err != nil {
			t.Fatalf("failed to write .git file: %v", err)
		}

		if _, err := worktreeGitDir(gitFile); err == nil {
			t.Error("expected error for malformed .git file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := worktreeGitDir(filepath.Join(t.TempDir(), ".git")); err == nil {
			t.Error("expected error for missing .git file")
		}
	})
}
