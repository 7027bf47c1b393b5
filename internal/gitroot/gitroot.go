// Package gitroot discovers the checkout and repository roots that anchor
// lock coordination. The checkout root is the directory containing .git
// (a directory for a primary checkout, a file for a linked worktree); the
// common root is the primary checkout all worktrees of a repository share.
// Resource keys are derived relative to the checkout root so the same
// logical file contends on one lease across worktrees, and the shared
// coordination directory lives under the common root.
package gitroot

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// CheckoutRoot finds the root of the enclosing checkout by traversing up
// from startDir. It returns the directory containing .git (either a
// directory for a primary checkout or a file for a linked worktree).
// Returns ErrNotGitRepository if no checkout encloses startDir.
func CheckoutRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			// .git can be a directory (primary checkout) or a file (worktree)
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git
			return "", errors.Wrapf(errors.ErrNotGitRepository, "no checkout encloses %s", startDir)
		}
		dir = parent
	}
}

// Roots describes where a directory sits relative to its git checkout.
type Roots struct {
	// Checkout is the root of the enclosing checkout, primary or worktree.
	Checkout string

	// Common is the root of the primary checkout shared by all worktrees
	// of the repository. Equal to Checkout for a primary checkout.
	Common string
}

// IsWorktree reports whether the checkout is a linked worktree rather
// than the primary checkout.
func (r Roots) IsWorktree() bool {
	return r.Checkout != r.Common
}

// Resolver resolves checkout and common roots. The git CLI is only
// consulted for layouts the .git file itself cannot explain.
type Resolver struct {
	executor CommandExecutor
}

// NewResolver creates a Resolver backed by the git CLI.
func NewResolver() *Resolver {
	return &Resolver{executor: NewCLICommandExecutor()}
}

// NewResolverWithExecutor creates a Resolver with a custom executor.
// This is primarily useful for testing.
func NewResolverWithExecutor(executor CommandExecutor) *Resolver {
	return &Resolver{executor: executor}
}

// Discover resolves both roots for the checkout enclosing startDir.
func (r *Resolver) Discover(startDir string) (Roots, error) {
	checkout, err := CheckoutRoot(startDir)
	if err != nil {
		return Roots{}, err
	}

	common, err := r.CommonRoot(checkout)
	if err != nil {
		return Roots{}, err
	}

	return Roots{Checkout: checkout, Common: common}, nil
}

// CommonRoot resolves the primary checkout root for a checkout root.
// For a primary checkout this is the checkout root itself. For a linked
// worktree the .git file points into <main>/.git/worktrees/<name>, and the
// common root is <main>. Non-standard layouts fall back to asking git for
// the common git directory.
func (r *Resolver) CommonRoot(checkoutRoot string) (string, error) {
	gitPath := filepath.Join(checkoutRoot, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", errors.Wrapf(errors.ErrNotGitRepository, "no .git in %s", checkoutRoot)
	}

	if info.IsDir() {
		return checkoutRoot, nil
	}

	// Linked worktree: parse the gitdir pointer first to avoid a subprocess.
	if gitDir, err := worktreeGitDir(gitPath); err == nil {
		worktreesDir := filepath.Dir(gitDir)
		commonGitDir := filepath.Dir(worktreesDir)
		if filepath.Base(worktreesDir) == "worktrees" && filepath.Base(commonGitDir) == ".git" {
			return filepath.Dir(commonGitDir), nil
		}
	}

	output, err := r.executor.Run(checkoutRoot, "git", "rev-parse", "--git-common-dir")
	if err != nil {
		return "", errors.Wrapf(errors.ErrNotGitRepository, "resolving common dir for %s", checkoutRoot)
	}

	commonDir := strings.TrimSpace(string(output))
	if commonDir == "" {
		return "", errors.Wrapf(errors.ErrNotGitRepository, "empty common dir for %s", checkoutRoot)
	}
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(checkoutRoot, commonDir)
	}

	return filepath.Dir(filepath.Clean(commonDir)), nil
}

// worktreeGitDir reads the gitdir pointer from a worktree's .git file.
func worktreeGitDir(gitFile string) (string, error) {
	data, err := os.ReadFile(gitFile)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(data))
	const prefix = "gitdir:"
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("malformed .git file %s", gitFile)
	}

	dir := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(gitFile), dir)
	}

	return filepath.Clean(dir), nil
}
