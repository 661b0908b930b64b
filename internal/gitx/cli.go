package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// cliAdapter implements BranchLifecycle using the git CLI for branch
// operations and go-git for repository detection and dirty-tree checks.
// Branch operations shell out because merge semantics (conflict detection,
// --no-ff) match the operator's installed git exactly.
type cliAdapter struct {
	workingDir string
}

// NewCLIAdapter creates a BranchLifecycle operating on the repository
// containing workingDir.
func NewCLIAdapter(workingDir string) BranchLifecycle {
	return &cliAdapter{workingDir: workingDir}
}

// openRepo opens the enclosing repository, searching parent directories the
// way git itself does.
func (a *cliAdapter) openRepo() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(a.workingDir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotARepository, err)
	}
	return repo, nil
}

// IsRepository reports whether workingDir is inside a git repository.
func (a *cliAdapter) IsRepository(_ context.Context) bool {
	_, err := a.openRepo()
	return err == nil
}

// HasUncommittedChanges reports whether the working tree has staged or
// unstaged changes.
func (a *cliAdapter) HasUncommittedChanges(_ context.Context) (bool, error) {
	repo, err := a.openRepo()
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// CreateAndCheckout creates the named branch and checks it out.
func (a *cliAdapter) CreateAndCheckout(ctx context.Context, name string) error {
	_, err := a.run(ctx, "checkout", "-b", name)
	return err
}

// Merge merges the named branch into the current branch. A conflicted merge
// is aborted so the working tree is left as it was.
func (a *cliAdapter) Merge(ctx context.Context, name string, noFastForward bool) error {
	args := []string{"merge"}
	if noFastForward {
		args = append(args, "--no-ff")
	}
	args = append(args, "--no-edit", name)
	_, err := a.run(ctx, args...)
	if err != nil {
		if errors.Is(err, ErrMergeConflict) {
			// Leave the repository in its pre-merge state.
			_, _ = a.run(ctx, "merge", "--abort")
		}
		return err
	}
	return nil
}

// Delete removes the named branch.
func (a *cliAdapter) Delete(ctx context.Context, name string) error {
	_, err := a.run(ctx, "branch", "-D", name)
	return err
}

// run executes a git command in the working directory, classifying common
// failure modes onto the package sentinels so callers can use errors.Is.
func (a *cliAdapter) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if a.workingDir != "" {
		cmd.Dir = a.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classify(args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// classify maps git CLI failures onto the package sentinels by inspecting
// the command output.
func classify(args []string, stdout, stderr string, err error) error {
	combined := strings.ToLower(stdout + "\n" + stderr)
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = strings.TrimSpace(stdout)
	}

	switch {
	case strings.Contains(combined, "not a git repository"):
		return fmt.Errorf("%w: %s", ErrNotARepository, detail)
	case strings.Contains(combined, "already exists"):
		return fmt.Errorf("%w: %s", ErrBranchExists, detail)
	case strings.Contains(combined, "not found") || strings.Contains(combined, "no such branch") ||
		strings.Contains(combined, "not something we can merge"):
		return fmt.Errorf("%w: %s", ErrBranchNotFound, detail)
	case strings.Contains(combined, "conflict") || strings.Contains(combined, "automatic merge failed"):
		return fmt.Errorf("%w: %s", ErrMergeConflict, detail)
	}
	return fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), detail, err)
}
