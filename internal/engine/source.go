// Copyright (c) 2025 OAForge

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"oaforge-cli/internal/runner"
)

// EnsureCheckout clones the engine repository into dir unless a checkout is
// already there. Presence of .git metadata is the reuse signal; a plain
// directory without it is treated as clutter and refused rather than
// clobbered. Returns true when an existing checkout was reused.
func EnsureCheckout(ctx context.Context, r runner.Runner, repoURL, dir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true, nil
	}
	if _, err := os.Stat(dir); err == nil {
		entries, _ := os.ReadDir(dir)
		if len(entries) > 0 {
			return false, fmt.Errorf("checkout directory %s exists but is not a git checkout", dir)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return false, fmt.Errorf("create checkout parent: %w", err)
	}

	fmt.Printf("Cloning %s...\n", repoURL)
	if err := r.Run(ctx, "", "git", "clone", repoURL, dir); err != nil {
		return false, fmt.Errorf("git clone: %w", err)
	}
	return false, nil
}

// AcquireWorktree creates a detached disposable worktree from an existing
// checkout. It returns the worktree path and a cleanup func that tears the
// worktree down; callers must defer the cleanup immediately so it runs on
// every exit path. Multiple mod generations can hold worktrees at once
// without touching the primary checkout.
func AcquireWorktree(ctx context.Context, r runner.Runner, checkoutDir string) (string, func(), error) {
	tmp, err := os.MkdirTemp("", "oaforge-worktree-*")
	if err != nil {
		return "", nil, fmt.Errorf("create worktree directory: %w", err)
	}
	// git worktree add wants the target to not exist yet
	worktree := filepath.Join(tmp, "src")

	if err := r.Run(ctx, checkoutDir, "git", "worktree", "add", "--detach", worktree); err != nil {
		os.RemoveAll(tmp)
		return "", nil, fmt.Errorf("git worktree add: %w", err)
	}

	cleanup := func() {
		// Use a fresh context: cleanup must still run when ctx was
		// cancelled by an interrupt.
		if err := r.Run(context.Background(), checkoutDir, "git", "worktree", "remove", "--force", worktree); err != nil {
			fmt.Printf("Warning: remove worktree: %v\n", err)
		}
		os.RemoveAll(tmp)
	}
	return worktree, cleanup, nil
}

// ApplyPatch applies one unified diff to the worktree, strictly. The patch
// is checked first; a diff that no longer matches upstream source fails the
// whole run rather than fuzzy-applying.
func ApplyPatch(ctx context.Context, r runner.Runner, worktree string, patch []byte) error {
	patchFile, err := os.CreateTemp("", "oaforge-*.patch")
	if err != nil {
		return fmt.Errorf("create patch file: %w", err)
	}
	defer os.Remove(patchFile.Name())

	if _, err := patchFile.Write(patch); err != nil {
		patchFile.Close()
		return fmt.Errorf("write patch file: %w", err)
	}
	if err := patchFile.Close(); err != nil {
		return fmt.Errorf("close patch file: %w", err)
	}

	if err := r.Run(ctx, worktree, "git", "apply", "--check", patchFile.Name()); err != nil {
		return fmt.Errorf("patch does not apply cleanly against upstream source: %w", err)
	}
	if err := r.Run(ctx, worktree, "git", "apply", patchFile.Name()); err != nil {
		return fmt.Errorf("git apply: %w", err)
	}
	return nil
}
