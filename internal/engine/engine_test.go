// Copyright (c) 2025 OAForge

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner records invocations and lets tests script side effects
type fakeRunner struct {
	calls [][]string
	onRun func(dir, name string, args []string) error
}

func (f *fakeRunner) LookPath(name string) (string, error) { return name, nil }

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		return f.onRun(dir, name, args)
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return "", nil
}

func (f *fakeRunner) RunLogged(ctx context.Context, dir, logPath, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	return nil
}

func (f *fakeRunner) sawSubcommand(sub ...string) bool {
	for _, call := range f.calls {
		if len(call) < len(sub)+1 {
			continue
		}
		match := true
		for i, s := range sub {
			if call[i+1] != s {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestEnsureCheckoutReusesExisting(t *testing.T) {
	dir := t.TempDir()
	checkout := filepath.Join(dir, "ioq3")
	if err := os.MkdirAll(filepath.Join(checkout, ".git"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r := &fakeRunner{}
	reused, err := EnsureCheckout(context.Background(), r, "https://example.com/e.git", checkout)
	if err != nil {
		t.Fatalf("EnsureCheckout failed: %v", err)
	}
	if !reused {
		t.Error("expected existing checkout to be reused")
	}
	if len(r.calls) != 0 {
		t.Errorf("expected no git invocations, got %v", r.calls)
	}
}

func TestEnsureCheckoutClonesWhenMissing(t *testing.T) {
	checkout := filepath.Join(t.TempDir(), "ioq3")

	r := &fakeRunner{}
	reused, err := EnsureCheckout(context.Background(), r, "https://example.com/e.git", checkout)
	if err != nil {
		t.Fatalf("EnsureCheckout failed: %v", err)
	}
	if reused {
		t.Error("nothing to reuse, expected a clone")
	}
	if !r.sawSubcommand("clone") {
		t.Errorf("expected git clone, got %v", r.calls)
	}
}

func TestEnsureCheckoutRefusesNonGitDirectory(t *testing.T) {
	checkout := filepath.Join(t.TempDir(), "ioq3")
	if err := os.MkdirAll(checkout, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(checkout, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := &fakeRunner{}
	if _, err := EnsureCheckout(context.Background(), r, "https://example.com/e.git", checkout); err == nil {
		t.Fatal("expected error for non-git non-empty directory")
	}
	if r.sawSubcommand("clone") {
		t.Error("must not clone over an existing directory")
	}
}

func TestAcquireWorktreeCleanupRemovesDirectory(t *testing.T) {
	checkout := t.TempDir()

	r := &fakeRunner{}
	worktree, cleanup, err := AcquireWorktree(context.Background(), r, checkout)
	if err != nil {
		t.Fatalf("AcquireWorktree failed: %v", err)
	}
	if !r.sawSubcommand("worktree", "add") {
		t.Errorf("expected git worktree add, got %v", r.calls)
	}

	cleanup()
	if !r.sawSubcommand("worktree", "remove") {
		t.Errorf("expected git worktree remove, got %v", r.calls)
	}
	if _, err := os.Stat(filepath.Dir(worktree)); !os.IsNotExist(err) {
		t.Error("worktree parent directory should be gone after cleanup")
	}
}

func TestAcquireWorktreeFailureLeavesNothing(t *testing.T) {
	checkout := t.TempDir()

	var worktreeArg string
	r := &fakeRunner{onRun: func(dir, name string, args []string) error {
		if len(args) > 0 && args[0] == "worktree" {
			worktreeArg = args[len(args)-1]
			return fmt.Errorf("worktree add refused")
		}
		return nil
	}}

	if _, _, err := AcquireWorktree(context.Background(), r, checkout); err == nil {
		t.Fatal("expected error from failed worktree add")
	}
	if worktreeArg == "" {
		t.Fatal("worktree add was never invoked")
	}
	if _, err := os.Stat(filepath.Dir(worktreeArg)); !os.IsNotExist(err) {
		t.Error("temp directory should be removed when acquisition fails")
	}
}

func TestApplyPatchChecksBeforeApplying(t *testing.T) {
	r := &fakeRunner{}
	patch := []byte("--- a/code/game/g_combat.c\n+++ b/code/game/g_combat.c\n")

	if err := ApplyPatch(context.Background(), r, t.TempDir(), patch); err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}

	if len(r.calls) != 2 {
		t.Fatalf("expected check then apply, got %v", r.calls)
	}
	if r.calls[0][2] != "--check" {
		t.Errorf("first invocation must be git apply --check, got %v", r.calls[0])
	}
}

func TestApplyPatchStopsOnCheckFailure(t *testing.T) {
	r := &fakeRunner{onRun: func(dir, name string, args []string) error {
		for _, a := range args {
			if a == "--check" {
				return fmt.Errorf("patch does not apply")
			}
		}
		return nil
	}}

	err := ApplyPatch(context.Background(), r, t.TempDir(), []byte("junk"))
	if err == nil {
		t.Fatal("expected error when the diff no longer matches")
	}
	if len(r.calls) != 1 {
		t.Errorf("apply must not run after a failed check, calls: %v", r.calls)
	}
	if !strings.Contains(err.Error(), "does not apply") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildVerifiesArtifactPresence(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build")

	// Compiler reports success but produces nothing
	r := &fakeRunner{}
	_, err := Build(context.Background(), r, "cmake", Target{
		Name:         "game module",
		SourceDir:    t.TempDir(),
		BuildDir:     buildDir,
		ArtifactGlob: "qagame.qvm",
	})
	if !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestBuildReturnsArtifactPath(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build")

	r := &fakeRunner{onRun: func(dir, name string, args []string) error {
		if len(args) > 0 && args[0] == "--build" {
			qvmDir := filepath.Join(buildDir, "vm")
			if err := os.MkdirAll(qvmDir, 0755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(qvmDir, "qagame.qvm"), []byte{0x12, 0x72, 0x19, 0x81}, 0644)
		}
		return nil
	}}

	artifact, err := Build(context.Background(), r, "cmake", Target{
		Name:         "game module",
		SourceDir:    t.TempDir(),
		BuildDir:     buildDir,
		BuildTargets: []string{"qagame"},
		ArtifactGlob: "qagame.qvm",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if filepath.Base(artifact) != "qagame.qvm" {
		t.Errorf("unexpected artifact: %s", artifact)
	}
	if !r.sawSubcommand("-S") {
		t.Errorf("expected a configure invocation, got %v", r.calls)
	}
}

func TestBuildJobsPositive(t *testing.T) {
	if BuildJobs() < 1 {
		t.Errorf("BuildJobs must be positive, got %d", BuildJobs())
	}
}

func TestFindArtifactMatchesDirectories(t *testing.T) {
	buildDir := t.TempDir()
	appDir := filepath.Join(buildDir, "Release", "ioquake3.app")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := FindArtifact(buildDir, "ioquake3*")
	if err != nil {
		t.Fatalf("FindArtifact failed: %v", err)
	}
	if found != appDir {
		t.Errorf("expected app bundle %q, got %q", appDir, found)
	}
}
