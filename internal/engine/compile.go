// Copyright (c) 2025 OAForge

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"oaforge-cli/internal/runner"
)

// ErrArtifactMissing reports a build that the toolchain called successful
// but that did not produce the expected output file. Distinguished from a
// plain build failure so stale target naming surfaces loudly.
var ErrArtifactMissing = errors.New("expected build artifact not found")

// Target names one compiled artifact and the tree producing it
type Target struct {
	Name         string   // Human-readable artifact name
	SourceDir    string   // Engine source tree
	BuildDir     string   // Named build directory, reusable across runs
	CMakeArgs    []string // Extra -D arguments for configure
	BuildTargets []string // Specific build targets; empty builds everything
	ArtifactGlob string   // Filename pattern of the expected output
}

// BuildJobs returns the parallelism handed to the external compiler
func BuildJobs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// Build configures and builds one target, then verifies the expected
// artifact actually exists in the build tree. Returns the artifact path.
func Build(ctx context.Context, r runner.Runner, cmakePath string, target Target) (string, error) {
	if err := os.MkdirAll(target.BuildDir, 0755); err != nil {
		return "", fmt.Errorf("create build directory: %w", err)
	}

	configureArgs := []string{
		"-S", target.SourceDir,
		"-B", target.BuildDir,
		"-DCMAKE_BUILD_TYPE=Release",
	}
	configureArgs = append(configureArgs, target.CMakeArgs...)

	fmt.Printf("Configuring %s...\n", target.Name)
	if err := r.Run(ctx, "", cmakePath, configureArgs...); err != nil {
		return "", fmt.Errorf("configure %s: %w", target.Name, err)
	}

	buildArgs := []string{
		"--build", target.BuildDir,
		"--parallel", strconv.Itoa(BuildJobs()),
	}
	for _, t := range target.BuildTargets {
		buildArgs = append(buildArgs, "--target", t)
	}

	fmt.Printf("Building %s (%d jobs)...\n", target.Name, BuildJobs())
	if err := r.Run(ctx, "", cmakePath, buildArgs...); err != nil {
		return "", fmt.Errorf("build %s: %w", target.Name, err)
	}

	// Compiler success does not imply the artifact exists
	artifact, err := FindArtifact(target.BuildDir, target.ArtifactGlob)
	if err != nil {
		return "", fmt.Errorf("%s: %w", target.Name, err)
	}
	return artifact, nil
}

// FindArtifact locates a build output by filename pattern within the build
// tree. Absence is ErrArtifactMissing, not a generic error.
func FindArtifact(buildDir, glob string) (string, error) {
	var found string
	err := filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		ok, matchErr := filepath.Match(glob, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if ok {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan build directory: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %q under %s", ErrArtifactMissing, glob, buildDir)
	}
	return found, nil
}
