// Copyright (c) 2025 OAForge
//
// Runner is the single seam between the pipeline and external tools.
// Every git, cmake and engine invocation goes through it, so pipeline
// logic can be tested with a scripted fake instead of real processes.

package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes external tools
type Runner interface {
	// LookPath reports the path of an executable found on PATH
	LookPath(name string) (string, error)

	// Run executes a command in dir, streaming output to the console
	Run(ctx context.Context, dir, name string, args ...string) error

	// Output executes a command in dir and returns its combined output
	Output(ctx context.Context, dir, name string, args ...string) (string, error)

	// RunLogged executes a command in dir, writing combined output to logPath
	RunLogged(ctx context.Context, dir, logPath, name string, args ...string) error
}

// ExecRunner runs real processes
type ExecRunner struct{}

// New returns a Runner backed by os/exec
func New() *ExecRunner {
	return &ExecRunner{}
}

// LookPath finds an executable on PATH
func (e *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command, streaming output to the console
func (e *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// Output executes a command and returns its combined output
func (e *ExecRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// RunLogged executes a command, capturing combined output to logPath
func (e *ExecRunner) RunLogged(ctx context.Context, dir, logPath, name string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
