// Copyright (c) 2025 OAForge

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputReturnsCombinedOutput(t *testing.T) {
	r := New()
	out, err := r.Output(context.Background(), "", "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestOutputIncludesCommandInError(t *testing.T) {
	r := New()
	_, err := r.Output(context.Background(), "", "sh", "-c", "exit 3")
	if err == nil {
		t.Fatal("expected error from nonzero exit")
	}
	if !strings.Contains(err.Error(), "sh -c exit 3") {
		t.Errorf("error should name the failing command: %v", err)
	}
}

func TestRunHonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := New()
	if err := r.Run(context.Background(), dir, "sh", "-c", "touch marker"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Errorf("command did not run in the requested directory: %v", err)
	}
}

func TestRunLoggedCapturesBothStreams(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")
	r := New()
	err := r.RunLogged(context.Background(), "", logPath, "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("RunLogged failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "out") || !strings.Contains(log, "err") {
		t.Errorf("log missing a stream:\n%s", log)
	}
}

func TestRunLoggedKeepsLogOnFailure(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	r := New()
	err := r.RunLogged(context.Background(), "", logPath, "sh", "-c", "echo crashing; exit 1")
	if err == nil {
		t.Fatal("expected error from nonzero exit")
	}

	data, readErr := os.ReadFile(logPath)
	if readErr != nil {
		t.Fatalf("log should survive the failure: %v", readErr)
	}
	if !strings.Contains(string(data), "crashing") {
		t.Errorf("log missing output written before the failure:\n%s", data)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New()
	if err := r.Run(ctx, "", "sh", "-c", "sleep 10"); err == nil {
		t.Error("cancelled context should abort the command")
	}
}
