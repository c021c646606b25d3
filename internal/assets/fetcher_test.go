// Copyright (c) 2025 OAForge

package assets

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"oaforge-cli/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		WorkspaceRoot: t.TempDir(),
		Assets: config.AssetsConfig{
			Version:    "0.8.8",
			CachePath:  "cache/openarena-0.8.8.zip",
			ExtractDir: "cache/openarena-extract",
		},
		Output: config.OutputConfig{
			DistDir:     "dist",
			BaseProfile: "baseoa",
		},
	}
}

// makeAssetZip builds an in-memory archive shaped like the release zip:
// a versioned top directory holding the base profile and its packages.
func makeAssetZip(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte("PK3DATA")); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func defaultAssetZip(t *testing.T) []byte {
	t.Helper()
	return makeAssetZip(t,
		"openarena-0.8.8/baseoa/pak0.pk3",
		"openarena-0.8.8/baseoa/pak1-maps.pk3",
		"openarena-0.8.8/CHANGES",
	)
}

func serveArchive(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func serveFailure(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyArchiveAcceptsValidZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.zip")
	if err := os.WriteFile(path, defaultAssetZip(t), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := VerifyArchive(path); err != nil {
		t.Errorf("valid archive rejected: %v", err)
	}
}

func TestVerifyArchiveRejectsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.zip")
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := VerifyArchive(path); err == nil {
		t.Error("corrupt archive passed integrity check")
	}
}

func TestVerifyArchiveRejectsMissing(t *testing.T) {
	if err := VerifyArchive(filepath.Join(t.TempDir(), "nope.zip")); err == nil {
		t.Error("missing archive passed integrity check")
	}
}

func TestFetchUsesValidCache(t *testing.T) {
	cfg := testConfig(t)
	// Unreachable URLs prove no network access happens
	cfg.Assets.PrimaryURL = "http://127.0.0.1:1/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	cachePath := cfg.GetAssetCachePath()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cachePath, defaultAssetZip(t), 0644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	res, err := Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Origin != OriginCache {
		t.Errorf("expected cache origin, got %s", res.Origin)
	}
	if res.PK3Count != 2 {
		t.Errorf("expected 2 pk3 files, got %d", res.PK3Count)
	}
	if filepath.Base(res.BaseDir) != "baseoa" {
		t.Errorf("unexpected base dir: %s", res.BaseDir)
	}
}

func TestFetchDownloadsFromPrimary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = serveArchive(t, defaultAssetZip(t)).URL + "/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	res, err := Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Origin != OriginPrimary {
		t.Errorf("expected primary origin, got %s", res.Origin)
	}
	if _, err := os.Stat(cfg.GetAssetCachePath()); err != nil {
		t.Errorf("archive not cached: %v", err)
	}
}

func TestFetchFallsBackToMirror(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = serveFailure(t).URL + "/assets.zip"
	cfg.Assets.MirrorURL = serveArchive(t, defaultAssetZip(t)).URL + "/assets.zip"

	res, err := Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Origin != OriginMirror {
		t.Errorf("expected mirror origin, got %s", res.Origin)
	}
}

func TestFetchRedownloadsCorruptCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = serveArchive(t, defaultAssetZip(t)).URL + "/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	cachePath := cfg.GetAssetCachePath()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cachePath, []byte("truncated garbage"), 0644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	res, err := Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Origin != OriginPrimary {
		t.Errorf("corrupt cache should force a download, got origin %s", res.Origin)
	}
	if err := VerifyArchive(cachePath); err != nil {
		t.Errorf("cache not replaced with a valid archive: %v", err)
	}
}

func TestFetchFailsWhenBothSourcesDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = serveFailure(t).URL + "/assets.zip"
	cfg.Assets.MirrorURL = serveFailure(t).URL + "/assets.zip"

	if _, err := Fetch(context.Background(), cfg); err == nil {
		t.Fatal("expected failure when both sources are down")
	}
}

func TestFetchFailsWhenMirrorServesCorruptArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = serveFailure(t).URL + "/assets.zip"
	cfg.Assets.MirrorURL = serveArchive(t, []byte("not a zip")).URL + "/assets.zip"

	if _, err := Fetch(context.Background(), cfg); err == nil {
		t.Fatal("expected failure when the fallback archive is corrupt")
	}
	if _, err := os.Stat(cfg.GetAssetCachePath()); !os.IsNotExist(err) {
		t.Error("corrupt download must not be left in the cache")
	}
}

func TestFetchRequiresBaseProfileDirectory(t *testing.T) {
	cfg := testConfig(t)
	archive := makeAssetZip(t, "openarena-0.8.8/missionpack/pak0.pk3")
	cfg.Assets.PrimaryURL = serveArchive(t, archive).URL + "/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	if _, err := Fetch(context.Background(), cfg); err == nil {
		t.Fatal("expected failure when the archive lacks the base profile")
	}
}

func TestFetchRequiresPK3Files(t *testing.T) {
	cfg := testConfig(t)
	archive := makeAssetZip(t, "openarena-0.8.8/baseoa/README")
	cfg.Assets.PrimaryURL = serveArchive(t, archive).URL + "/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	if _, err := Fetch(context.Background(), cfg); err == nil {
		t.Fatal("expected failure when the base profile holds no pk3 files")
	}
}

func TestFetchWipesStaleExtraction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.PrimaryURL = "http://127.0.0.1:1/assets.zip"
	cfg.Assets.MirrorURL = "http://127.0.0.1:1/assets.zip"

	cachePath := cfg.GetAssetCachePath()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cachePath, defaultAssetZip(t), 0644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	stale := filepath.Join(cfg.GetAssetExtractDir(), "leftover.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old run"), 0644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	if _, err := Fetch(context.Background(), cfg); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale extraction contents survived a fresh run")
	}
}

func TestExtractZipRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte("escape"))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := extractZip(archivePath, dest); err == nil {
		t.Error("entry escaping the destination was extracted")
	}
}
