// Copyright (c) 2025 OAForge

package assets

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"oaforge-cli/internal/config"
)

// Origin reports where the asset archive came from
type Origin string

const (
	OriginCache   Origin = "cache"
	OriginPrimary Origin = "primary"
	OriginMirror  Origin = "mirror"
)

// Result describes the acquired and extracted asset set
type Result struct {
	ArchivePath string
	BaseDir     string // The located base asset directory (e.g. baseoa)
	PK3Count    int
	Origin      Origin
}

// Fetch obtains the versioned asset archive and extracts it. A cached copy
// that passes the integrity check is used without network access; otherwise
// the primary URL is tried, then the mirror, and a second integrity failure
// is fatal. Extraction always starts from a wiped directory.
func Fetch(ctx context.Context, cfg *config.Config) (*Result, error) {
	cachePath := cfg.GetAssetCachePath()
	origin := OriginCache

	if err := VerifyArchive(cachePath); err != nil {
		if _, statErr := os.Stat(cachePath); statErr == nil {
			fmt.Printf("Cached archive failed integrity check (%v), re-downloading\n", err)
			os.Remove(cachePath)
		}

		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}

		fmt.Printf("Downloading %s...\n", cfg.Assets.PrimaryURL)
		origin = OriginPrimary
		if err := downloadAndVerify(ctx, cfg.Assets.PrimaryURL, cachePath); err != nil {
			fmt.Printf("Primary download failed (%v), trying mirror\n", err)
			fmt.Printf("Downloading %s...\n", cfg.Assets.MirrorURL)
			origin = OriginMirror
			if err := downloadAndVerify(ctx, cfg.Assets.MirrorURL, cachePath); err != nil {
				return nil, fmt.Errorf("asset archive unavailable: primary and mirror both failed integrity: %w", err)
			}
		}
	}

	// Fresh extraction: stale trees from a previous run must not survive
	extractDir := cfg.GetAssetExtractDir()
	if err := os.RemoveAll(extractDir); err != nil {
		return nil, fmt.Errorf("wipe extraction directory: %w", err)
	}
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	fmt.Printf("Extracting %s...\n", filepath.Base(cachePath))
	if err := extractZip(cachePath, extractDir); err != nil {
		return nil, fmt.Errorf("extract archive: %w", err)
	}

	baseDir, err := findDir(extractDir, cfg.Output.BaseProfile)
	if err != nil {
		return nil, fmt.Errorf("locate %s in extracted archive: %w", cfg.Output.BaseProfile, err)
	}

	pk3s, err := countMatching(baseDir, "*.pk3")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", baseDir, err)
	}
	if pk3s == 0 {
		return nil, fmt.Errorf("no pk3 files found under %s", baseDir)
	}

	return &Result{
		ArchivePath: cachePath,
		BaseDir:     baseDir,
		PK3Count:    pk3s,
		Origin:      origin,
	}, nil
}

// VerifyArchive checks that the archive opens as a zip and holds entries.
// A corrupt or truncated download never passes.
func VerifyArchive(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return fmt.Errorf("archive is empty")
	}
	return nil
}

// downloadAndVerify fetches url into dest and integrity-checks the result
func downloadAndVerify(ctx context.Context, url, dest string) error {
	if err := download(ctx, url, dest); err != nil {
		return err
	}
	if err := VerifyArchive(dest); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// download fetches url into dest via a temp file
func download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// extractZip unpacks archivePath under destDir, refusing entries that
// escape the destination
func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	cleanDest := filepath.Clean(destDir)
	for _, f := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode()&0777)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		if err := out.Close(); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

// findDir locates a directory by name anywhere under root
func findDir(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("directory %q not found", name)
	}
	return found, nil
}

// countMatching counts files matching glob anywhere under root
func countMatching(root, glob string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ok, matchErr := filepath.Match(glob, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if ok {
			count++
		}
		return nil
	})
	return count, err
}
