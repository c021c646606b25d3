// Copyright (c) 2025 OAForge

package toolchain

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/runner"
)

var versionRe = regexp.MustCompile(`cmake version (\d+)\.(\d+)`)

// Resolve returns the path of a CMake executable that satisfies the
// configured minimum version. The system CMake is preferred; if it is
// missing or too old, a pinned release is downloaded into the tools cache
// and used instead. Failing both is a configuration error, not retried.
func Resolve(ctx context.Context, cfg *config.Config, r runner.Runner) (string, error) {
	minMajor, minMinor := cfg.CMake.MinMajor, cfg.CMake.MinMinor

	// Prefer the system-wide cmake
	if path, err := r.LookPath("cmake"); err == nil {
		major, minor, err := probeVersion(ctx, r, path)
		if err == nil && satisfies(major, minor, minMajor, minMinor) {
			fmt.Printf("Using system CMake %d.%d: %s\n", major, minor, path)
			return path, nil
		}
		if err == nil {
			fmt.Printf("System CMake %d.%d is below %d.%d, bootstrapping pinned version\n",
				major, minor, minMajor, minMinor)
		}
	}

	// Bootstrap the pinned release
	path, err := bootstrap(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("bootstrap CMake %s: %w", cfg.CMake.PinnedVersion, err)
	}

	major, minor, err := probeVersion(ctx, r, path)
	if err != nil {
		return "", fmt.Errorf("probe bootstrapped CMake: %w", err)
	}
	if !satisfies(major, minor, minMajor, minMinor) {
		return "", fmt.Errorf("no CMake >= %d.%d available: system CMake missing or too old, pinned %s reports %d.%d",
			minMajor, minMinor, cfg.CMake.PinnedVersion, major, minor)
	}

	fmt.Printf("Using bootstrapped CMake %d.%d: %s\n", major, minor, path)
	return path, nil
}

// probeVersion runs `cmake --version` and parses the reported version
func probeVersion(ctx context.Context, r runner.Runner, path string) (int, int, error) {
	out, err := r.Output(ctx, "", path, "--version")
	if err != nil {
		return 0, 0, err
	}
	return ParseVersion(out)
}

// ParseVersion extracts major.minor from `cmake --version` output
func ParseVersion(out string) (int, int, error) {
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognized cmake version output: %q", firstLine(out))
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, err
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}
	return major, minor, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func satisfies(major, minor, minMajor, minMinor int) bool {
	if major != minMajor {
		return major > minMajor
	}
	return minor >= minMinor
}

// bootstrap ensures the pinned CMake release is downloaded and extracted,
// returning the path of its cmake binary. Both steps are skipped when their
// output already exists, so repeated runs do no network or disk work.
func bootstrap(ctx context.Context, cfg *config.Config) (string, error) {
	toolsDir := cfg.GetToolsDir()
	if err := os.MkdirAll(toolsDir, 0755); err != nil {
		return "", fmt.Errorf("create tools directory: %w", err)
	}

	archiveName := filepath.Base(cfg.CMake.PinnedURL)
	archivePath := filepath.Join(toolsDir, archiveName)
	extractDir := filepath.Join(toolsDir, strings.TrimSuffix(archiveName, ".tar.gz"))
	binPath := filepath.Join(extractDir, "bin", "cmake")

	if _, err := os.Stat(binPath); err == nil {
		return binPath, nil
	}

	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		fmt.Printf("Downloading CMake %s...\n", cfg.CMake.PinnedVersion)
		if err := download(ctx, cfg.CMake.PinnedURL, archivePath); err != nil {
			return "", fmt.Errorf("download %s: %w", cfg.CMake.PinnedURL, err)
		}
	}

	fmt.Printf("Extracting %s...\n", archiveName)
	if err := extractTarGz(archivePath, toolsDir); err != nil {
		return "", fmt.Errorf("extract %s: %w", archiveName, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("cmake binary not found after extraction: %s", binPath)
	}

	return binPath, nil
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

// extractTarGz unpacks a .tar.gz archive under destDir
func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
	return nil
}
