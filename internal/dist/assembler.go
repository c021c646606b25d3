// Copyright (c) 2025 OAForge

package dist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"oaforge-cli/internal/config"
)

// AssembleBase produces the self-contained base distribution: compiled
// client and dedicated server plus the base asset directory, with a
// generated launcher alongside.
func AssembleBase(cfg *config.Config, clientArtifact, serverArtifact, baseAssetDir string) (string, error) {
	distDir := cfg.GetDistDir()
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return "", fmt.Errorf("create dist directory: %w", err)
	}

	// Client may be a flat binary or an .app bundle directory
	clientDest := filepath.Join(distDir, filepath.Base(clientArtifact))
	if err := copyPath(clientArtifact, clientDest); err != nil {
		return "", fmt.Errorf("copy client: %w", err)
	}
	fmt.Printf("  Copied: %s\n", filepath.Base(clientArtifact))

	serverDest := filepath.Join(distDir, filepath.Base(serverArtifact))
	if err := copyPath(serverArtifact, serverDest); err != nil {
		return "", fmt.Errorf("copy server: %w", err)
	}
	fmt.Printf("  Copied: %s\n", filepath.Base(serverArtifact))

	baseDest := filepath.Join(distDir, cfg.Output.BaseProfile)
	if err := copyPath(baseAssetDir, baseDest); err != nil {
		return "", fmt.Errorf("copy base assets: %w", err)
	}
	fmt.Printf("  Copied: %s/\n", cfg.Output.BaseProfile)

	launcher, err := WriteBaseLauncher(cfg)
	if err != nil {
		return "", fmt.Errorf("write launcher: %w", err)
	}
	fmt.Printf("  Created: %s\n", filepath.Base(launcher))

	return distDir, nil
}

// copyPath copies a file or a directory tree, preserving file modes
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyFile(src, dst, info.Mode())
}

// copyDir recursively copies a directory
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dstPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode())
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(dstPath)
			return os.Symlink(link, dstPath)
		}
		return copyFile(path, dstPath, info.Mode())
	})
}

// copyFile copies a single file with specific permissions
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	return os.Chmod(dst, mode)
}
