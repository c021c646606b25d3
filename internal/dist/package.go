// Copyright (c) 2025 OAForge

package dist

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"oaforge-cli/internal/config"
)

// assetCategories is the allow-list of staged asset subdirectories a mod may
// ship inside its package. Anything else in the mod source tree (patches,
// README, build clutter) stays out of the pk3.
var assetCategories = []string{
	"botfiles",
	"gfx",
	"maps",
	"models",
	"scripts",
	"sound",
	"textures",
	"ui",
	"vm",
}

// PackageMod stages a mod's allow-listed asset directories plus its compiled
// bytecode module into a temp tree and archives the whole tree as
// dist/<name>/z_<name>.pk3. The old package file is removed first so a
// partial rebuild can never leave stale content behind. Returns the package
// path and the number of files archived.
func PackageMod(cfg *config.Config, modName, qvmPath, modSourceDir, mainmenuImage string) (string, int, error) {
	staging, err := os.MkdirTemp("", "oaforge-pkg-*")
	if err != nil {
		return "", 0, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	// Stage the compiled game module
	qvmDest := filepath.Join(staging, "vm", "qagame.qvm")
	if err := copyFile(qvmPath, qvmDest, 0644); err != nil {
		return "", 0, fmt.Errorf("stage qvm: %w", err)
	}

	// Stage allow-listed asset categories from the mod source
	for _, cat := range assetCategories {
		src := filepath.Join(modSourceDir, cat)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyDir(src, filepath.Join(staging, cat)); err != nil {
			return "", 0, fmt.Errorf("stage %s: %w", cat, err)
		}
	}

	// Stage the custom main menu image if one was given
	if mainmenuImage != "" {
		dest := filepath.Join(staging, "gfx", "2d", "mainmenu"+strings.ToLower(filepath.Ext(mainmenuImage)))
		if err := copyFile(mainmenuImage, dest, 0644); err != nil {
			return "", 0, fmt.Errorf("stage mainmenu image: %w", err)
		}
	}

	// Archive the staging tree
	pkgDir := filepath.Join(cfg.GetDistDir(), modName)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return "", 0, fmt.Errorf("create package directory: %w", err)
	}
	pkgPath := filepath.Join(pkgDir, "z_"+modName+".pk3")
	os.Remove(pkgPath)

	count, err := ArchiveTree(staging, pkgPath)
	if err != nil {
		os.Remove(pkgPath)
		return "", 0, fmt.Errorf("write package: %w", err)
	}
	return pkgPath, count, nil
}

// ArchiveTree archives every file under root into a zip at outPath, with paths
// relative to root using forward slashes as the engine expects
func ArchiveTree(root, outPath string) (int, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	count := 0

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, f); err != nil {
			f.Close()
			return err
		}
		f.Close()
		count++
		return nil
	})
	if err != nil {
		zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return count, nil
}
