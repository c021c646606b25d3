// Copyright (c) 2025 OAForge

package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"oaforge-cli/internal/assets"
	"oaforge-cli/internal/config"
	"oaforge-cli/internal/cvars"
	"oaforge-cli/internal/runner"
	"oaforge-cli/internal/toolchain"
)

// Status shows the state of the workspace: toolchain, checkout,
// distribution and generated mods
func Status(ctx context.Context, cfg *config.Config, r runner.Runner, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	fmt.Println("=== OAForge Status ===")
	fmt.Println()
	fmt.Printf("Workspace: %s\n", cfg.WorkspaceRoot)
	fmt.Println()

	// Toolchain
	if path, err := r.LookPath("cmake"); err == nil {
		if out, err := r.Output(ctx, "", path, "--version"); err == nil {
			if major, minor, err := toolchain.ParseVersion(out); err == nil {
				fmt.Printf("Toolchain: cmake %d.%d (%s)\n", major, minor, path)
			}
		}
	} else {
		fmt.Printf("Toolchain: no system cmake; pinned %s will be bootstrapped\n", cfg.CMake.PinnedVersion)
	}

	// Engine checkout
	engineDir := cfg.GetEngineDir()
	if _, err := os.Stat(filepath.Join(engineDir, ".git")); err == nil {
		fmt.Printf("Engine:    checked out at %s\n", engineDir)
	} else {
		fmt.Printf("Engine:    not cloned yet (%s)\n", engineDir)
	}

	// Asset cache
	cachePath := cfg.GetAssetCachePath()
	if err := checkCache(cachePath); err == nil {
		fmt.Printf("Assets:    cached archive OK (%s)\n", cachePath)
	} else if _, statErr := os.Stat(cachePath); statErr == nil {
		fmt.Printf("Assets:    cached archive FAILS integrity, will re-download\n")
	} else {
		fmt.Printf("Assets:    not downloaded yet\n")
	}

	// Distribution
	distDir := cfg.GetDistDir()
	if _, err := os.Stat(distDir); os.IsNotExist(err) {
		fmt.Printf("Dist:      not assembled yet (%s)\n", distDir)
		return nil
	}

	profiles, err := cvars.DiscoverProfiles(distDir, cfg.Output.BaseProfile, false)
	if err != nil {
		return fmt.Errorf("discover profiles: %w", err)
	}
	fmt.Printf("Dist:      %s, %d profile(s)\n", distDir, len(profiles))
	for _, p := range profiles {
		fmt.Printf("  - %s\n", filepath.Base(p))
	}

	// Generated mods
	mods := listModSources(cfg)
	if len(mods) > 0 {
		fmt.Println()
		fmt.Printf("Mod sources (%d):\n", len(mods))
		for _, m := range mods {
			fmt.Printf("  - %s\n", m)
		}
	}

	return nil
}

// checkCache is a thin integrity probe; status never downloads
func checkCache(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return assets.VerifyArchive(path)
}

// listModSources lists directories under mods/
func listModSources(cfg *config.Config) []string {
	entries, err := os.ReadDir(cfg.GetModsPath())
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
