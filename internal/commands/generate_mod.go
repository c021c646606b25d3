// Copyright (c) 2025 OAForge

package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/dist"
	"oaforge-cli/internal/engine"
	"oaforge-cli/internal/mods"
	"oaforge-cli/internal/runner"
	"oaforge-cli/internal/toolchain"
)

// GenerateMod builds a mod variant: a disposable engine source copy gets
// the variant's patch, the game bytecode module is compiled and identity
// checked, and the result is packaged with a dedicated launcher.
func GenerateMod(ctx context.Context, cfg *config.Config, r runner.Runner, args []string) error {
	fs := flag.NewFlagSet("generate-mod", flag.ExitOnError)
	variantFlag := fs.String("variant", string(mods.VariantDefault), "Mod variant: default or debug-visible")
	menuImage := fs.String("mainmenu-image", "", "Custom main menu image (.tga/.png/.jpg/.jpeg)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: oaforge generate-mod [name] [--variant default|debug-visible] [--mainmenu-image <path>]

Generate a game-logic mod package and launcher.

Arguments:
  [name]    Mod name (default: %s)
            Letters, digits, underscore and hyphen only

Example:
  oaforge generate-mod demo_mod --variant debug-visible
`, mods.DefaultName)
	}
	// The optional name comes first; flag.Parse stops at the first
	// non-flag argument, so it must be peeled off before parsing.
	name := mods.DefaultName
	named := false
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name = args[0]
		named = true
		args = args[1:]
	}
	fs.Parse(args)
	if !named && fs.NArg() > 0 {
		name = fs.Arg(0)
	}

	// All validation happens before any side effect
	if err := mods.ValidateName(name); err != nil {
		return err
	}
	variant, err := mods.ParseVariant(*variantFlag)
	if err != nil {
		return err
	}
	if *menuImage != "" {
		if err := mods.ValidateMenuImage(*menuImage); err != nil {
			return err
		}
	}
	patch, err := mods.PatchFor(variant)
	if err != nil {
		return err
	}

	fmt.Printf("=== Generating Mod: %s (variant: %s) ===\n", name, variant)
	fmt.Println()

	cmakePath, err := toolchain.Resolve(ctx, cfg, r)
	if err != nil {
		return fmt.Errorf("resolve toolchain: %w", err)
	}

	if _, err := engine.EnsureCheckout(ctx, r, cfg.Engine.RepoURL, cfg.GetEngineDir()); err != nil {
		return fmt.Errorf("acquire engine source: %w", err)
	}

	// Disposable patched copy; torn down on every exit path
	fmt.Println("Creating disposable source copy...")
	worktree, cleanup, err := engine.AcquireWorktree(ctx, r, cfg.GetEngineDir())
	if err != nil {
		return fmt.Errorf("acquire worktree: %w", err)
	}
	defer cleanup()

	fmt.Println("Applying variant patch...")
	if err := engine.ApplyPatch(ctx, r, worktree, patch); err != nil {
		return fmt.Errorf("apply %s patch: %w", variant, err)
	}

	qvmPath, err := engine.Build(ctx, r, cmakePath, engine.Target{
		Name:         "game module",
		SourceDir:    worktree,
		BuildDir:     filepath.Join(worktree, "build"),
		CMakeArgs:    []string{"-DBUILD_CLIENT=OFF", "-DBUILD_SERVER=OFF", "-DBUILD_GAME_QVM=ON"},
		BuildTargets: []string{"qagame"},
		ArtifactGlob: "qagame.qvm",
	})
	if err != nil {
		return fmt.Errorf("build game module: %w", err)
	}

	fmt.Println("Checking module identity...")
	if err := mods.CheckQVMIdentity(qvmPath); err != nil {
		return fmt.Errorf("module identity check: %w", err)
	}

	// Persist the mod source of record before packaging
	modDir, err := mods.WriteSource(cfg.GetModsPath(), name, variant, patch)
	if err != nil {
		return fmt.Errorf("write mod source: %w", err)
	}

	fmt.Println("Packaging...")
	pkgPath, count, err := dist.PackageMod(cfg, name, qvmPath, modDir, *menuImage)
	if err != nil {
		return fmt.Errorf("package mod: %w", err)
	}
	launcherPath, err := dist.WriteModLauncher(cfg, name)
	if err != nil {
		return fmt.Errorf("write launcher: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created: %s (%d file(s))\n", pkgPath, count)
	fmt.Printf("Created: %s\n", launcherPath)
	fmt.Printf("Mod source: %s\n", modDir)
	fmt.Println("\n=== Mod Generation Complete ===")

	return nil
}
