// Copyright (c) 2025 OAForge

package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"oaforge-cli/internal/assets"
	"oaforge-cli/internal/config"
	"oaforge-cli/internal/dist"
	"oaforge-cli/internal/engine"
	"oaforge-cli/internal/runner"
	"oaforge-cli/internal/toolchain"
	"oaforge-cli/internal/verify"
)

// Build runs the full base pipeline: resolve toolchain, acquire engine
// source, compile client and server, fetch game assets, assemble the
// distribution and smoke-verify it.
func Build(ctx context.Context, cfg *config.Config, r runner.Runner, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	clean := fs.Bool("clean", false, "Clear the build directory before compiling")
	skipVerify := fs.Bool("skip-verify", false, "Skip the smoke verification stage")
	fs.Parse(args)

	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║          OAForge Build Pipeline          ║")
	fmt.Println("╚══════════════════════════════════════════╝")
	fmt.Println()

	// Step 1: Toolchain
	fmt.Println("┌──────────────────────────────────────────┐")
	fmt.Println("│  Step 1: Resolving Toolchain             │")
	fmt.Println("└──────────────────────────────────────────┘")
	cmakePath, err := toolchain.Resolve(ctx, cfg, r)
	if err != nil {
		return fmt.Errorf("resolve toolchain: %w", err)
	}
	fmt.Println()

	// Step 2: Engine source
	fmt.Println("┌──────────────────────────────────────────┐")
	fmt.Println("│  Step 2: Acquiring Engine Source         │")
	fmt.Println("└──────────────────────────────────────────┘")
	reused, err := engine.EnsureCheckout(ctx, r, cfg.Engine.RepoURL, cfg.GetEngineDir())
	if err != nil {
		return fmt.Errorf("acquire engine source: %w", err)
	}
	if reused {
		fmt.Printf("Reusing checkout: %s\n", cfg.GetEngineDir())
	}
	fmt.Println()

	// Step 3: Compile
	fmt.Println("┌──────────────────────────────────────────┐")
	fmt.Println("│  Step 3: Compiling Engine                │")
	fmt.Println("└──────────────────────────────────────────┘")
	buildDir := cfg.GetBuildDir()
	if *clean {
		fmt.Println("Clearing build directory...")
		if err := os.RemoveAll(buildDir); err != nil {
			return fmt.Errorf("clear build directory: %w", err)
		}
	}
	clientArtifact, err := engine.Build(ctx, r, cmakePath, engine.Target{
		Name:         "engine client",
		SourceDir:    cfg.GetEngineDir(),
		BuildDir:     buildDir,
		CMakeArgs:    []string{"-DBUILD_CLIENT=ON", "-DBUILD_SERVER=ON"},
		ArtifactGlob: "ioquake3*",
	})
	if err != nil {
		return fmt.Errorf("compile engine: %w", err)
	}
	serverArtifact, err := engine.FindArtifact(buildDir, "ioq3ded*")
	if err != nil {
		return fmt.Errorf("dedicated server: %w", err)
	}
	fmt.Printf("  Client: %s\n", clientArtifact)
	fmt.Printf("  Server: %s\n", serverArtifact)
	fmt.Println()

	// Step 4: Assets
	fmt.Println("┌──────────────────────────────────────────┐")
	fmt.Println("│  Step 4: Fetching Game Assets            │")
	fmt.Println("└──────────────────────────────────────────┘")
	assetResult, err := assets.Fetch(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fetch assets: %w", err)
	}
	fmt.Printf("  Archive (%s): %s\n", assetResult.Origin, assetResult.ArchivePath)
	fmt.Printf("  Base assets: %s (%d pk3 file(s))\n", assetResult.BaseDir, assetResult.PK3Count)
	fmt.Println()

	// Step 5: Assemble
	fmt.Println("┌──────────────────────────────────────────┐")
	fmt.Println("│  Step 5: Assembling Distribution         │")
	fmt.Println("└──────────────────────────────────────────┘")
	distDir, err := dist.AssembleBase(cfg, clientArtifact, serverArtifact, assetResult.BaseDir)
	if err != nil {
		return fmt.Errorf("assemble distribution: %w", err)
	}
	fmt.Println()

	// Step 6: Smoke verification (soft: never fails the build)
	if !*skipVerify {
		fmt.Println("┌──────────────────────────────────────────┐")
		fmt.Println("│  Step 6: Smoke Verification              │")
		fmt.Println("└──────────────────────────────────────────┘")
		distClient := filepath.Join(distDir, filepath.Base(clientArtifact))
		if fi, err := os.Stat(distClient); err == nil && fi.IsDir() {
			// App bundle: the executable lives inside
			distClient = filepath.Join(distClient, "Contents", "MacOS", "ioquake3")
		}
		distServer := filepath.Join(distDir, filepath.Base(serverArtifact))
		if _, err := verify.Smoke(ctx, cfg, r, distClient, distServer); err != nil {
			return fmt.Errorf("smoke verification setup: %w", err)
		}
		fmt.Println()
	}

	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║            Build Complete!               ║")
	fmt.Println("╚══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Output locations:")
	fmt.Printf("  Distribution: %s\n", distDir)
	fmt.Printf("  Launcher:     %s\n", filepath.Join(distDir, "run_openarena.sh"))
	fmt.Printf("  Logs:         %s\n", cfg.GetLogsPath())

	return nil
}
