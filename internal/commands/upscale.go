// Copyright (c) 2025 OAForge

package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/mods"
	"oaforge-cli/internal/runner"
	"oaforge-cli/internal/upscale"
)

// UpscaleTextures regenerates a mod's player skins at higher resolution
// and packages them as an overlay pk3 next to the mod's main package.
func UpscaleTextures(ctx context.Context, cfg *config.Config, r runner.Runner, args []string) error {
	fs := flag.NewFlagSet("upscale-textures", flag.ExitOnError)
	sourcePK3 := fs.String("source-pk3", "", "Explicit pk3 to pull textures from")
	sourceDir := fs.String("source-dir", "", "Explicit directory to pull textures from")
	output := fs.String("output", "", "Overlay pk3 path (default: dist/<mod>/z_<mod>_upscaled_skins.pk3)")
	model := fs.String("model", cfg.Upscale.Model, "Upscaler model name")
	scale := fs.Int("scale", cfg.Upscale.Scale, "Upscale factor")
	maxDim := fs.Int("max-dimension", cfg.Upscale.MaxDimension, "Skip textures with a side larger than this")
	keepWork := fs.Bool("keep-work", false, "Keep the temporary work directory")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: oaforge upscale-textures [name] [flags]

Upscale a mod's player model textures and package them as an overlay pk3.

Arguments:
  [name]    Mod or game directory to upscale (default: %s)

Example:
  oaforge upscale-textures demo_mod --scale 4
  oaforge upscale-textures baseoa --max-dimension 512
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
	if err := upscale.ValidateTarget(name); err != nil {
		return err
	}
	if *scale < 1 {
		return fmt.Errorf("--scale must be at least 1, got %d", *scale)
	}
	if *maxDim < 1 {
		return fmt.Errorf("--max-dimension must be at least 1, got %d", *maxDim)
	}
	if *sourcePK3 != "" && *sourceDir != "" {
		return fmt.Errorf("--source-pk3 and --source-dir are mutually exclusive")
	}

	fmt.Printf("=== Upscaling Textures: %s (model: %s, x%d) ===\n", name, *model, *scale)
	fmt.Println()

	outPath, stats, err := upscale.Run(ctx, cfg, r, upscale.Options{
		ModName:      name,
		SourcePK3:    *sourcePK3,
		SourceDir:    *sourceDir,
		Output:       *output,
		Model:        *model,
		Scale:        *scale,
		MaxDimension: *maxDim,
		KeepWork:     *keepWork,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║         Texture Upscale Complete         ║")
	fmt.Println("╚══════════════════════════════════════════╝")
	fmt.Printf("Package:  %s\n", outPath)
	fmt.Printf("Textures: %d found, %d upscaled, %d skipped (large), %d kept original, %d failed\n",
		stats.Discovered, stats.Upscaled, stats.SkippedLarge, stats.CopiedOriginal, stats.Failed)
	return nil
}
