// Copyright (c) 2025 OAForge

package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/cvars"
)

const hifiConfigName = "hifidelity.cfg"

// hifiDirectives are the quality settings written by enable-high-fidelity
var hifiDirectives = []cvars.Directive{
	{Key: "r_picmip", Value: "0"},
	{Key: "r_texturemode", Value: "GL_LINEAR_MIPMAP_LINEAR"},
	{Key: "r_ext_texture_filter_anisotropic", Value: "1"},
	{Key: "r_ext_max_anisotropy", Value: "16"},
	{Key: "cg_shadows", Value: "1"},
}

// EnableHighFidelity writes the high-fidelity config into every discovered
// profile and wires it into the profile's autoexec
func EnableHighFidelity(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("enable-high-fidelity", flag.ExitOnError)
	includeAll := fs.Bool("include-all", false, "Treat every subdirectory as a profile")
	fs.Parse(args)

	profiles, err := cvars.DiscoverProfiles(cfg.GetDistDir(), cfg.Output.BaseProfile, *includeAll)
	if err != nil {
		return fmt.Errorf("discover profiles: %w", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found under", cfg.GetDistDir())
		return nil
	}

	fmt.Println("=== Enabling High-Fidelity Settings ===")
	fmt.Println()

	for _, profile := range profiles {
		hifiPath := filepath.Join(profile, hifiConfigName)
		for _, d := range hifiDirectives {
			if err := cvars.Upsert(hifiPath, d); err != nil {
				return fmt.Errorf("update %s: %w", hifiPath, err)
			}
		}
		if err := cvars.UpsertExecLine(filepath.Join(profile, "autoexec.cfg"), hifiConfigName); err != nil {
			return fmt.Errorf("wire autoexec in %s: %w", profile, err)
		}
		fmt.Printf("  Enabled: %s\n", hifiPath)
	}

	fmt.Println()
	fmt.Printf("Enabled high-fidelity settings in %d profile(s)\n", len(profiles))
	return nil
}

// DisableHighFidelity removes high-fidelity configs the tool owns. Files
// lacking the ownership marker are skipped, never deleted.
func DisableHighFidelity(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("disable-high-fidelity", flag.ExitOnError)
	includeAll := fs.Bool("include-all", false, "Treat every subdirectory as a profile")
	fs.Parse(args)

	profiles, err := cvars.DiscoverProfiles(cfg.GetDistDir(), cfg.Output.BaseProfile, *includeAll)
	if err != nil {
		return fmt.Errorf("discover profiles: %w", err)
	}

	fmt.Println("=== Disabling High-Fidelity Settings ===")
	fmt.Println()

	removed, skipped := 0, 0
	for _, profile := range profiles {
		hifiPath := filepath.Join(profile, hifiConfigName)
		if _, err := os.Stat(hifiPath); os.IsNotExist(err) {
			continue
		}
		ok, err := cvars.RemoveManaged(hifiPath)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("  Removed: %s\n", hifiPath)
			removed++
		} else {
			fmt.Printf("  Skipped (not managed by oaforge): %s\n", hifiPath)
			skipped++
		}
	}

	fmt.Println()
	fmt.Printf("Removed %d file(s), skipped %d unmanaged file(s)\n", removed, skipped)
	return nil
}
