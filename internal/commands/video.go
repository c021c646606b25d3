// Copyright (c) 2025 OAForge

package commands

import (
	"flag"
	"fmt"
	"path/filepath"
	"strconv"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/cvars"
)

// SetVideoDefaults upserts video cvar directives into the config file of
// every discovered profile under the distribution root.
func SetVideoDefaults(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("set-video-defaults", flag.ExitOnError)
	distPath := fs.String("dist", "", "Distribution root (default: configured dist directory)")
	mode := fs.String("mode", "", "r_mode value (integer)")
	fullscreen := fs.String("fullscreen", "", "r_fullscreen value (0 or 1)")
	noborder := fs.String("noborder", "", "r_noborder value (0 or 1)")
	width := fs.String("width", "", "Custom resolution width (requires --height)")
	height := fs.String("height", "", "Custom resolution height (requires --width)")
	includeAll := fs.Bool("include-all", false, "Treat every subdirectory as a profile")
	fs.Parse(args)

	// Validate everything before touching any file
	var directives []cvars.Directive

	if *mode != "" {
		if _, err := strconv.Atoi(*mode); err != nil {
			return fmt.Errorf("--mode must be an integer, got %q", *mode)
		}
		directives = append(directives, cvars.Directive{Key: "r_mode", Value: *mode})
	}
	if *fullscreen != "" {
		if *fullscreen != "0" && *fullscreen != "1" {
			return fmt.Errorf("--fullscreen must be 0 or 1, got %q", *fullscreen)
		}
		directives = append(directives, cvars.Directive{Key: "r_fullscreen", Value: *fullscreen})
	}
	if *noborder != "" {
		if *noborder != "0" && *noborder != "1" {
			return fmt.Errorf("--noborder must be 0 or 1, got %q", *noborder)
		}
		directives = append(directives, cvars.Directive{Key: "r_noborder", Value: *noborder})
	}
	if (*width == "") != (*height == "") {
		return fmt.Errorf("--width and --height must be supplied together")
	}
	if *width != "" {
		if *mode != "" {
			return fmt.Errorf("--mode cannot be combined with --width/--height: a custom resolution forces r_mode -1")
		}
		if _, err := strconv.Atoi(*width); err != nil {
			return fmt.Errorf("--width must be an integer, got %q", *width)
		}
		if _, err := strconv.Atoi(*height); err != nil {
			return fmt.Errorf("--height must be an integer, got %q", *height)
		}
		// A custom resolution only takes effect in mode -1
		directives = append(directives,
			cvars.Directive{Key: "r_mode", Value: "-1"},
			cvars.Directive{Key: "r_customwidth", Value: *width},
			cvars.Directive{Key: "r_customheight", Value: *height})
	}

	if len(directives) == 0 {
		return fmt.Errorf("nothing to set: give at least one of --mode, --fullscreen, --noborder, --width/--height")
	}

	root := cfg.GetDistDir()
	if *distPath != "" {
		root = *distPath
	}

	profiles, err := cvars.DiscoverProfiles(root, cfg.Output.BaseProfile, *includeAll)
	if err != nil {
		return fmt.Errorf("discover profiles: %w", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found under", root)
		return nil
	}

	fmt.Println("=== Setting Video Defaults ===")
	fmt.Println()

	for _, profile := range profiles {
		cfgPath := filepath.Join(profile, "autoexec.cfg")
		for _, d := range directives {
			if err := cvars.Upsert(cfgPath, d); err != nil {
				return fmt.Errorf("update %s: %w", cfgPath, err)
			}
		}
		fmt.Printf("  Updated: %s\n", cfgPath)
	}

	fmt.Println()
	fmt.Printf("Updated %d profile(s), %d directive(s) each\n", len(profiles), len(directives))
	return nil
}
