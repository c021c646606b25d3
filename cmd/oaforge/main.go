// Copyright (c) 2025 OAForge
// OAForge builds a portable ioquake3 + OpenArena install and generates
// game-logic mod variants from patch content.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"oaforge-cli/internal/commands"
	"oaforge-cli/internal/config"
	"oaforge-cli/internal/runner"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	// The context is bound to interrupt signals at process start so scoped
	// cleanups (disposable source copies) run on every exit path.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Parse global flags
	configPath := "./config.json"
	var argsWithoutGlobal []string

	i := 1
	for i < len(os.Args) {
		arg := os.Args[i]

		// Handle --config flag
		if arg == "--config" || arg == "-c" {
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				i += 2
				continue
			}
			fmt.Println("Error: --config requires a value")
			os.Exit(1)
		}
		if strings.HasPrefix(arg, "--config=") {
			configPath = strings.TrimPrefix(arg, "--config=")
			i++
			continue
		}

		argsWithoutGlobal = append(argsWithoutGlobal, arg)
		i++
	}

	if len(argsWithoutGlobal) == 0 {
		printUsage()
		os.Exit(0)
	}

	cmd := argsWithoutGlobal[0]
	subArgs := argsWithoutGlobal[1:]

	// Handle help, version and init before loading config
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	case "version", "-v", "--version":
		fmt.Printf("oaforge version %s\n", version)
		os.Exit(0)
	case "init":
		if err := commands.Init(configPath, subArgs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Every pipeline setting has a working default; config.json is optional
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	r := runner.New()

	// Execute command
	var cmdErr error
	switch cmd {
	case "build":
		cmdErr = commands.Build(ctx, cfg, r, subArgs)
	case "generate-mod":
		cmdErr = commands.GenerateMod(ctx, cfg, r, subArgs)
	case "upscale-textures":
		cmdErr = commands.UpscaleTextures(ctx, cfg, r, subArgs)
	case "set-video-defaults":
		cmdErr = commands.SetVideoDefaults(cfg, subArgs)
	case "enable-high-fidelity":
		cmdErr = commands.EnableHighFidelity(cfg, subArgs)
	case "disable-high-fidelity":
		cmdErr = commands.DisableHighFidelity(cfg, subArgs)
	case "status":
		cmdErr = commands.Status(ctx, cfg, r, subArgs)
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`OAForge - ioquake3/OpenArena Build Pipeline

Usage: oaforge [global-flags] <command> [command-flags]

Global Flags:
  --config <path>    Path to config.json (default: ./config.json)

Commands:
  init                   Initialize a new oaforge workspace
  build                  Full build: resolve toolchain, compile engine, fetch assets, assemble dist
  generate-mod [name]    Generate a mod: patch a disposable source copy, build the qvm, package it
  upscale-textures [name] Upscale a mod's player skins and package them as an overlay pk3
  set-video-defaults     Upsert video cvars in every profile's config
  enable-high-fidelity   Write high-fidelity render settings into every profile
  disable-high-fidelity  Remove the tool's high-fidelity configs (unmanaged files are skipped)
  status                 Show toolchain, checkout, asset and distribution state
  version                Show version information
  help                   Show this help message

Examples:
  oaforge init                                    # Create new workspace in current directory
  oaforge build                                   # Build the base distribution
  oaforge build --clean                           # Clear the build directory first
  oaforge generate-mod                            # Generate the default mod (ghostmod)
  oaforge generate-mod demo_mod --variant debug-visible
  oaforge generate-mod demo_mod --mainmenu-image art/menu.png
  oaforge upscale-textures demo_mod --scale 4
  oaforge set-video-defaults --mode 3 --fullscreen 0
  oaforge set-video-defaults --width 1920 --height 1080 --include-all
  oaforge enable-high-fidelity
  oaforge disable-high-fidelity
  oaforge status

Mod Variants:
  default              Ghost-spawn-on-death plus projectile bounce cap
  debug-visible        Same gameplay changes with a visible ghost shell for testing

Environment Variables:
  IOQ3_REPO_URL        Engine repository URL (default: https://github.com/ioquake/ioq3.git)`)
}
