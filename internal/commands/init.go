// Copyright (c) 2025 OAForge

package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"oaforge-cli/internal/config"
)

// Init initializes a new oaforge workspace
func Init(configPath string, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing files")
	fs.Parse(args)

	workspaceRoot := filepath.Dir(configPath)
	if workspaceRoot == "." {
		var err error
		workspaceRoot, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !*force {
		return fmt.Errorf("workspace already initialized (config.json exists). Use --force to reinitialize")
	}

	fmt.Println("Initializing oaforge workspace...")
	fmt.Println()

	// Create directory structure
	dirs := []struct {
		path string
		desc string
	}{
		{"engine", "Engine source checkouts"},
		{"build", "Build directories (reusable, incremental)"},
		{"cache", "Downloaded asset archives"},
		{"tools", "Bootstrapped toolchain"},
		{"dist", "Assembled distribution"},
		{"mods", "Generated mod sources"},
		{"logs", "Verification logs"},
	}

	for _, d := range dirs {
		dirPath := filepath.Join(workspaceRoot, d.path)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d.path, err)
		}
		fmt.Printf("  Created: %s/\n", d.path)

		// Add .gitkeep to empty directories
		gitkeep := filepath.Join(dirPath, ".gitkeep")
		if _, err := os.Stat(gitkeep); os.IsNotExist(err) {
			os.WriteFile(gitkeep, []byte{}, 0644)
		}
	}

	// Create config.json
	cfg := config.DefaultConfig()
	if err := config.WriteConfig(cfg, configPath); err != nil {
		return err
	}
	fmt.Printf("  Created: config.json\n")

	// Create .gitignore: everything here except mod sources is regenerable
	gitignorePath := filepath.Join(workspaceRoot, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) || *force {
		gitignore := `engine/
build/
cache/
tools/
dist/
logs/
`
		if err := os.WriteFile(gitignorePath, []byte(gitignore), 0644); err != nil {
			return fmt.Errorf("write .gitignore: %w", err)
		}
		fmt.Printf("  Created: .gitignore\n")
	}

	fmt.Println()
	fmt.Println("Workspace ready.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. oaforge build                # build the base distribution")
	fmt.Println("  2. oaforge generate-mod my_mod  # generate a mod variant")

	return nil
}
