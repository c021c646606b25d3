// Copyright (c) 2025 OAForge

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Config is the main oaforge configuration. It is the single context value
// threaded through every pipeline stage; nothing reads ambient globals.
type Config struct {
	// Computed paths
	WorkspaceRoot string // Directory containing config.json
	ConfigPath    string // Path to this config file

	// Engine source and build settings
	Engine EngineConfig `json:"engine"`

	// CMake toolchain settings
	CMake CMakeConfig `json:"cmake"`

	// Game asset archive settings
	Assets AssetsConfig `json:"assets"`

	// Texture upscale settings
	Upscale UpscaleConfig `json:"upscale"`

	// Output settings
	Output OutputConfig `json:"output"`
}

// EngineConfig holds the upstream engine checkout and build directories
type EngineConfig struct {
	RepoURL  string `json:"repo_url"`
	Dir      string `json:"dir"`       // Checkout directory
	BuildDir string `json:"build_dir"` // Full client/server build
}

// CMakeConfig holds the toolchain minimum version and bootstrap source
type CMakeConfig struct {
	MinMajor      int    `json:"min_major"`
	MinMinor      int    `json:"min_minor"`
	PinnedVersion string `json:"pinned_version"`
	PinnedURL     string `json:"pinned_url"`
	CacheDir      string `json:"cache_dir"` // Where the pinned tarball is kept
}

// AssetsConfig holds the third-party asset archive sources
type AssetsConfig struct {
	Version    string `json:"version"`
	PrimaryURL string `json:"primary_url"`
	MirrorURL  string `json:"mirror_url"`
	CachePath  string `json:"cache_path"`
	ExtractDir string `json:"extract_dir"`
}

// UpscaleConfig holds the texture upscaler tool source and defaults
type UpscaleConfig struct {
	ToolURL      string `json:"tool_url"` // Pinned upscaler release archive
	ToolDir      string `json:"tool_dir"` // Where the binary and models live
	Model        string `json:"model"`
	Scale        int    `json:"scale"`
	MaxDimension int    `json:"max_dimension"` // Skip images above this size
}

// OutputConfig holds distribution output settings
type OutputConfig struct {
	DistDir     string `json:"dist_dir"`
	BaseProfile string `json:"base_profile"` // Reserved base asset directory name
	HunkMegs    int    `json:"hunk_megs"`    // Memory pool hint baked into launchers
}

// Load loads and parses the config file, expanding environment variables
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the JSON
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Set computed paths
	cfg.ConfigPath = absPath
	cfg.WorkspaceRoot = filepath.Dir(absPath)

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadOrDefault loads the config file if it exists, otherwise returns a
// default config rooted at the current directory. Every pipeline setting has
// a working default, so a bare 'oaforge build' needs no config.json.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg := DefaultConfig()
		cfg.ConfigPath = filepath.Join(cwd, filepath.Base(path))
		cfg.WorkspaceRoot = cwd
		cfg.applyDefaults()
		return cfg, nil
	}
	return Load(path)
}

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns
func expandEnvVars(s string) string {
	// Pattern: ${VAR:-default} or ${VAR}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for unset fields
func (c *Config) applyDefaults() {
	// Engine defaults
	if c.Engine.RepoURL == "" {
		c.Engine.RepoURL = getEnvOrDefault("IOQ3_REPO_URL", "https://github.com/ioquake/ioq3.git")
	}
	if c.Engine.Dir == "" {
		c.Engine.Dir = "engine/ioq3"
	}
	if c.Engine.BuildDir == "" {
		c.Engine.BuildDir = "build/release"
	}

	// CMake defaults
	if c.CMake.MinMajor == 0 {
		c.CMake.MinMajor = 3
		c.CMake.MinMinor = 16
	}
	if c.CMake.PinnedVersion == "" {
		c.CMake.PinnedVersion = "3.28.3"
	}
	if c.CMake.PinnedURL == "" {
		c.CMake.PinnedURL = fmt.Sprintf(
			"https://github.com/Kitware/CMake/releases/download/v%s/cmake-%s-linux-x86_64.tar.gz",
			c.CMake.PinnedVersion, c.CMake.PinnedVersion)
	}
	if c.CMake.CacheDir == "" {
		c.CMake.CacheDir = "tools"
	}

	// Asset defaults
	if c.Assets.Version == "" {
		c.Assets.Version = "0.8.8"
	}
	if c.Assets.PrimaryURL == "" {
		c.Assets.PrimaryURL = fmt.Sprintf(
			"https://files.openarena.ws/openarena-%s.zip", c.Assets.Version)
	}
	if c.Assets.MirrorURL == "" {
		c.Assets.MirrorURL = fmt.Sprintf(
			"https://download.tuxfamily.org/openarena/rel/088/openarena-%s.zip", c.Assets.Version)
	}
	if c.Assets.CachePath == "" {
		c.Assets.CachePath = fmt.Sprintf("cache/openarena-%s.zip", c.Assets.Version)
	}
	if c.Assets.ExtractDir == "" {
		c.Assets.ExtractDir = "cache/openarena-extract"
	}

	// Upscale defaults
	if c.Upscale.ToolURL == "" {
		c.Upscale.ToolURL = "https://github.com/xinntao/Real-ESRGAN/releases/download/v0.2.5.0/realesrgan-ncnn-vulkan-20220424-ubuntu.zip"
	}
	if c.Upscale.ToolDir == "" {
		c.Upscale.ToolDir = "tools/realesrgan"
	}
	if c.Upscale.Model == "" {
		c.Upscale.Model = "realesrgan-x4plus"
	}
	if c.Upscale.Scale == 0 {
		c.Upscale.Scale = 4
	}
	if c.Upscale.MaxDimension == 0 {
		c.Upscale.MaxDimension = 1024
	}

	// Output defaults
	if c.Output.DistDir == "" {
		c.Output.DistDir = "dist"
	}
	if c.Output.BaseProfile == "" {
		c.Output.BaseProfile = "baseoa"
	}
	if c.Output.HunkMegs == 0 {
		c.Output.HunkMegs = 256
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// abs resolves a configured path against the workspace root
func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspaceRoot, path)
}

// Path helpers - all relative to workspace root

// GetEngineDir returns the path to the engine source checkout
func (c *Config) GetEngineDir() string {
	return c.abs(c.Engine.Dir)
}

// GetBuildDir returns the path to the full engine build directory
func (c *Config) GetBuildDir() string {
	return c.abs(c.Engine.BuildDir)
}

// GetToolsDir returns the toolchain bootstrap cache directory
func (c *Config) GetToolsDir() string {
	return c.abs(c.CMake.CacheDir)
}

// GetUpscaleToolDir returns the upscaler tool install directory
func (c *Config) GetUpscaleToolDir() string {
	return c.abs(c.Upscale.ToolDir)
}

// GetAssetCachePath returns the path of the cached asset archive
func (c *Config) GetAssetCachePath() string {
	return c.abs(c.Assets.CachePath)
}

// GetAssetExtractDir returns the asset extraction directory
func (c *Config) GetAssetExtractDir() string {
	return c.abs(c.Assets.ExtractDir)
}

// GetDistDir returns the distribution output root
func (c *Config) GetDistDir() string {
	return c.abs(c.Output.DistDir)
}

// GetModsPath returns the path to mod source directories
func (c *Config) GetModsPath() string {
	return filepath.Join(c.WorkspaceRoot, "mods")
}

// GetLogsPath returns the path to verification logs
func (c *Config) GetLogsPath() string {
	return filepath.Join(c.WorkspaceRoot, "logs")
}

// DefaultConfig returns a config with sensible defaults for scaffolding
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			RepoURL: "${IOQ3_REPO_URL:-https://github.com/ioquake/ioq3.git}",
			Dir:     "engine/ioq3",
		},
		CMake: CMakeConfig{
			MinMajor:      3,
			MinMinor:      16,
			PinnedVersion: "3.28.3",
			CacheDir:      "tools",
		},
		Assets: AssetsConfig{
			Version: "0.8.8",
		},
		Upscale: UpscaleConfig{
			Model:        "realesrgan-x4plus",
			Scale:        4,
			MaxDimension: 1024,
		},
		Output: OutputConfig{
			DistDir:     "dist",
			BaseProfile: "baseoa",
			HunkMegs:    256,
		},
	}
}

// WriteConfig writes a config to a file
func WriteConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
