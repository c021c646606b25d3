// Copyright (c) 2025 OAForge

// Package upscale regenerates player model textures at higher resolution.
// It pulls skins out of a packaged mod (or a loose tree), runs each one
// through the Real-ESRGAN upscaler, and repackages the results as an
// overlay pk3 that sorts after the originals.
package upscale

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	// Registered for dimension probing via image.DecodeConfig
	_ "image/jpeg"
	_ "image/png"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/dist"
	"oaforge-cli/internal/runner"
)

// Options selects the source, the output and the upscaler parameters for
// a single run. Zero-value fields fall back to the configured defaults.
type Options struct {
	ModName      string
	SourcePK3    string // explicit package, wins over discovery
	SourceDir    string // explicit loose tree, last before the mod source
	Output       string // overlay pk3 path (default: dist/<mod>/z_<mod>_upscaled_skins.pk3)
	Model        string
	Scale        int
	MaxDimension int // textures larger than this pass through unchanged
	KeepWork     bool
}

// Stats counts what happened to each discovered texture
type Stats struct {
	Discovered     int
	SkippedLarge   int
	Upscaled       int
	CopiedOriginal int
	Failed         int
}

// Source is a resolved texture origin: either a pk3 archive or a directory
type Source struct {
	Path      string
	IsArchive bool
}

var targetRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateTarget checks an upscale target name. Unlike mod generation,
// the base game directory is a legitimate target here.
func ValidateTarget(name string) error {
	if name == "" {
		return fmt.Errorf("target name must not be empty")
	}
	if !targetRe.MatchString(name) {
		return fmt.Errorf("invalid target name %q: use only letters, digits, underscore and hyphen", name)
	}
	return nil
}

// textureExts are the image formats the upscaler pass handles
var textureExts = map[string]bool{
	".tga":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// isPlayerTexture reports whether a slash-separated relative path names a
// player model skin the pass should touch
func isPlayerTexture(rel string) bool {
	if !strings.HasPrefix(rel, "models/players/") {
		return false
	}
	return textureExts[strings.ToLower(filepath.Ext(rel))]
}

// ResolveSource picks where the textures come from, in precedence order:
// an explicit pk3, the target's packaged pk3 under dist, any other z_*.pk3
// in the same directory, an explicit directory, then the mod source tree.
func ResolveSource(cfg *config.Config, opts Options) (Source, error) {
	if opts.SourcePK3 != "" {
		if _, err := os.Stat(opts.SourcePK3); err != nil {
			return Source{}, fmt.Errorf("source pk3: %w", err)
		}
		return Source{Path: opts.SourcePK3, IsArchive: true}, nil
	}

	distDir := filepath.Join(cfg.GetDistDir(), opts.ModName)
	primary := filepath.Join(distDir, "z_"+opts.ModName+".pk3")
	if _, err := os.Stat(primary); err == nil {
		return Source{Path: primary, IsArchive: true}, nil
	}
	if others, _ := filepath.Glob(filepath.Join(distDir, "z_*.pk3")); len(others) > 0 {
		sort.Strings(others)
		return Source{Path: others[0], IsArchive: true}, nil
	}

	if opts.SourceDir != "" {
		info, err := os.Stat(opts.SourceDir)
		if err != nil {
			return Source{}, fmt.Errorf("source directory: %w", err)
		}
		if !info.IsDir() {
			return Source{}, fmt.Errorf("source directory %s is not a directory", opts.SourceDir)
		}
		return Source{Path: opts.SourceDir}, nil
	}

	modDir := filepath.Join(cfg.GetModsPath(), opts.ModName)
	if info, err := os.Stat(modDir); err == nil && info.IsDir() {
		return Source{Path: modDir}, nil
	}

	return Source{}, fmt.Errorf("no texture source found for %q; available mods: %s",
		opts.ModName, availableTargets(cfg))
}

// availableTargets lists the dist subdirectories, for the not-found error
func availableTargets(cfg *config.Config) string {
	entries, err := os.ReadDir(cfg.GetDistDir())
	if err != nil {
		return "(none)"
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Run executes the full pass: resolve the upscaler, pull player textures
// out of the source, upscale each one, and archive the results as the
// overlay pk3. Returns the written package path and the per-image stats.
func Run(ctx context.Context, cfg *config.Config, r runner.Runner, opts Options) (string, *Stats, error) {
	tool, err := EnsureTool(ctx, cfg, r, opts.Model)
	if err != nil {
		return "", nil, err
	}

	src, err := ResolveSource(cfg, opts)
	if err != nil {
		return "", nil, err
	}

	workDir, err := os.MkdirTemp("", "oaforge-upscale-*")
	if err != nil {
		return "", nil, fmt.Errorf("create work directory: %w", err)
	}
	if !opts.KeepWork {
		defer os.RemoveAll(workDir)
	} else {
		fmt.Println("Keeping work directory:", workDir)
	}

	inDir := filepath.Join(workDir, "in")
	outDir := filepath.Join(workDir, "out")

	var images []string
	if src.IsArchive {
		images, err = extractPlayerTextures(src.Path, inDir)
	} else {
		images, err = copyPlayerTextures(src.Path, inDir)
	}
	if err != nil {
		return "", nil, err
	}
	if len(images) == 0 {
		return "", nil, fmt.Errorf("no player model textures in %s", src.Path)
	}

	stats := &Stats{Discovered: len(images)}
	for _, rel := range images {
		srcPath := filepath.Join(inDir, filepath.FromSlash(rel))
		destPath := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return "", nil, fmt.Errorf("stage %s: %w", rel, err)
		}

		w, h, err := imageSize(srcPath)
		if err == nil && (w > opts.MaxDimension || h > opts.MaxDimension) {
			if err := copyFile(srcPath, destPath); err != nil {
				return "", nil, fmt.Errorf("copy %s: %w", rel, err)
			}
			stats.SkippedLarge++
			stats.CopiedOriginal++
			fmt.Printf("  skip (already %dx%d): %s\n", w, h, rel)
			continue
		}

		if err := upscaleOne(ctx, r, tool, workDir, srcPath, destPath, opts); err != nil {
			// A texture the upscaler chokes on still has to ship
			fmt.Printf("  failed (%v), keeping original: %s\n", err, rel)
			if err := copyFile(srcPath, destPath); err != nil {
				return "", nil, fmt.Errorf("copy %s: %w", rel, err)
			}
			stats.Failed++
			stats.CopiedOriginal++
			continue
		}
		stats.Upscaled++
		fmt.Printf("  upscaled: %s\n", rel)
	}

	outPath := opts.Output
	if outPath == "" {
		outPath = filepath.Join(cfg.GetDistDir(), opts.ModName, "z_"+opts.ModName+"_upscaled_skins.pk3")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", nil, fmt.Errorf("create package directory: %w", err)
	}
	os.Remove(outPath)
	if _, err := dist.ArchiveTree(outDir, outPath); err != nil {
		os.Remove(outPath)
		return "", nil, fmt.Errorf("write package: %w", err)
	}
	return outPath, stats, nil
}

// upscaleOne runs a single texture through the upscaler, shuttling through
// PNG for formats the tool does not read or write natively
func upscaleOne(ctx context.Context, r runner.Runner, tool *Tool, workDir, srcPath, destPath string, opts Options) error {
	ext := strings.ToLower(filepath.Ext(srcPath))

	in := srcPath
	if ext == ".tga" {
		// The converter mishandles top-down TGAs; rewrite bottom-up first
		normalized := filepath.Join(workDir, "norm.tga")
		if err := normalizeTGA(srcPath, normalized); err != nil {
			return fmt.Errorf("normalize tga: %w", err)
		}
		in = filepath.Join(workDir, "pre.png")
		if err := r.Run(ctx, "", tool.Converter, normalized, in); err != nil {
			return fmt.Errorf("convert to png: %w", err)
		}
	}

	up := filepath.Join(workDir, "up.png")
	os.Remove(up)
	err := r.Run(ctx, "", tool.Binary,
		"-i", in,
		"-o", up,
		"-n", opts.Model,
		"-s", strconv.Itoa(opts.Scale),
		"-f", "png",
		"-m", tool.ModelsDir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(up); err != nil {
		return fmt.Errorf("upscaler produced no output")
	}

	if ext == ".png" {
		return copyFile(up, destPath)
	}
	if err := r.Run(ctx, "", tool.Converter, up, destPath); err != nil {
		return fmt.Errorf("convert from png: %w", err)
	}
	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("converter produced no output")
	}
	return nil
}

// imageSize probes a texture's dimensions without a full decode
func imageSize(path string) (int, int, error) {
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		return tgaSize(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// extractPlayerTextures pulls matching entries out of a pk3 into destDir,
// preserving their relative paths, and returns those paths
func extractPlayerTextures(archivePath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer zr.Close()

	var found []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rel := filepath.ToSlash(entry.Name)
		if !isPlayerTexture(rel) {
			continue
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, err
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return nil, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return nil, err
		}
		out.Close()
		rc.Close()
		found = append(found, rel)
	}
	sort.Strings(found)
	return found, nil
}

// copyPlayerTextures mirrors matching files from a loose tree into destDir
func copyPlayerTextures(root, destDir string) ([]string, error) {
	var found []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !isPlayerTexture(rel) {
			return nil
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
