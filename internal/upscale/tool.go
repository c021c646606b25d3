// Copyright (c) 2025 OAForge

package upscale

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"oaforge-cli/internal/config"
	"oaforge-cli/internal/runner"
)

// binaryName is the upscaler executable inside the pinned release archive
const binaryName = "realesrgan-ncnn-vulkan"

// Tool is a resolved upscaler installation plus the image converter used
// to shuttle formats the upscaler does not handle
type Tool struct {
	Binary    string
	ModelsDir string
	Converter string
}

// EnsureTool resolves the upscaler and converter, downloading and
// extracting the pinned upscaler release on first use. Repeated runs find
// the installed binary and do no network work.
func EnsureTool(ctx context.Context, cfg *config.Config, r runner.Runner, model string) (*Tool, error) {
	converter, err := r.LookPath("magick")
	if err != nil {
		converter, err = r.LookPath("convert")
		if err != nil {
			return nil, fmt.Errorf("no image converter on PATH: install ImageMagick (magick or convert)")
		}
	}

	toolDir := cfg.GetUpscaleToolDir()
	tool, err := locate(toolDir, model)
	if err == nil {
		tool.Converter = converter
		return tool, nil
	}

	if err := os.MkdirAll(toolDir, 0755); err != nil {
		return nil, fmt.Errorf("create tool directory: %w", err)
	}
	archivePath := filepath.Join(toolDir, filepath.Base(cfg.Upscale.ToolURL))
	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		fmt.Println("Downloading upscaler...")
		if err := download(ctx, cfg.Upscale.ToolURL, archivePath); err != nil {
			return nil, fmt.Errorf("download %s: %w", cfg.Upscale.ToolURL, err)
		}
	}

	fmt.Printf("Extracting %s...\n", filepath.Base(archivePath))
	if err := extractZip(archivePath, toolDir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(archivePath), err)
	}

	tool, err = locate(toolDir, model)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(tool.Binary, 0755); err != nil {
		return nil, fmt.Errorf("mark upscaler executable: %w", err)
	}
	tool.Converter = converter
	return tool, nil
}

// locate finds the upscaler binary and the directory holding the model's
// .param/.bin pair anywhere under toolDir. Release archives nest their
// content one level deep, so a fixed layout cannot be assumed.
func locate(toolDir, model string) (*Tool, error) {
	var binary, modelsDir string
	err := filepath.Walk(toolDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Base(path) {
		case binaryName:
			binary = path
		case model + ".param":
			modelsDir = filepath.Dir(path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if binary == "" {
		return nil, fmt.Errorf("upscaler binary %s not found under %s", binaryName, toolDir)
	}
	if modelsDir == "" {
		return nil, fmt.Errorf("model %s not found under %s", model, toolDir)
	}
	if _, err := os.Stat(filepath.Join(modelsDir, model+".bin")); err != nil {
		return nil, fmt.Errorf("model %s is missing its weights file: %w", model, err)
	}
	return &Tool{Binary: binary, ModelsDir: modelsDir}, nil
}

// download fetches url into dest via a temp file
func download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// extractZip unpacks a zip archive under destDir
func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(entry.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		rc, err := entry.Open()
		if err != nil {
			return err
		}
		mode := entry.Mode() & 0777
		if mode == 0 {
			mode = 0644
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}
