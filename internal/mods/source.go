// Copyright (c) 2025 OAForge

package mods

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteSource persists a generated mod's source of record: the patch that
// produced it and a README. Build outputs and the packaged archive are
// regenerated each run and are never source of truth; these two files are.
func WriteSource(modsPath, name string, variant Variant, patch []byte) (string, error) {
	modDir := filepath.Join(modsPath, name)
	if err := os.MkdirAll(modDir, 0755); err != nil {
		return "", fmt.Errorf("create mod directory: %w", err)
	}

	patchPath := filepath.Join(modDir, fmt.Sprintf("%s.patch", variant))
	if err := os.WriteFile(patchPath, patch, 0644); err != nil {
		return "", fmt.Errorf("write patch: %w", err)
	}

	readme := fmt.Sprintf(`# %s

Generated game-logic mod (variant: %s).

## Contents

- %s.patch: the source patch applied to the engine game code
- Optional asset category directories (gfx/, sound/, maps/, ...) staged
  into the package on the next generation run

## Rebuilding

    oaforge generate-mod %s --variant %s

The packaged archive and launcher under dist/ are build outputs; edit the
patch or the asset directories here and regenerate.

## Playing

Run the generated launcher from the distribution root:

    ./run_%s.sh
`, name, variant, variant, name, variant, name)

	readmePath := filepath.Join(modDir, "README.md")
	if err := os.WriteFile(readmePath, []byte(readme), 0644); err != nil {
		return "", fmt.Errorf("write README: %w", err)
	}

	return modDir, nil
}
