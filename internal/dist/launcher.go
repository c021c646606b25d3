// Copyright (c) 2025 OAForge

package dist

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"oaforge-cli/internal/config"
)

// LauncherMarker is the provenance line written into every generated
// launcher. Files without it are never touched by regeneration.
const LauncherMarker = "# managed by oaforge"

// WriteBaseLauncher generates the base distribution launcher with the fixed
// runtime flags: base asset profile, windowed client mode, memory pool hint.
func WriteBaseLauncher(cfg *config.Config) (string, error) {
	flags := fmt.Sprintf("+set fs_game %s +set dedicated 0 +set com_hunkmegs %d",
		cfg.Output.BaseProfile, cfg.Output.HunkMegs)

	path := filepath.Join(cfg.GetDistDir(), "run_openarena.sh")
	if err := writeLauncher(path, flags); err != nil {
		return "", err
	}
	return path, nil
}

// WriteModLauncher generates a launcher that pins the mod's identifier and
// forces interpreted bytecode for the game module. vm_game 1 keeps the
// engine off the native-DLL override path, so the packaged qvm is what runs.
func WriteModLauncher(cfg *config.Config, modName string) (string, error) {
	flags := fmt.Sprintf("+set fs_game %s +set vm_game 1 +set sv_pure 0 +set com_hunkmegs %d",
		modName, cfg.Output.HunkMegs)

	path := filepath.Join(cfg.GetDistDir(), "run_"+modName+".sh")
	if err := writeLauncher(path, flags); err != nil {
		return "", err
	}
	return path, nil
}

// writeLauncher renders the launcher script and writes it atomically
func writeLauncher(path, flags string) error {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString(LauncherMarker + "\n")
	sb.WriteString(`DIR="$(cd "$(dirname "$0")" && pwd)"` + "\n")
	sb.WriteString(`if [ -x "$DIR/ioquake3.app/Contents/MacOS/ioquake3" ]; then` + "\n")
	sb.WriteString(`    ENGINE="$DIR/ioquake3.app/Contents/MacOS/ioquake3"` + "\n")
	sb.WriteString("else\n")
	sb.WriteString(`    ENGINE="$(ls "$DIR"/ioquake3* 2>/dev/null | head -n 1)"` + "\n")
	sb.WriteString("fi\n")
	sb.WriteString(fmt.Sprintf(`exec "$ENGINE" +set fs_basepath "$DIR" %s "$@"`, flags))
	sb.WriteString("\n")

	if err := renameio.WriteFile(path, []byte(sb.String()), 0755); err != nil {
		return fmt.Errorf("write launcher %s: %w", filepath.Base(path), err)
	}
	return nil
}
