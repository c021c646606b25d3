// Copyright (c) 2025 OAForge

package cvars

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a distribution subdirectory
type Kind int

const (
	NotAProfile Kind = iota
	BaseProfile
	ModProfile
)

// engineBundle is never a profile even under --include-all
const engineBundle = "ioquake3.app"

// Classify decides what a distribution subdirectory is: the reserved base
// profile name, a mod profile (holds at least one generated package file),
// or not a profile at all. Pure predicate, decoupled from tree scanning.
func Classify(dirName, baseProfile string, entries []string) Kind {
	if dirName == engineBundle {
		return NotAProfile
	}
	if dirName == baseProfile {
		return BaseProfile
	}
	for _, name := range entries {
		if strings.HasPrefix(name, "z_") && strings.HasSuffix(name, ".pk3") {
			return ModProfile
		}
	}
	return NotAProfile
}

// DiscoverProfiles returns the profile directories under the distribution
// root, sorted. includeAll widens identification to every subdirectory
// except the engine bundle.
func DiscoverProfiles(distRoot, baseProfile string, includeAll bool) ([]string, error) {
	entries, err := os.ReadDir(distRoot)
	if err != nil {
		return nil, fmt.Errorf("read distribution root: %w", err)
	}

	var profiles []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(distRoot, entry.Name())

		if includeAll {
			if entry.Name() != engineBundle {
				profiles = append(profiles, dir)
			}
			continue
		}

		sub, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		names := make([]string, 0, len(sub))
		for _, s := range sub {
			names = append(names, s.Name())
		}

		if Classify(entry.Name(), baseProfile, names) != NotAProfile {
			profiles = append(profiles, dir)
		}
	}

	sort.Strings(profiles)
	return profiles, nil
}
