// Copyright (c) 2025 OAForge

package mods

import (
	_ "embed"
	"fmt"
)

// Variant selects which patch content and packaging rules apply
type Variant string

const (
	VariantDefault      Variant = "default"
	VariantDebugVisible Variant = "debug-visible"
)

//go:embed patchdata/ghost_default.patch
var patchDefault []byte

//go:embed patchdata/ghost_debug_visible.patch
var patchDebugVisible []byte

// ParseVariant validates a variant flag value
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantDefault, VariantDebugVisible:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown variant %q: want %q or %q", s, VariantDefault, VariantDebugVisible)
}

// PatchFor returns the unified diff applied for a variant. The diffs target
// the upstream game-logic sources and are applied strictly; they fail the
// run if upstream has drifted.
func PatchFor(v Variant) ([]byte, error) {
	switch v {
	case VariantDefault:
		return patchDefault, nil
	case VariantDebugVisible:
		return patchDebugVisible, nil
	}
	return nil, fmt.Errorf("no patch content for variant %q", v)
}
