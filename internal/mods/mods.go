// Copyright (c) 2025 OAForge

// Package mods holds the mod generation inputs: name and variant
// validation, the embedded patch catalog, and the identity check run
// against the compiled game module.
package mods

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultName is the mod name used when generate-mod is given none
const DefaultName = "ghostmod"

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedNames may not be used as mod identifiers; they collide with
// distribution directories the pipeline owns
var reservedNames = []string{"baseoa", "ioquake3"}

// ValidateName checks a mod name against the safe identifier pattern.
// Called before any filesystem effect.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("mod name must not be empty")
	}
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid mod name %q: use only letters, digits, underscore and hyphen", name)
	}
	for _, r := range reservedNames {
		if strings.EqualFold(name, r) {
			return fmt.Errorf("mod name %q is reserved", name)
		}
	}
	return nil
}

// imageExts are the accepted main menu image formats
var imageExts = map[string]bool{
	".tga":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateMenuImage checks that a custom main menu image exists and has an
// accepted extension
func ValidateMenuImage(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExts[ext] {
		return fmt.Errorf("unsupported image extension %q: want .tga, .png, .jpg or .jpeg", ext)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("mainmenu image: %w", err)
	}
	return nil
}

// Game module identity markers. The patched module must identify itself
// with the base asset profile's game name; a module still carrying the
// upstream identifier would load against the wrong asset set.
const (
	CompatMarker = "baseoa"
	LegacyMarker = "baseq3"
)

// CheckQVMIdentity verifies the produced bytecode module carries the
// compatibility marker and not the conflicting upstream one
func CheckQVMIdentity(qvmPath string) error {
	data, err := os.ReadFile(qvmPath)
	if err != nil {
		return fmt.Errorf("read qvm: %w", err)
	}
	if !bytes.Contains(data, []byte(CompatMarker)) {
		return fmt.Errorf("qvm %s is missing the %q identity marker", filepath.Base(qvmPath), CompatMarker)
	}
	if bytes.Contains(data, []byte(LegacyMarker)) {
		return fmt.Errorf("qvm %s still carries the %q identity marker", filepath.Base(qvmPath), LegacyMarker)
	}
	return nil
}
