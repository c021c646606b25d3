// Copyright (c) 2025 OAForge

// Package cvars edits key/value directives in engine config files. Upserts
// replace an existing directive in place and append only when absent; the
// same operation run twice leaves the file byte-identical. Files the tool
// creates carry an ownership marker, and destructive operations refuse to
// touch files without it.
package cvars

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/renameio"
)

// OwnershipMarker is written as the first line of every config file the
// tool creates. Only marked files may be removed by the tool.
const OwnershipMarker = "// managed by oaforge"

var directiveRe = regexp.MustCompile(`^\s*(set|seta)\s+(\S+)\s+`)

// Directive is one cvar assignment
type Directive struct {
	Key   string
	Value string
}

// Line renders the directive in the form written to config files
func (d Directive) Line() string {
	return fmt.Sprintf("seta %s \"%s\"", d.Key, d.Value)
}

// Upsert rewrites the directive for key in place if the file has one,
// preserving its line position, and appends it otherwise. Duplicate
// directives for the same key are collapsed into the first. A missing file
// is created with the ownership marker header.
func Upsert(path string, d Directive) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content := OwnershipMarker + "\n" + d.Line() + "\n"
		if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("create config %s: %w", path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var out []string
	replaced := false
	for _, line := range lines {
		if m := directiveRe.FindStringSubmatch(line); m != nil && strings.EqualFold(m[2], d.Key) {
			if replaced {
				continue // collapse duplicates
			}
			out = append(out, d.Line())
			replaced = true
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, d.Line())
	}

	content := strings.Join(out, "\n") + "\n"
	if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// UpsertExecLine appends an `exec <name>` line unless an equivalent line is
// already present. Like Upsert it creates missing files with the marker.
func UpsertExecLine(path, cfgName string) error {
	execRe := regexp.MustCompile(`^\s*exec\s+` + regexp.QuoteMeta(cfgName) + `\s*$`)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content := OwnershipMarker + "\nexec " + cfgName + "\n"
		if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("create config %s: %w", path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if execRe.MatchString(line) {
			return nil
		}
	}

	content := strings.TrimRight(string(data), "\n") + "\nexec " + cfgName + "\n"
	if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// IsManaged reports whether a file carries the ownership marker
func IsManaged(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(data), OwnershipMarker), nil
}

// RemoveManaged deletes a config file only if the tool owns it. Returns
// true when the file was removed, false when it was skipped as unmanaged
// or absent.
func RemoveManaged(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	managed, err := IsManaged(path)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", path, err)
	}
	if !managed {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return true, nil
}
