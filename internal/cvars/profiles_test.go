// Copyright (c) 2025 OAForge

package cvars

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		dirName     string
		baseProfile string
		entries     []string
		want        Kind
	}{
		{"base profile", "baseoa", "baseoa", []string{"pak0.pk3"}, BaseProfile},
		{"mod with package", "ghostmod", "baseoa", []string{"z_ghostmod.pk3"}, ModProfile},
		{"engine bundle never a profile", "ioquake3.app", "baseoa", []string{"z_fake.pk3"}, NotAProfile},
		{"plain pk3 is not a mod package", "stuff", "baseoa", []string{"pak0.pk3"}, NotAProfile},
		{"prefix without suffix", "stuff", "baseoa", []string{"z_notes.txt"}, NotAProfile},
		{"empty directory", "empty", "baseoa", nil, NotAProfile},
		{"custom base profile name", "basemod", "basemod", nil, BaseProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.dirName, tt.baseProfile, tt.entries); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.dirName, got, tt.want)
			}
		})
	}
}

func distTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mk := func(parts ...string) {
		path := filepath.Join(append([]string{root}, parts...)...)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mk("baseoa", "pak0.pk3")
	mk("ghostmod", "z_ghostmod.pk3")
	mk("screenshots", "shot0001.jpg")
	mk("ioquake3.app", "Contents", "MacOS", "ioquake3")
	mk("run_openarena.sh") // plain file, never a profile
	return root
}

func TestDiscoverProfiles(t *testing.T) {
	root := distTree(t)

	profiles, err := DiscoverProfiles(root, "baseoa", false)
	if err != nil {
		t.Fatalf("DiscoverProfiles failed: %v", err)
	}

	want := []string{filepath.Join(root, "baseoa"), filepath.Join(root, "ghostmod")}
	if len(profiles) != len(want) {
		t.Fatalf("got %v, want %v", profiles, want)
	}
	for i := range want {
		if profiles[i] != want[i] {
			t.Errorf("profile %d = %s, want %s", i, profiles[i], want[i])
		}
	}
}

func TestDiscoverProfilesIncludeAll(t *testing.T) {
	root := distTree(t)

	profiles, err := DiscoverProfiles(root, "baseoa", true)
	if err != nil {
		t.Fatalf("DiscoverProfiles failed: %v", err)
	}

	found := make(map[string]bool)
	for _, p := range profiles {
		found[filepath.Base(p)] = true
	}
	if !found["screenshots"] {
		t.Error("--include-all should widen to every subdirectory")
	}
	if found["ioquake3.app"] {
		t.Error("engine bundle must stay excluded even under --include-all")
	}
}
