// Copyright (c) 2025 OAForge

package commands

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestUpscaleTexturesRejectsBadInputWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid name", []string{"bad name"}, "invalid target name"},
		{"bad scale", []string{"demo_mod", "--scale", "0"}, "--scale"},
		{"bad max dimension", []string{"demo_mod", "--max-dimension", "-1"}, "--max-dimension"},
		{"conflicting sources", []string{"demo_mod", "--source-pk3", "a.pk3", "--source-dir", "b"}, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Upscale.Scale = 4
			cfg.Upscale.MaxDimension = 1024
			r := &scriptRunner{}

			err := UpscaleTextures(context.Background(), cfg, r, tt.args)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %v should mention %q", err, tt.want)
			}
			if len(r.calls) != 0 {
				t.Errorf("no tool should run on rejected input, ran %v", r.calls)
			}
			if _, err := os.Stat(cfg.GetDistDir()); !os.IsNotExist(err) {
				t.Error("dist tree created despite rejected input")
			}
		})
	}
}
