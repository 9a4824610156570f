package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero render distance",
			mutate: func(cfg *Config) {
				cfg.Stream.RenderDistance = 0
			},
			wantErr: "stream.renderDistance must be >= 1",
		},
		{
			name: "zero worker slots",
			mutate: func(cfg *Config) {
				cfg.Stream.WorkerSlots = 0
			},
			wantErr: "stream.workerSlots must be >= 1",
		},
		{
			name: "negative field workers",
			mutate: func(cfg *Config) {
				cfg.Stream.FieldWorkers = -2
			},
			wantErr: "stream.fieldWorkers cannot be negative",
		},
		{
			name: "non positive chunk dimensions",
			mutate: func(cfg *Config) {
				cfg.Chunk.Width = 0
			},
			wantErr: "chunk dimensions must be positive",
		},
		{
			name: "overlapping blend margins",
			mutate: func(cfg *Config) {
				cfg.Biome.MountainThreshold = 1.3
			},
			wantErr: "biome thresholds must leave room for both blend margins",
		},
		{
			name: "inverted humidity thresholds",
			mutate: func(cfg *Config) {
				cfg.Biome.WetThreshold = cfg.Biome.DryThreshold
			},
			wantErr: "biome.wetThreshold must exceed biome.dryThreshold",
		},
		{
			name: "unknown noise kind",
			mutate: func(cfg *Config) {
				cfg.Noise.Rock.Kind = "worley"
			},
			wantErr: `noise.rock: unknown kind "worley"`,
		},
		{
			name: "zero octaves",
			mutate: func(cfg *Config) {
				cfg.Noise.Normal.Octaves = 0
			},
			wantErr: "noise.normal: octaves must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Stream.RenderDistance = 3
	cfg.Noise.Tree.Seed = 77

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Stream.WorkerSlots = 2
	cfg.Stream.TickRate = Duration(40 * time.Millisecond)
	cfg.Biome.BlendMargin = 0.1

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	if !strings.Contains(string(data), "tickRate: 40ms") {
		t.Fatalf("expected tick rate to encode as a duration string, got:\n%s", data)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Chunk.Width = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: chunk dimensions must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationUnmarshalForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "string", raw: `"250ms"`, want: 250 * time.Millisecond},
		{name: "integer nanoseconds", raw: `1000`, want: time.Microsecond},
		{name: "null", raw: `null`, want: 0},
		{name: "empty string", raw: `""`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tt.raw), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if d.Duration() != tt.want {
				t.Fatalf("got %v want %v", d.Duration(), tt.want)
			}
		})
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected invalid duration string to fail")
	}
}
