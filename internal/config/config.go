package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON/YAML-friendly wrapper around time.Duration that accepts
// human readable strings such as "150ms" in configuration files while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	if node.Tag == "!!null" {
		*d = 0
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Noise kinds understood by the noise package.
const (
	NoiseOpenSimplex2 = "opensimplex2"
	NoisePerlin       = "perlin"
	NoiseValue        = "value"
)

// Config captures the tunable parameters of the terrain streaming engine.
type Config struct {
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Chunk   ChunkConfig   `json:"chunk" yaml:"chunk"`
	Biome   BiomeConfig   `json:"biome" yaml:"biome"`
	Noise   NoiseConfig   `json:"noise" yaml:"noise"`
	Objects ObjectsConfig `json:"objects" yaml:"objects"`
}

type StreamConfig struct {
	RenderDistance int      `json:"renderDistance" yaml:"renderDistance"` // chunks, circular
	WorkerSlots    int      `json:"workerSlots" yaml:"workerSlots"`       // simultaneous chunk builds
	TickRate       Duration `json:"tickRate" yaml:"tickRate"`             // e.g. "16ms"
	FieldWorkers   int      `json:"fieldWorkers" yaml:"fieldWorkers"`     // column goroutines per build, 0 = GOMAXPROCS
	Seed           int64    `json:"seed" yaml:"seed"`                     // seeds the per-slot random streams
}

type ChunkConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

type BiomeConfig struct {
	OceanThreshold    float64 `json:"oceanThreshold" yaml:"oceanThreshold"`       // height bucket boundary 0|1
	MountainThreshold float64 `json:"mountainThreshold" yaml:"mountainThreshold"` // height bucket boundary 1|2
	DryThreshold      float64 `json:"dryThreshold" yaml:"dryThreshold"`           // humidity boundary desert|plains
	WetThreshold      float64 `json:"wetThreshold" yaml:"wetThreshold"`           // humidity boundary plains|jungle
	BlendMargin       float64 `json:"blendMargin" yaml:"blendMargin"`
	DecorationCell    int     `json:"decorationCell" yaml:"decorationCell"` // one candidate column per cell
	DecorationMinY    int     `json:"decorationMinY" yaml:"decorationMinY"`
}

// NoiseParams fixes the construction parameters of one noise field.
type NoiseParams struct {
	Kind      string  `json:"kind" yaml:"kind"`
	Seed      int64   `json:"seed" yaml:"seed"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Octaves   int     `json:"octaves" yaml:"octaves"`
}

type NoiseConfig struct {
	BiomeHeight   NoiseParams `json:"biomeHeight" yaml:"biomeHeight"`
	BiomeHumidity NoiseParams `json:"biomeHumidity" yaml:"biomeHumidity"`
	Underwater    NoiseParams `json:"underwater" yaml:"underwater"`
	Normal        NoiseParams `json:"normal" yaml:"normal"`
	Mountain      NoiseParams `json:"mountain" yaml:"mountain"`
	Rock          NoiseParams `json:"rock" yaml:"rock"`
	Tree          NoiseParams `json:"tree" yaml:"tree"`
	JungleTree    NoiseParams `json:"jungleTree" yaml:"jungleTree"`
	Cactus        NoiseParams `json:"cactus" yaml:"cactus"`
}

type ObjectsConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	WorldScale float32 `json:"worldScale" yaml:"worldScale"` // extra scale applied to placed objects
}

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			RenderDistance: 8,
			WorkerSlots:    4,
			TickRate:       Duration(16 * time.Millisecond),
			FieldWorkers:   0,
			Seed:           1337,
		},
		Chunk: ChunkConfig{
			Width:  32,
			Height: 256,
		},
		Biome: BiomeConfig{
			OceanThreshold:    1.0,
			MountainThreshold: 2.0,
			DryThreshold:      1.0,
			WetThreshold:      2.0,
			BlendMargin:       0.2,
			DecorationCell:    16,
			DecorationMinY:    32,
		},
		Noise: NoiseConfig{
			BiomeHeight:   NoiseParams{Kind: NoisePerlin, Seed: 4721, Frequency: 0.03, Octaves: 1},
			BiomeHumidity: NoiseParams{Kind: NoisePerlin, Seed: 9043, Frequency: 0.03, Octaves: 1},
			Underwater:    NoiseParams{Kind: NoiseOpenSimplex2, Seed: 118, Frequency: 0.01, Octaves: 5},
			Normal:        NoiseParams{Kind: NoiseOpenSimplex2, Seed: 2207, Frequency: 0.01, Octaves: 15},
			Mountain:      NoiseParams{Kind: NoiseOpenSimplex2, Seed: 6151, Frequency: 0.01, Octaves: 15},
			Rock:          NoiseParams{Kind: NoiseOpenSimplex2, Seed: 3319, Frequency: 0.4, Octaves: 1},
			Tree:          NoiseParams{Kind: NoiseOpenSimplex2, Seed: 8867, Frequency: 0.4, Octaves: 1},
			JungleTree:    NoiseParams{Kind: NoiseOpenSimplex2, Seed: 5503, Frequency: 0.4, Octaves: 1},
			Cactus:        NoiseParams{Kind: NoiseOpenSimplex2, Seed: 7741, Frequency: 0.4, Octaves: 1},
		},
		Objects: ObjectsConfig{
			Enabled:    true,
			WorldScale: 10,
		},
	}
}

func (c *Config) Validate() error {
	if c.Stream.RenderDistance < 1 {
		return errors.New("stream.renderDistance must be >= 1")
	}
	if c.Stream.WorkerSlots < 1 {
		return errors.New("stream.workerSlots must be >= 1")
	}
	if c.Stream.TickRate < 0 {
		return errors.New("stream.tickRate cannot be negative")
	}
	if c.Stream.FieldWorkers < 0 {
		return errors.New("stream.fieldWorkers cannot be negative")
	}
	if c.Chunk.Width <= 0 || c.Chunk.Height <= 0 {
		return errors.New("chunk dimensions must be positive")
	}
	if c.Biome.BlendMargin <= 0 {
		return errors.New("biome.blendMargin must be positive")
	}
	if c.Biome.MountainThreshold-c.Biome.OceanThreshold < 2*c.Biome.BlendMargin {
		return errors.New("biome thresholds must leave room for both blend margins")
	}
	if c.Biome.WetThreshold <= c.Biome.DryThreshold {
		return errors.New("biome.wetThreshold must exceed biome.dryThreshold")
	}
	if c.Biome.DecorationCell <= 0 {
		return errors.New("biome.decorationCell must be positive")
	}
	for name, params := range c.Noise.byName() {
		if err := params.validate(); err != nil {
			return fmt.Errorf("noise.%s: %w", name, err)
		}
	}
	if c.Objects.WorldScale < 0 {
		return errors.New("objects.worldScale cannot be negative")
	}
	return nil
}

func (n NoiseConfig) byName() map[string]NoiseParams {
	return map[string]NoiseParams{
		"biomeHeight":   n.BiomeHeight,
		"biomeHumidity": n.BiomeHumidity,
		"underwater":    n.Underwater,
		"normal":        n.Normal,
		"mountain":      n.Mountain,
		"rock":          n.Rock,
		"tree":          n.Tree,
		"jungleTree":    n.JungleTree,
		"cactus":        n.Cactus,
	}
}

func (p NoiseParams) validate() error {
	switch p.Kind {
	case NoiseOpenSimplex2, NoisePerlin, NoiseValue:
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	if p.Frequency <= 0 {
		return errors.New("frequency must be positive")
	}
	if p.Octaves < 1 {
		return errors.New("octaves must be >= 1")
	}
	return nil
}
