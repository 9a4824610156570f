// Package terrain turns chunk coordinates into density fields, colored meshes
// and decoration placements. All state lives in an immutable GenContext that
// is shared by every concurrent chunk build.
package terrain

import (
	"fmt"
	"runtime"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/noise"
	"voxelterrain/internal/world"
)

// profile is one biome's vertical density profile:
// noise(o.x + x*horizontal, o.z + z*horizontal, y*vertical)*0.5 + 0.5 - y*falloff/height.
type profile struct {
	noise      *noise.Field
	horizontal float64
	vertical   float64
	falloff    float64
}

// GenContext is the world-generation context. It is read-only after
// NewGenContext returns.
type GenContext struct {
	dims         world.Dimensions
	biome        config.BiomeConfig
	fieldWorkers int

	height   *noise.Field
	humidity *noise.Field

	underwater profile
	normal     profile
	mountain   profile

	underwaterGradient mesh.Gradient
	normalGradient     mesh.Gradient
	mountainGradient   mesh.Gradient
}

// NewGenContext builds every noise field named in cfg.
func NewGenContext(cfg config.Config) (*GenContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}

	fields := make(map[string]*noise.Field, 5)
	for name, params := range map[string]config.NoiseParams{
		"biomeHeight":   cfg.Noise.BiomeHeight,
		"biomeHumidity": cfg.Noise.BiomeHumidity,
		"underwater":    cfg.Noise.Underwater,
		"normal":        cfg.Noise.Normal,
		"mountain":      cfg.Noise.Mountain,
	} {
		f, err := noise.New(params)
		if err != nil {
			return nil, fmt.Errorf("terrain: %s noise: %w", name, err)
		}
		fields[name] = f
	}

	workers := cfg.Stream.FieldWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &GenContext{
		dims:         world.NewDimensions(cfg.Chunk),
		biome:        cfg.Biome,
		fieldWorkers: workers,
		height:       fields["biomeHeight"],
		humidity:     fields["biomeHumidity"],
		underwater:   profile{noise: fields["underwater"], horizontal: 3, vertical: 4, falloff: 8},
		normal:       profile{noise: fields["normal"], horizontal: 0.1, vertical: 0.15, falloff: 2},
		mountain:     profile{noise: fields["mountain"], horizontal: 0.3, vertical: 0.2, falloff: 1},
		underwaterGradient: mesh.Gradient{
			{At: 0, Color: mesh.RGB(0, 34, 102)},
			{At: 1, Color: mesh.RGB(255, 102, 0)},
		},
		normalGradient: mesh.Gradient{
			{At: 0, Color: mesh.RGB(0, 230, 115)},
			{At: 1, Color: mesh.RGB(0, 153, 77)},
		},
		mountainGradient: mesh.Gradient{
			{At: 0, Color: mesh.RGB(38, 38, 38)},
			{At: 0.8, Color: mesh.RGB(128, 128, 128)},
			{At: 1, Color: mesh.RGB(242, 242, 242)},
		},
	}, nil
}

func (c *GenContext) Dimensions() world.Dimensions {
	return c.dims
}
