package terrain

import (
	"errors"
	"fmt"
	"math/rand"

	"voxelterrain/internal/objects"
	"voxelterrain/internal/world"
)

// ErrUnsupportedBiome is returned when a lookup receives a biome outside the
// five known labels.
var ErrUnsupportedBiome = errors.New("terrain: unsupported biome")

// Biome is the discrete terrain category of a chunk.
//
//	               dry      medium    wet
//	low height     Ocean    Ocean     Ocean
//	medium height  Desert   Plains    Jungle
//	high height    Mountains Mountains Mountains
type Biome uint8

const (
	Ocean Biome = iota
	Desert
	Plains
	Jungle
	Mountains
)

func (b Biome) String() string {
	switch b {
	case Ocean:
		return "ocean"
	case Desert:
		return "desert"
	case Plains:
		return "plains"
	case Jungle:
		return "jungle"
	case Mountains:
		return "mountains"
	default:
		return fmt.Sprintf("biome(%d)", uint8(b))
	}
}

// Decorated reports whether chunks of this biome receive decorative objects.
func (b Biome) Decorated() bool {
	return b == Desert || b == Plains || b == Jungle
}

// Weights are the per-column blend factors of the three terrain profiles.
type Weights struct {
	Underwater float32
	Normal     float32
	Mountain   float32
}

func (w Weights) Sum() float32 {
	return w.Underwater + w.Normal + w.Mountain
}

// BiomeHeight is the unfloored biome height value at a chunk-space position.
func (c *GenContext) BiomeHeight(x, z float64) float64 {
	return 1.5 + 1.5*c.height.Eval2(x, z)
}

// BiomeHumidity is the unfloored humidity value at a chunk-space position.
func (c *GenContext) BiomeHumidity(x, z float64) float64 {
	return 1.5 + 1.5*c.humidity.Eval2(x, z)
}

// Classify returns the biome of a chunk. It is a pure function of the
// coordinate and the context's seeds.
func (c *GenContext) Classify(coord world.ChunkCoord) Biome {
	h := c.BiomeHeight(float64(coord.X), float64(coord.Z))
	switch {
	case h < c.biome.OceanThreshold:
		return Ocean
	case h >= c.biome.MountainThreshold:
		return Mountains
	}

	u := c.BiomeHumidity(float64(coord.X), float64(coord.Z))
	switch {
	case u < c.biome.DryThreshold:
		return Desert
	case u < c.biome.WetThreshold:
		return Plains
	default:
		return Jungle
	}
}

// BlendWeights maps an unfloored height value to profile weights. Underwater
// fades out over the margin above the ocean threshold, mountain fades in over
// the margin below the mountain threshold and normal covers the rest.
func (c *GenContext) BlendWeights(h float64) Weights {
	lo, hi, margin := c.biome.OceanThreshold, c.biome.MountainThreshold, c.biome.BlendMargin
	switch {
	case h < lo:
		return Weights{Underwater: 1}
	case h >= hi:
		return Weights{Mountain: 1}
	}

	var w Weights
	if h < lo+margin {
		w.Underwater = float32(1 - (h-lo)/margin)
	}
	if h > hi-margin {
		w.Mountain = float32((h - (hi - margin)) / margin)
	}
	w.Normal = 1 - w.Underwater - w.Mountain
	return w
}

// ColumnWeights returns the blend weights of column (x, z) of a chunk, where
// x and z run from 0 to the chunk width inclusive.
func (c *GenContext) ColumnWeights(coord world.ChunkCoord, x, z int) Weights {
	w := float64(c.dims.Width)
	h := c.BiomeHeight(float64(coord.X)+float64(x)/w, float64(coord.Z)+float64(z)/w)
	return c.BlendWeights(h)
}

func (c *GenContext) profileFor(b Biome) (*profile, error) {
	switch b {
	case Ocean:
		return &c.underwater, nil
	case Desert, Plains, Jungle:
		return &c.normal, nil
	case Mountains:
		return &c.mountain, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBiome, b)
	}
}

// PickObject decides which decorative object, if any, a candidate surface
// point of a chunk in biome b receives.
func PickObject(b Biome, rng *rand.Rand) (objects.Kind, bool, error) {
	switch b {
	case Desert:
		if rng.Float64() > 0.2 {
			return objects.Cactus, true, nil
		}
		return objects.Rock, true, nil
	case Plains:
		if rng.Float64() > 0.3 {
			return 0, false, nil
		}
		if rng.Float64() > 0.2 {
			return objects.Tree, true, nil
		}
		return objects.Rock, true, nil
	case Jungle:
		if rng.Float64() > 0.5 {
			return objects.JungleTree, true, nil
		}
		return objects.Tree, true, nil
	case Ocean, Mountains:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("%w: %v", ErrUnsupportedBiome, b)
	}
}
