// Package noise provides seeded coherent-noise fields. A Field is immutable
// after construction and may be sampled from any number of goroutines.
package noise

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"voxelterrain/internal/config"
)

const (
	gain       = 0.5
	lacunarity = 2.0

	// Classic gradient noise peaks near sqrt(n)/2; these stretch it to [-1,1].
	perlinScale2 = math.Sqrt2
	perlinScale3 = 1.1547005383792515
)

// Field evaluates fractal (FBm) noise of a single kind.
type Field struct {
	params  config.NoiseParams
	octaves []octave
}

type octave struct {
	simplex opensimplex.Noise
	perlin  *perlin.Perlin
	seed    int64
}

// New builds a field from its construction parameters.
func New(params config.NoiseParams) (*Field, error) {
	if params.Octaves < 1 {
		return nil, fmt.Errorf("noise: octaves must be >= 1, got %d", params.Octaves)
	}
	if params.Frequency <= 0 {
		return nil, fmt.Errorf("noise: frequency must be positive, got %f", params.Frequency)
	}

	f := &Field{params: params, octaves: make([]octave, params.Octaves)}
	for i := range f.octaves {
		seed := params.Seed + int64(i)
		o := octave{seed: seed}
		switch params.Kind {
		case config.NoiseOpenSimplex2:
			o.simplex = opensimplex.New(seed)
		case config.NoisePerlin:
			o.perlin = perlin.NewPerlin(2, 2, 1, seed)
		case config.NoiseValue:
		default:
			return nil, fmt.Errorf("noise: unknown kind %q", params.Kind)
		}
		f.octaves[i] = o
	}
	return f, nil
}

// MustNew is New for parameters known to be valid, such as package defaults.
func MustNew(params config.NoiseParams) *Field {
	f, err := New(params)
	if err != nil {
		panic(err)
	}
	return f
}

// Eval2 samples the field in 2D. The result lies in [-1,1].
func (f *Field) Eval2(x, y float64) float64 {
	x *= f.params.Frequency
	y *= f.params.Frequency

	amplitude := 1.0
	sum := 0.0
	maxAmplitude := 0.0
	for i := range f.octaves {
		sum += f.octaves[i].eval2(x, y) * amplitude
		maxAmplitude += amplitude
		amplitude *= gain
		x *= lacunarity
		y *= lacunarity
	}
	return clamp(sum / maxAmplitude)
}

// Eval3 samples the field in 3D. The result lies in [-1,1].
func (f *Field) Eval3(x, y, z float64) float64 {
	x *= f.params.Frequency
	y *= f.params.Frequency
	z *= f.params.Frequency

	amplitude := 1.0
	sum := 0.0
	maxAmplitude := 0.0
	for i := range f.octaves {
		sum += f.octaves[i].eval3(x, y, z) * amplitude
		maxAmplitude += amplitude
		amplitude *= gain
		x *= lacunarity
		y *= lacunarity
		z *= lacunarity
	}
	return clamp(sum / maxAmplitude)
}

func (o *octave) eval2(x, y float64) float64 {
	switch {
	case o.simplex != nil:
		return o.simplex.Eval2(x, y)
	case o.perlin != nil:
		return o.perlin.Noise2D(x, y) * perlinScale2
	default:
		return valueNoise2(x, y, o.seed)
	}
}

func (o *octave) eval3(x, y, z float64) float64 {
	switch {
	case o.simplex != nil:
		return o.simplex.Eval3(x, y, z)
	case o.perlin != nil:
		return o.perlin.Noise3D(x, y, z) * perlinScale3
	default:
		return valueNoise3(x, y, z, o.seed)
	}
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
