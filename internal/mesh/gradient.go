package mesh

import "github.com/go-gl/mathgl/mgl32"

// GradientKey pins a color at a position in [0,1].
type GradientKey struct {
	At    float32
	Color mgl32.Vec4
}

// Gradient blends linearly between keys sorted by position. Positions before
// the first key or after the last clamp to that key's color.
type Gradient []GradientKey

// RGB builds an opaque color from 8-bit channels.
func RGB(r, g, b uint8) mgl32.Vec4 {
	return mgl32.Vec4{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}

func (g Gradient) Evaluate(t float32) mgl32.Vec4 {
	if len(g) == 0 {
		return mgl32.Vec4{}
	}
	if t <= g[0].At {
		return g[0].Color
	}
	for i := 1; i < len(g); i++ {
		if t <= g[i].At {
			lo, hi := g[i-1], g[i]
			span := hi.At - lo.At
			if span <= 0 {
				return hi.Color
			}
			f := (t - lo.At) / span
			return lo.Color.Add(hi.Color.Sub(lo.Color).Mul(f))
		}
	}
	return g[len(g)-1].Color
}

// Clamp01 limits v to [0,1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
