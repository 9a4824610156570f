package objects

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/noise"
)

// Part is one density field of an object together with the transform that
// maps its grid into the object's local space.
type Part struct {
	Field  *mesh.Field
	Offset mgl32.Vec3
	Scale  mgl32.Vec3
}

type shape struct {
	// scale is applied to the whole object before placement.
	scale float32
	parts func(n *noise.Field, rng *rand.Rand) ([]Part, error)
	color mesh.ColorFunc
}

var (
	green = mgl32.Vec4{0, 1, 0, 1}

	trunkGradient = mesh.Gradient{
		{At: 0, Color: mesh.RGB(77, 51, 0)},
		{At: 1, Color: mesh.RGB(153, 102, 0)},
	}
)

var shapes = [kindCount]shape{
	Rock: {
		scale: 0.25,
		parts: rockParts,
		color: func(_, _, y, _ int) mgl32.Vec4 {
			c := 0.5 - float32(y)/8*0.5 + 0.2
			return mgl32.Vec4{c, c, c, 1}
		},
	},
	Tree: {
		scale: 0.3,
		parts: treeParts,
		color: func(index, _, y, _ int) mgl32.Vec4 {
			if index == 0 {
				return trunkGradient.Evaluate(float32(y) / 30)
			}
			return green
		},
	},
	JungleTree: {
		scale: 1,
		parts: noParts,
		color: func(int, int, int, int) mgl32.Vec4 { return green },
	},
	Cactus: {
		scale: 1,
		parts: noParts,
		color: func(int, int, int, int) mgl32.Vec4 { return green },
	},
}

func noParts(*noise.Field, *rand.Rand) ([]Part, error) {
	return nil, nil
}

// rockParts builds a bumpy sphere: noise minus a radial falloff around the
// grid center.
func rockParts(n *noise.Field, rng *rand.Rand) ([]Part, error) {
	const size = 8
	f, err := mesh.NewField(size, size, size)
	if err != nil {
		return nil, err
	}
	o := rng.Float64() * 10000
	center := mgl32.Vec3{4, 4, 4}
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			for y := 0; y < size; y++ {
				v := float32(n.Eval3(o+float64(x), o+float64(y), o+float64(z)))
				p := mgl32.Vec3{float32(x), float32(y), float32(z)}
				v -= p.Sub(center).Len()*1.2 - 3
				f.Set(x, z, y, v)
			}
		}
	}
	return []Part{{Field: f, Scale: mgl32.Vec3{1, 1, 1}}}, nil
}

// treeParts builds a trunk tube around a quadratic Bezier and a leaf ball
// anchored at the trunk's top.
func treeParts(n *noise.Field, rng *rand.Rand) ([]Part, error) {
	trunkOffset := rng.Float64() * 10000
	leavesOffset := rng.Float64() * 10000

	start := mgl32.Vec3{5, 0, 5}
	end := mgl32.Vec3{
		randRange(rng, 0, 10),
		randRange(rng, 15, 18),
		randRange(rng, 0, 10),
	}
	control := mgl32.Vec3{5, end.Y(), 5}

	trunk, err := mesh.NewField(10, 10, 20)
	if err != nil {
		return nil, err
	}
	for x := 0; x < 10; x++ {
		for z := 0; z < 10; z++ {
			for y := 0; y < 20; y++ {
				v := float32(n.Eval3(trunkOffset+float64(x), trunkOffset+float64(y), trunkOffset+float64(z))) * 0.5
				d := distToBezier(mgl32.Vec3{float32(x), float32(y), float32(z)}, start, control, end)
				trunk.Set(x, z, y, v-(d*d-3))
			}
		}
	}

	leaves, err := mesh.NewField(15, 15, 15)
	if err != nil {
		return nil, err
	}
	center := mgl32.Vec3{7.5, 7.5, 7.5}
	for x := 0; x < 15; x++ {
		for z := 0; z < 15; z++ {
			for y := 0; y < 15; y++ {
				v := float32(n.Eval3(leavesOffset+float64(x), leavesOffset+float64(y), leavesOffset+float64(z))) * 1.3
				p := mgl32.Vec3{float32(x), float32(y), float32(z)}
				leaves.Set(x, z, y, v-(p.Sub(center).Len()-6))
			}
		}
	}

	return []Part{
		{
			Field:  trunk,
			Scale:  mgl32.Vec3{0.75, 2, 0.75},
			Offset: mgl32.Vec3{-5 * 0.75, 0, -5 * 0.75},
		},
		{
			Field:  leaves,
			Scale:  mgl32.Vec3{2, 2, 2},
			Offset: mgl32.Vec3{end.X()*0.75 - 15, end.Y()*2 - 5, end.Z()*0.75 - 15},
		},
	}, nil
}

func randRange(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

func bezierAt(t float32, start, control, end mgl32.Vec3) mgl32.Vec3 {
	return control.
		Add(start.Sub(control).Mul((1 - t) * (1 - t))).
		Add(end.Sub(control).Mul(t * t))
}

// distToBezier evaluates the curve at the two closed-form critical points
// t = 1 ± sqrt(1 - C/S), where S = |end-start|² and C = (end-start)·(p-start),
// and returns the nearer distance. A negative discriminant clamps to zero.
func distToBezier(p, start, control, end mgl32.Vec3) float32 {
	axis := end.Sub(start)
	s := axis.Dot(axis)
	if s == 0 {
		return p.Sub(start).Len()
	}
	c := axis.Dot(p.Sub(start))
	disc := 1 - c/s
	if disc < 0 {
		disc = 0
	}
	r := float32(math.Sqrt(float64(disc)))

	d1 := bezierAt(1+r, start, control, end).Sub(p).Len()
	d2 := bezierAt(1-r, start, control, end).Sub(p).Len()
	return min(d1, d2)
}
