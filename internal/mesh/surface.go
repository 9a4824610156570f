package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Surface is a finalized triangle list ready for a render or collision sink.
// Indices are the identity sequence; every vertex belongs to one triangle.
type Surface struct {
	Vertices []mgl32.Vec3
	Colors   []mgl32.Vec4
	Normals  []mgl32.Vec3
	Tangents []mgl32.Vec4
	Indices  []uint32
	Bounds   Bounds
}

func (s *Surface) Empty() bool {
	return s == nil || len(s.Vertices) == 0
}

// Finalize computes bounds, flat per-triangle normals and tangents for buf.
// The surface takes ownership of the buffer's slices.
func Finalize(buf Buffer) *Surface {
	n := len(buf.Vertices) - len(buf.Vertices)%3
	s := &Surface{
		Vertices: buf.Vertices[:n],
		Colors:   buf.Colors[:n],
		Normals:  make([]mgl32.Vec3, n),
		Tangents: make([]mgl32.Vec4, n),
		Indices:  make([]uint32, n),
	}
	if n == 0 {
		return s
	}

	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i, v := range s.Vertices {
		s.Indices[i] = uint32(i)
		for axis := 0; axis < 3; axis++ {
			lo[axis] = min(lo[axis], v[axis])
			hi[axis] = max(hi[axis], v[axis])
		}
	}
	s.Bounds = Bounds{Min: lo, Max: hi}

	for i := 0; i < n; i += 3 {
		a, b, c := s.Vertices[i], s.Vertices[i+1], s.Vertices[i+2]
		edge := b.Sub(a)
		normal := edge.Cross(c.Sub(a))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		} else {
			normal = mgl32.Vec3{0, 1, 0}
		}
		tangent := edge.Sub(normal.Mul(edge.Dot(normal)))
		if l := tangent.Len(); l > 0 {
			tangent = tangent.Mul(1 / l)
		} else {
			tangent = anyPerpendicular(normal)
		}
		t := tangent.Vec4(1)
		for j := i; j < i+3; j++ {
			s.Normals[j] = normal
			s.Tangents[j] = t
		}
	}
	return s
}

func anyPerpendicular(n mgl32.Vec3) mgl32.Vec3 {
	axis := mgl32.Vec3{1, 0, 0}
	if math.Abs(float64(n.X())) > 0.9 {
		axis = mgl32.Vec3{0, 0, 1}
	}
	return axis.Cross(n).Normalize()
}
