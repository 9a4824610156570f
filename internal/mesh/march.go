// Package mesh extracts triangle geometry from density fields with marching
// cubes and finalizes it into render-ready surfaces.
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrDegenerateGeometry reports an edge selected for interpolation whose
// corner samples are equal or do not yield a crossing inside the edge, which
// only happens when non-finite samples reach the mesher.
var ErrDegenerateGeometry = errors.New("mesh: degenerate edge")

// ColorFunc returns the color of every vertex emitted by the cube at (x, y, z)
// of the field identified by index.
type ColorFunc func(index, x, y, z int) mgl32.Vec4

// VisitFunc is called for every cube that emits geometry, in x, z, y order,
// before its color is evaluated.
type VisitFunc func(x, y, z int)

// Options control how local grid coordinates map into the output buffer.
type Options struct {
	// Index identifies the field to the color function when a generator
	// meshes several fields.
	Index int
	// Scale is applied per axis before Offset. A zero Scale means (1,1,1).
	Scale  mgl32.Vec3
	Offset mgl32.Vec3
	Color  ColorFunc
	Visit  VisitFunc
}

// Buffer is an unindexed triangle list: every three vertices form a triangle.
type Buffer struct {
	Vertices []mgl32.Vec3
	Colors   []mgl32.Vec4
}

func (b *Buffer) Len() int {
	return len(b.Vertices)
}

func (b *Buffer) Triangles() int {
	return len(b.Vertices) / 3
}

// Append concatenates o onto b.
func (b *Buffer) Append(o Buffer) {
	b.Vertices = append(b.Vertices, o.Vertices...)
	b.Colors = append(b.Colors, o.Colors...)
}

// March runs marching cubes over every unit cube of f and appends the
// resulting triangles to dst.
func March(f *Field, opts Options, dst *Buffer) error {
	scale := opts.Scale
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	color := opts.Color
	if color == nil {
		color = func(int, int, int, int) mgl32.Vec4 { return mgl32.Vec4{1, 1, 1, 1} }
	}

	var vals [8]float32
	for x := 0; x < f.nx-1; x++ {
		for z := 0; z < f.nz-1; z++ {
			for y := 0; y < f.ny-1; y++ {
				cubeIndex := 0
				for i, c := range cornerOffsets {
					vals[i] = f.At(x+c[0], z+c[2], y+c[1])
					if vals[i] > 0 {
						cubeIndex |= 1 << i
					}
				}

				edges := &triangulation[cubeIndex]
				if edges[0] == -1 {
					continue
				}

				if opts.Visit != nil {
					opts.Visit(x, y, z)
				}
				c := color(opts.Index, x, y, z)

				for _, edge := range edges {
					if edge == -1 {
						break
					}
					a := cornerIndexAFromEdge[edge]
					b := cornerIndexBFromEdge[edge]
					va, vb := vals[a], vals[b]
					if va == vb {
						return fmt.Errorf("%w: cube (%d,%d,%d) edge %d", ErrDegenerateGeometry, x, y, z, edge)
					}
					t := -va / (vb - va)
					if !(t >= 0 && t <= 1) {
						return fmt.Errorf("%w: cube (%d,%d,%d) edge %d interpolates to %v", ErrDegenerateGeometry, x, y, z, edge, t)
					}

					ca, cb := cornerOffsets[a], cornerOffsets[b]
					v := mgl32.Vec3{
						float32(x+ca[0]) + t*float32(cb[0]-ca[0]),
						float32(y+ca[1]) + t*float32(cb[1]-ca[1]),
						float32(z+ca[2]) + t*float32(cb[2]-ca[2]),
					}
					v = mgl32.Vec3{v[0] * scale[0], v[1] * scale[1], v[2] * scale[2]}.Add(opts.Offset)

					dst.Vertices = append(dst.Vertices, v)
					dst.Colors = append(dst.Colors, c)
				}
			}
		}
	}
	return nil
}
