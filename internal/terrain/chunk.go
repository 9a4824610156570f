package terrain

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/objects"
	"voxelterrain/internal/world"
)

// Placement asks for a decorative object at a world position.
type Placement struct {
	Kind     objects.Kind
	Position mgl32.Vec3
}

// Chunk is the output of one terrain build. Buffer vertices are local to the
// chunk origin.
type Chunk struct {
	Coord      world.ChunkCoord
	Biome      Biome
	Density    *Density
	Buffer     mesh.Buffer
	Placements []Placement
}

// Generate classifies, fills and meshes a chunk, choosing decoration points
// on the way. rng must be owned by the caller for the duration of the call.
func (c *GenContext) Generate(ctx context.Context, coord world.ChunkCoord, rng *rand.Rand) (*Chunk, error) {
	biome := c.Classify(coord)

	density, err := c.BuildField(ctx, coord)
	if err != nil {
		return nil, err
	}

	chunk := &Chunk{Coord: coord, Biome: biome, Density: density}
	candidates := c.decorationCandidates(biome, rng)

	var pickErr error
	visit := func(x, y, z int) {
		key := [2]int{x, z}
		if _, ok := candidates[key]; !ok || pickErr != nil {
			return
		}
		if y <= c.biome.DecorationMinY || density.Weights(x, z).Normal != 1 {
			return
		}
		delete(candidates, key)

		kind, ok, err := PickObject(biome, rng)
		if err != nil {
			pickErr = err
			return
		}
		if !ok {
			return
		}
		chunk.Placements = append(chunk.Placements, Placement{
			Kind: kind,
			Position: mgl32.Vec3{
				float32(coord.X*c.dims.Width + x),
				float32(y) - 0.5,
				float32(coord.Z*c.dims.Width + z),
			},
		})
	}

	chunk.Buffer.Vertices = make([]mgl32.Vec3, 0, (c.dims.Width+1)*(c.dims.Width+1)*10)
	chunk.Buffer.Colors = make([]mgl32.Vec4, 0, cap(chunk.Buffer.Vertices))

	opts := mesh.Options{
		Color: func(_, x, y, z int) mgl32.Vec4 { return c.colorAt(density, x, y, z) },
		Visit: visit,
	}
	if err := mesh.March(density.Field, opts, &chunk.Buffer); err != nil {
		return nil, fmt.Errorf("mesh chunk %v: %w", coord, err)
	}
	if pickErr != nil {
		return nil, fmt.Errorf("decorate chunk %v: %w", coord, pickErr)
	}
	return chunk, nil
}

// decorationCandidates picks one column per decoration cell, offset by
// [2,6) blocks on each axis.
func (c *GenContext) decorationCandidates(b Biome, rng *rand.Rand) map[[2]int]struct{} {
	candidates := make(map[[2]int]struct{})
	if !b.Decorated() {
		return candidates
	}
	cell := c.biome.DecorationCell
	for x := 0; x < c.dims.Width; x += cell {
		for z := 0; z < c.dims.Width; z += cell {
			px := x + 2 + rng.Intn(4)
			pz := z + 2 + rng.Intn(4)
			candidates[[2]int{px, pz}] = struct{}{}
		}
	}
	return candidates
}

// colorAt blends the three biome gradients by the column's weights.
func (c *GenContext) colorAt(d *Density, x, y, z int) mgl32.Vec4 {
	w := d.Weights(x, z)
	fy := float32(y)

	ocean := c.underwaterGradient.Evaluate(mesh.Clamp01((fy - 16) / 10))
	normal := c.normalGradient.Evaluate(mesh.Clamp01(d.Field.At(x, z, y)/2 + 0.5))
	mountain := c.mountainGradient.Evaluate(mesh.Clamp01((fy - 96) / 64))

	return ocean.Mul(w.Underwater).Add(normal.Mul(w.Normal)).Add(mountain.Mul(w.Mountain))
}
