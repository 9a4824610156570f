package stream

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/objects"
	"voxelterrain/internal/terrain"
	"voxelterrain/internal/world"
)

// Spawn is a deferred request to materialize a decorative object. Spawns are
// created during a build and handed to the ObjectSink only after the owning
// chunk is Ready.
type Spawn struct {
	Kind     objects.Kind
	Position mgl32.Vec3
	Chunk    world.ChunkCoord
	Drop     objects.Drop
}

// Chunk is the finished content of one build.
type Chunk struct {
	Coord   world.ChunkCoord
	Biome   terrain.Biome
	Surface *mesh.Surface
	Spawns  []Spawn
}

// Builder produces the content of one chunk. rng is owned by the build until
// it returns.
type Builder interface {
	Build(ctx context.Context, coord world.ChunkCoord, rng *rand.Rand) (*Chunk, error)
}

// ChunkWorker builds chunks from a shared generation context: classify,
// fill the field, mesh it and collect decoration spawns.
type ChunkWorker struct {
	gen    *terrain.GenContext
	logger *log.Logger
}

func NewChunkWorker(gen *terrain.GenContext, logger *log.Logger) *ChunkWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &ChunkWorker{gen: gen, logger: logger}
}

func (w *ChunkWorker) Build(ctx context.Context, coord world.ChunkCoord, rng *rand.Rand) (*Chunk, error) {
	start := time.Now()

	tc, err := w.gen.Generate(ctx, coord, rng)
	if err != nil {
		return nil, err
	}

	spawns := make([]Spawn, 0, len(tc.Placements))
	for _, p := range tc.Placements {
		drop, err := objects.DropFor(p.Kind, rng)
		if err != nil {
			return nil, fmt.Errorf("chunk %v: %w", coord, err)
		}
		spawns = append(spawns, Spawn{Kind: p.Kind, Position: p.Position, Chunk: coord, Drop: drop})
	}

	chunk := &Chunk{
		Coord:   coord,
		Biome:   tc.Biome,
		Surface: mesh.Finalize(tc.Buffer),
		Spawns:  spawns,
	}
	w.logger.Printf("chunk %v built: biome=%v triangles=%d spawns=%d in %s",
		coord, chunk.Biome, len(chunk.Surface.Vertices)/3, len(spawns), time.Since(start).Round(time.Millisecond))
	return chunk, nil
}
