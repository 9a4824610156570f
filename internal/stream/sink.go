package stream

import (
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/world"
)

// RenderSink receives finished chunk geometry. Surfaces are in chunk-local
// space; the sink places them at the chunk origin.
type RenderSink interface {
	Upload(coord world.ChunkCoord, surface *mesh.Surface)
	Remove(coord world.ChunkCoord)
}

// ObjectSink materializes decorative objects.
type ObjectSink interface {
	Spawn(s Spawn) error
	RemoveChunk(coord world.ChunkCoord)
}

type discardRender struct{}

func (discardRender) Upload(world.ChunkCoord, *mesh.Surface) {}
func (discardRender) Remove(world.ChunkCoord)                {}

type discardObjects struct{}

func (discardObjects) Spawn(Spawn) error             { return nil }
func (discardObjects) RemoveChunk(world.ChunkCoord) {}
