package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/config"
)

// ChunkCoord identifies a chunk column in global chunk space. X and Z follow
// the horizontal world axes; Y is up.
type ChunkCoord struct {
	X int
	Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Add offsets the coordinate.
func (c ChunkCoord) Add(o ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + o.X, Z: c.Z + o.Z}
}

// Distance is the Euclidean distance between two chunk coordinates.
func (c ChunkCoord) Distance(o ChunkCoord) float64 {
	dx := float64(c.X - o.X)
	dz := float64(c.Z - o.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// Dimensions defines the size of a chunk in blocks.
type Dimensions struct {
	Width  int
	Height int
}

func NewDimensions(cfg config.ChunkConfig) Dimensions {
	return Dimensions{Width: cfg.Width, Height: cfg.Height}
}

// Origin returns the world-space position of the chunk's minimum corner.
func (d Dimensions) Origin(coord ChunkCoord) mgl32.Vec3 {
	return mgl32.Vec3{float32(coord.X * d.Width), 0, float32(coord.Z * d.Width)}
}

// ObserverChunk maps a world position to the nearest chunk coordinate.
// Halfway positions round to even, matching the engine's historical rounding.
func (d Dimensions) ObserverChunk(pos mgl32.Vec3) ChunkCoord {
	w := float64(d.Width)
	return ChunkCoord{
		X: int(math.RoundToEven(float64(pos.X()) / w)),
		Z: int(math.RoundToEven(float64(pos.Z()) / w)),
	}
}

// LocateBlock returns the chunk that contains the given block column.
func (d Dimensions) LocateBlock(x, z int) ChunkCoord {
	return ChunkCoord{X: floorDiv(x, d.Width), Z: floorDiv(z, d.Width)}
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
