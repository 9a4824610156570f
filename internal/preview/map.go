// Package preview renders top-down PNG maps of chunk surfaces. A Map can be
// handed to the stream manager as its render sink when no window is
// available.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/world"
)

// Map collects uploaded chunk surfaces and renders them as one image.
type Map struct {
	mu             sync.Mutex
	dims           world.Dimensions
	pixelsPerBlock int
	chunks         map[world.ChunkCoord]*mesh.Surface
}

func NewMap(dims world.Dimensions, pixelsPerBlock int) *Map {
	if pixelsPerBlock < 1 {
		pixelsPerBlock = 1
	}
	return &Map{
		dims:           dims,
		pixelsPerBlock: pixelsPerBlock,
		chunks:         make(map[world.ChunkCoord]*mesh.Surface),
	}
}

func (m *Map) Upload(coord world.ChunkCoord, surface *mesh.Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[coord] = surface
}

func (m *Map) Remove(coord world.ChunkCoord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, coord)
}

// Chunks lists the uploaded coordinates sorted by X then Z.
func (m *Map) Chunks() []world.ChunkCoord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

func (m *Map) sortedLocked() []world.ChunkCoord {
	out := make([]world.ChunkCoord, 0, len(m.chunks))
	for coord := range m.chunks {
		out = append(out, coord)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// Render draws every uploaded chunk into an image spanning their bounding
// rectangle. An empty map renders a single background chunk.
func (m *Map) Render() *image.NRGBA {
	m.mu.Lock()
	defer m.mu.Unlock()

	coords := m.sortedLocked()
	if len(coords) == 0 {
		return newCanvas(0, 0, m.dims.Width, m.dims.Width, m.pixelsPerBlock).img
	}

	minX, maxX := coords[0].X, coords[0].X
	minZ, maxZ := coords[0].Z, coords[0].Z
	for _, c := range coords[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minZ, maxZ = min(minZ, c.Z), max(maxZ, c.Z)
	}

	corner := m.dims.Origin(world.ChunkCoord{X: minX, Z: minZ})
	width := (maxX - minX + 1) * m.dims.Width
	depth := (maxZ - minZ + 1) * m.dims.Width
	cv := newCanvas(corner.X(), corner.Z(), width, depth, m.pixelsPerBlock)
	for _, coord := range coords {
		cv.drawSurface(m.chunks[coord], m.dims.Origin(coord))
	}
	return cv.img
}

// Save writes the rendered map to path as PNG.
func (m *Map) Save(path string) error {
	if path == "" {
		return fmt.Errorf("preview path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writePNG(path, m.Render())
}

// SaveChunkPreview renders one chunk surface into outputDir as
// chunk_<x>_<z>.png and returns the file path.
func SaveChunkPreview(coord world.ChunkCoord, surface *mesh.Surface, dims world.Dimensions, pixelsPerBlock int, outputDir string) (string, error) {
	if surface == nil {
		return "", fmt.Errorf("surface is nil")
	}
	if dims.Width <= 0 {
		return "", fmt.Errorf("invalid chunk dimensions: %+v", dims)
	}
	if outputDir == "" {
		return "", fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	cv := newCanvas(0, 0, dims.Width, dims.Width, max(pixelsPerBlock, 1))
	cv.drawSurface(surface, mgl32.Vec3{})

	path := filepath.Join(outputDir, fmt.Sprintf("chunk_%d_%d.png", coord.X, coord.Z))
	if err := writePNG(path, cv.img); err != nil {
		return "", err
	}
	return path, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}
