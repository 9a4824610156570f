package preview

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/stream"
	"voxelterrain/internal/world"
)

var _ stream.RenderSink = (*Map)(nil)

// flatQuad covers a size x size square at height y with upward-facing
// triangles.
func flatQuad(size, y float32, col mgl32.Vec4) *mesh.Surface {
	var buf mesh.Buffer
	tris := [][3]mgl32.Vec3{
		{{0, y, 0}, {0, y, size}, {size, y, 0}},
		{{size, y, 0}, {0, y, size}, {size, y, size}},
	}
	for _, tri := range tris {
		for _, v := range tri {
			buf.Vertices = append(buf.Vertices, v)
			buf.Colors = append(buf.Colors, col)
		}
	}
	return mesh.Finalize(buf)
}

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
	blue  = mgl32.Vec4{0, 0, 1, 1}
)

func dominant(c color.NRGBA) string {
	switch {
	case c == background:
		return "background"
	case c.R > 200 && c.G < 20 && c.B < 20:
		return "red"
	case c.G > 200 && c.R < 20 && c.B < 20:
		return "green"
	case c.B > 200 && c.R < 20 && c.G < 20:
		return "blue"
	default:
		return "mixed"
	}
}

func TestMapRendersUploadedChunks(t *testing.T) {
	dims := world.Dimensions{Width: 4, Height: 16}
	m := NewMap(dims, 2)
	m.Upload(world.ChunkCoord{X: 0, Z: 0}, flatQuad(4, 1, red))
	m.Upload(world.ChunkCoord{X: 1, Z: 0}, flatQuad(4, 1, green))

	img := m.Render()
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
	if got := dominant(img.NRGBAAt(1, 1)); got != "red" {
		t.Fatalf("expected red at (1,1), got %s %v", got, img.NRGBAAt(1, 1))
	}
	if got := dominant(img.NRGBAAt(13, 6)); got != "green" {
		t.Fatalf("expected green at (13,6), got %s %v", got, img.NRGBAAt(13, 6))
	}

	m.Remove(world.ChunkCoord{X: 1, Z: 0})
	if chunks := m.Chunks(); len(chunks) != 1 {
		t.Fatalf("expected one chunk after removal, got %v", chunks)
	}
	if img := m.Render(); img.Bounds().Dx() != 8 {
		t.Fatalf("expected image to shrink after removal, got %v", img.Bounds())
	}
}

func TestMapKeepsHighestSurface(t *testing.T) {
	dims := world.Dimensions{Width: 4, Height: 16}
	m := NewMap(dims, 1)

	low := flatQuad(4, 1, red)
	high := flatQuad(4, 5, blue)
	var buf mesh.Buffer
	buf.Append(mesh.Buffer{Vertices: high.Vertices, Colors: high.Colors})
	buf.Append(mesh.Buffer{Vertices: low.Vertices, Colors: low.Colors})
	m.Upload(world.ChunkCoord{}, mesh.Finalize(buf))

	img := m.Render()
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x+y == 3 {
				continue // pixel centers on the shared diagonal
			}
			if got := dominant(img.NRGBAAt(x, y)); got != "blue" {
				t.Fatalf("expected blue at (%d,%d), got %s", x, y, got)
			}
		}
	}
}

func TestEmptyMapRendersBackground(t *testing.T) {
	m := NewMap(world.Dimensions{Width: 4, Height: 16}, 3)
	img := m.Render()
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 12 {
		t.Fatalf("unexpected empty image size %v", img.Bounds())
	}
	if img.NRGBAAt(5, 5) != background {
		t.Fatalf("expected background, got %v", img.NRGBAAt(5, 5))
	}
}

func TestSaveChunkPreviewWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	coord := world.ChunkCoord{X: -2, Z: 3}
	path, err := SaveChunkPreview(coord, flatQuad(8, 2, green), world.Dimensions{Width: 8, Height: 16}, 2, dir)
	if err != nil {
		t.Fatalf("save preview: %v", err)
	}
	if filepath.Base(path) != "chunk_-2_3.png" {
		t.Fatalf("unexpected preview path %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("unexpected preview size %v", img.Bounds())
	}
}

func TestSaveChunkPreviewRejectsBadInput(t *testing.T) {
	dims := world.Dimensions{Width: 8, Height: 16}
	if _, err := SaveChunkPreview(world.ChunkCoord{}, nil, dims, 1, t.TempDir()); err == nil {
		t.Fatalf("expected error for nil surface")
	}
	if _, err := SaveChunkPreview(world.ChunkCoord{}, flatQuad(8, 1, red), dims, 1, ""); err == nil {
		t.Fatalf("expected error for empty output directory")
	}
}

func TestMapSave(t *testing.T) {
	m := NewMap(world.Dimensions{Width: 4, Height: 16}, 1)
	m.Upload(world.ChunkCoord{}, flatQuad(4, 1, red))
	path := filepath.Join(t.TempDir(), "out", "map.png")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat saved map: %v", err)
	}
}
