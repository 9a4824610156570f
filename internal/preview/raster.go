package preview

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/mesh"
)

const previewAmbientLight = 0.2

var (
	background = color.NRGBA{R: 10, G: 10, B: 18, A: 255}
	lightDir   = mgl32.Vec3{0.3, 1, 0.2}.Normalize()
)

// canvas is a top-down image with a height buffer. World X maps to image X
// and world Z maps to image Y.
type canvas struct {
	img     *image.NRGBA
	heights []float32
	minX    float32
	minZ    float32
	scale   float32
}

func newCanvas(minX, minZ float32, width, depth int, pixelsPerBlock int) *canvas {
	w := max(width*pixelsPerBlock, 1)
	h := max(depth*pixelsPerBlock, 1)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	heights := make([]float32, w*h)
	for i := range heights {
		heights[i] = float32(math.Inf(-1))
	}
	return &canvas{img: img, heights: heights, minX: minX, minZ: minZ, scale: float32(pixelsPerBlock)}
}

// drawSurface rasterizes every triangle of s translated by origin. Where
// triangles overlap, the highest one wins.
func (c *canvas) drawSurface(s *mesh.Surface, origin mgl32.Vec3) {
	if s.Empty() {
		return
	}
	for i := 0; i+2 < len(s.Vertices); i += 3 {
		var pts [3]mgl32.Vec3
		var col mgl32.Vec4
		for k := 0; k < 3; k++ {
			v := s.Vertices[i+k].Add(origin)
			pts[k] = mgl32.Vec3{(v.X() - c.minX) * c.scale, v.Y(), (v.Z() - c.minZ) * c.scale}
			col = col.Add(s.Colors[i+k])
		}
		col = col.Mul(1.0 / 3)
		c.fillTriangle(pts, shade(col, s.Normals[i]))
	}
}

func shade(col mgl32.Vec4, normal mgl32.Vec3) color.NRGBA {
	factor := previewAmbientLight + (1-previewAmbientLight)*max(0, normal.Dot(lightDir))
	return color.NRGBA{
		R: toByte(col.X() * factor),
		G: toByte(col.Y() * factor),
		B: toByte(col.Z() * factor),
		A: 255,
	}
}

func toByte(v float32) uint8 {
	return uint8(math.Round(float64(mesh.Clamp01(v)) * 255))
}

// fillTriangle tests every pixel center in the triangle's bounding box
// against the triangle's barycentric coordinates. pts hold pixel-space X in
// component 0, height in component 1 and pixel-space Y in component 2.
func (c *canvas) fillTriangle(pts [3]mgl32.Vec3, col color.NRGBA) {
	ax, ay := pts[0].X(), pts[0].Z()
	bx, by := pts[1].X(), pts[1].Z()
	cx, cy := pts[2].X(), pts[2].Z()
	area := (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
	if area == 0 {
		return
	}

	bounds := c.img.Bounds()
	x0 := max(int(math.Floor(float64(min(ax, bx, cx)))), bounds.Min.X)
	x1 := min(int(math.Ceil(float64(max(ax, bx, cx)))), bounds.Max.X-1)
	y0 := max(int(math.Floor(float64(min(ay, by, cy)))), bounds.Min.Y)
	y1 := min(int(math.Ceil(float64(max(ay, by, cy)))), bounds.Max.Y-1)

	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			fx, fy := float32(px)+0.5, float32(py)+0.5
			w0 := ((bx-fx)*(cy-fy) - (by-fy)*(cx-fx)) / area
			w1 := ((cx-fx)*(ay-fy) - (cy-fy)*(ax-fx)) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			h := w0*pts[0].Y() + w1*pts[1].Y() + w2*pts[2].Y()
			idx := (py-bounds.Min.Y)*bounds.Dx() + (px - bounds.Min.X)
			if h <= c.heights[idx] {
				continue
			}
			c.heights[idx] = h
			c.img.SetNRGBA(px, py, col)
		}
	}
}
