package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func mustField(t *testing.T, nx, nz, ny int) *Field {
	t.Helper()
	f, err := NewField(nx, nz, ny)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	return f
}

func fill(f *Field, v float32) {
	for i := range f.data {
		f.data[i] = v
	}
}

func TestTriangulationTableSelectsOnlySignChangingEdges(t *testing.T) {
	for cube := 0; cube < 256; cube++ {
		row := triangulation[cube]
		count := 0
		for _, edge := range row {
			if edge == -1 {
				break
			}
			a, b := cornerIndexAFromEdge[edge], cornerIndexBFromEdge[edge]
			if (cube>>a)&1 == (cube>>b)&1 {
				t.Fatalf("cube %d selects edge %d without a sign change", cube, edge)
			}
			count++
		}
		if count%3 != 0 || count > 15 {
			t.Fatalf("cube %d lists %d edge entries", cube, count)
		}
		if (cube == 0 || cube == 255) != (count == 0) {
			t.Fatalf("cube %d: unexpected emptiness (%d entries)", cube, count)
		}
	}
}

func TestMarchUniformlyNegativeFieldEmitsNothing(t *testing.T) {
	f := mustField(t, 5, 5, 9)
	fill(f, -0.5)

	visits := 0
	var buf Buffer
	err := March(f, Options{Visit: func(int, int, int) { visits++ }}, &buf)
	if err != nil {
		t.Fatalf("march: %v", err)
	}
	if buf.Len() != 0 || visits != 0 {
		t.Fatalf("expected no geometry, got %d vertices and %d visits", buf.Len(), visits)
	}
}

func TestMarchUniformlyPositiveFieldEmitsNothing(t *testing.T) {
	f := mustField(t, 3, 3, 3)
	fill(f, 2)

	var buf Buffer
	if err := March(f, Options{}, &buf); err != nil {
		t.Fatalf("march: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no geometry, got %d vertices", buf.Len())
	}
}

func TestMarchInterpolatesCrossingAlongY(t *testing.T) {
	tests := []struct {
		name   string
		below  float32
		above  float32
		wantY  float32
	}{
		{name: "midpoint", below: -1, above: 1, wantY: 0.5},
		{name: "quarter", below: -1, above: 3, wantY: 0.25},
		{name: "solid below", below: 1, above: -3, wantY: 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustField(t, 2, 2, 2)
			for x := 0; x < 2; x++ {
				for z := 0; z < 2; z++ {
					f.Set(x, z, 0, tt.below)
					f.Set(x, z, 1, tt.above)
				}
			}

			var buf Buffer
			if err := March(f, Options{}, &buf); err != nil {
				t.Fatalf("march: %v", err)
			}
			if buf.Len() == 0 || buf.Len()%3 != 0 {
				t.Fatalf("expected whole triangles, got %d vertices", buf.Len())
			}
			for _, v := range buf.Vertices {
				if math.Abs(float64(v.Y()-tt.wantY)) > 1e-6 {
					t.Fatalf("vertex %v: expected y=%f", v, tt.wantY)
				}
				if v.Y() <= 0 || v.Y() >= 1 {
					t.Fatalf("vertex %v not strictly between corners", v)
				}
			}
		})
	}
}

func TestMarchAppliesScaleOffsetAndPerCubeColor(t *testing.T) {
	f := mustField(t, 3, 2, 2)
	fill(f, -1)
	f.Set(0, 0, 0, 1)

	var calls [][4]int
	opts := Options{
		Index:  7,
		Scale:  mgl32.Vec3{2, 3, 4},
		Offset: mgl32.Vec3{10, 20, 30},
		Color: func(index, x, y, z int) mgl32.Vec4 {
			calls = append(calls, [4]int{index, x, y, z})
			return mgl32.Vec4{0.25, 0.5, 0.75, 1}
		},
	}
	var buf Buffer
	if err := March(f, opts, &buf); err != nil {
		t.Fatalf("march: %v", err)
	}

	if len(calls) != 1 || calls[0] != [4]int{7, 0, 0, 0} {
		t.Fatalf("expected one color lookup for cube 0, got %v", calls)
	}
	if buf.Len() != 3 {
		t.Fatalf("expected a single corner triangle, got %d vertices", buf.Len())
	}
	for i, v := range buf.Vertices {
		if buf.Colors[i] != (mgl32.Vec4{0.25, 0.5, 0.75, 1}) {
			t.Fatalf("vertex %d has color %v", i, buf.Colors[i])
		}
		if v.X() < 10 || v.X() > 11 || v.Y() < 20 || v.Y() > 21.5 || v.Z() < 30 || v.Z() > 32 {
			t.Fatalf("vertex %v outside scaled corner region", v)
		}
	}
}

func TestMarchReportsDegenerateEdge(t *testing.T) {
	f := mustField(t, 2, 2, 2)
	fill(f, -1)
	f.Set(0, 0, 0, float32(math.Inf(1)))
	f.Set(1, 0, 0, float32(math.Inf(1)))
	f.Set(0, 0, 1, float32(math.Inf(-1)))

	var buf Buffer
	err := March(f, Options{}, &buf)
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("expected degenerate geometry error, got %v", err)
	}
}

func TestMarchIsDeterministic(t *testing.T) {
	f := mustField(t, 6, 6, 6)
	for x := 0; x < 6; x++ {
		for z := 0; z < 6; z++ {
			for y := 0; y < 6; y++ {
				dx, dy, dz := float32(x)-2.5, float32(y)-2.5, float32(z)-2.5
				f.Set(x, z, y, 4-(dx*dx+dy*dy+dz*dz)/2)
			}
		}
	}
	var a, b Buffer
	if err := March(f, Options{}, &a); err != nil {
		t.Fatalf("march: %v", err)
	}
	if err := March(f, Options{}, &b); err != nil {
		t.Fatalf("march: %v", err)
	}
	if a.Len() == 0 || a.Len() != b.Len() {
		t.Fatalf("vertex counts differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("vertex %d differs", i)
		}
	}
}

func TestNewFieldRejectsEmptyShape(t *testing.T) {
	if _, err := NewField(0, 2, 2); err == nil {
		t.Fatalf("expected error for empty field")
	}
}
