package mesh

import "fmt"

// Field is a dense grid of signed density samples indexed [x][z][y]. Positive
// samples are solid. Samples of one (x, z) column are stored contiguously so a
// builder can fill disjoint columns concurrently.
type Field struct {
	nx, nz, ny int
	data       []float32
}

// NewField allocates a zeroed field with the given sample counts per axis.
func NewField(nx, nz, ny int) (*Field, error) {
	if nx < 1 || nz < 1 || ny < 1 {
		return nil, fmt.Errorf("mesh: invalid field shape %dx%dx%d", nx, nz, ny)
	}
	return &Field{nx: nx, nz: nz, ny: ny, data: make([]float32, nx*nz*ny)}, nil
}

// Dims returns the sample counts along x, z and y.
func (f *Field) Dims() (nx, nz, ny int) {
	return f.nx, f.nz, f.ny
}

func (f *Field) index(x, z, y int) int {
	return (x*f.nz+z)*f.ny + y
}

func (f *Field) At(x, z, y int) float32 {
	return f.data[f.index(x, z, y)]
}

func (f *Field) Set(x, z, y int, v float32) {
	f.data[f.index(x, z, y)] = v
}

// Column returns the backing slice for column (x, z), indexed by y.
func (f *Field) Column(x, z int) []float32 {
	start := f.index(x, z, 0)
	return f.data[start : start+f.ny]
}

// Equal reports whether both fields have the same shape and bit-identical
// samples.
func (f *Field) Equal(o *Field) bool {
	if f.nx != o.nx || f.nz != o.nz || f.ny != o.ny {
		return false
	}
	for i, v := range f.data {
		if v != o.data[i] {
			return false
		}
	}
	return true
}
