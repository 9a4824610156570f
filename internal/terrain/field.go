package terrain

import (
	"context"
	"fmt"
	"sync"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/world"
)

// Density is the scalar field of one chunk plus the blend weights of each of
// its (W+1)x(W+1) columns.
type Density struct {
	Coord   world.ChunkCoord
	Field   *mesh.Field
	weights []Weights
	width   int
}

// Weights returns the blend weights of column (x, z).
func (d *Density) Weights(x, z int) Weights {
	return d.weights[x*(d.width+1)+z]
}

func (p *profile) sample(coord world.ChunkCoord, dims world.Dimensions, x, y, z int) float64 {
	ox := float64(coord.X*dims.Width) * p.horizontal
	oz := float64(coord.Z*dims.Width) * p.horizontal
	n := p.noise.Eval3(ox+float64(x)*p.horizontal, oz+float64(z)*p.horizontal, float64(y)*p.vertical)
	return n*0.5 + 0.5 - float64(y)*p.falloff/float64(dims.Height)
}

// SampleProfile evaluates the vertical profile used by biome b at one sample
// of a chunk.
func (c *GenContext) SampleProfile(b Biome, coord world.ChunkCoord, x, y, z int) (float64, error) {
	p, err := c.profileFor(b)
	if err != nil {
		return 0, err
	}
	return p.sample(coord, c.dims, x, y, z), nil
}

// BuildField fills the chunk's density field. Columns are computed by a pool
// of goroutines, each writing only its own column, so the result does not
// depend on the worker count.
func (c *GenContext) BuildField(ctx context.Context, coord world.ChunkCoord) (*Density, error) {
	side := c.dims.Width + 1
	field, err := mesh.NewField(side, side, c.dims.Height+1)
	if err != nil {
		return nil, err
	}
	density := &Density{
		Coord:   coord,
		Field:   field,
		weights: make([]Weights, side*side),
		width:   c.dims.Width,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type columnTask struct {
		x int
		z int
	}

	workers := c.fieldWorkers
	if workers > side*side {
		workers = side * side
	}

	tasks := make(chan columnTask, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					select {
					case errs <- fmt.Errorf("terrain: column worker panic: %v", r):
					default:
					}
					cancel()
				}
			}()
			for task := range tasks {
				if err := ctx.Err(); err != nil {
					select {
					case errs <- err:
					default:
					}
					return
				}
				c.fillColumn(density, task.x, task.z)
			}
		}()
	}

	go func() {
		defer close(tasks)
		for x := 0; x < side; x++ {
			for z := 0; z < side; z++ {
				select {
				case <-ctx.Done():
					return
				case tasks <- columnTask{x: x, z: z}:
				}
			}
		}
	}()

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("build field %v: %w", coord, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build field %v: %w", coord, err)
	}
	return density, nil
}

func (c *GenContext) fillColumn(d *Density, x, z int) {
	w := c.ColumnWeights(d.Coord, x, z)
	d.weights[x*(c.dims.Width+1)+z] = w

	column := d.Field.Column(x, z)
	for y := range column {
		var v float64
		if w.Underwater != 0 {
			v += float64(w.Underwater) * c.underwater.sample(d.Coord, c.dims, x, y, z)
		}
		if w.Normal != 0 {
			v += float64(w.Normal) * c.normal.sample(d.Coord, c.dims, x, y, z)
		}
		if w.Mountain != 0 {
			v += float64(w.Mountain) * c.mountain.sample(d.Coord, c.dims, x, y, z)
		}
		column[y] = float32(v)
	}
}
