package objects

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/noise"
)

// Model is a meshed object in its own local space. Scale is the uniform
// pre-transform the object expects before placement.
type Model struct {
	Kind    Kind
	Scale   float32
	Surface *mesh.Surface
}

// Generator owns one roughness field per kind. It is safe for concurrent use
// as long as each caller supplies its own rand.Rand.
type Generator struct {
	noise [kindCount]*noise.Field
}

func NewGenerator(cfg config.NoiseConfig) (*Generator, error) {
	params := [kindCount]config.NoiseParams{
		Rock:       cfg.Rock,
		Tree:       cfg.Tree,
		JungleTree: cfg.JungleTree,
		Cactus:     cfg.Cactus,
	}
	g := &Generator{}
	for k, p := range params {
		f, err := noise.New(p)
		if err != nil {
			return nil, fmt.Errorf("objects: %v noise: %w", Kind(k), err)
		}
		g.noise[k] = f
	}
	return g, nil
}

// Parts returns the density fields of a new object of kind k.
func (g *Generator) Parts(k Kind, rng *rand.Rand) ([]Part, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, k)
	}
	return shapes[k].parts(g.noise[k], rng)
}

// Build meshes every part of a new object concurrently and concatenates the
// results in part order before finalizing the surface.
func (g *Generator) Build(ctx context.Context, k Kind, rng *rand.Rand) (*Model, error) {
	parts, err := g.Parts(k, rng)
	if err != nil {
		return nil, err
	}
	sh := shapes[k]

	buffers := make([]mesh.Buffer, len(parts))
	eg, ctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts := mesh.Options{
				Index:  i,
				Scale:  part.Scale,
				Offset: part.Offset,
				Color:  sh.color,
			}
			if err := mesh.March(part.Field, opts, &buffers[i]); err != nil {
				return fmt.Errorf("objects: mesh %v part %d: %w", k, i, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var combined mesh.Buffer
	for _, b := range buffers {
		combined.Append(b)
	}
	return &Model{Kind: k, Scale: sh.scale, Surface: mesh.Finalize(combined)}, nil
}
