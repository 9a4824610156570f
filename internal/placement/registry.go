// Package placement tracks decorative objects materialized on Ready chunks.
// Objects are registered as soon as they are spawned; their meshes are built
// later, a bounded batch at a time.
package placement

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/objects"
	"voxelterrain/internal/stream"
	"voxelterrain/internal/world"
)

var (
	ErrDisabled = errors.New("placement: objects disabled")
	ErrNotFound = errors.New("placement: object not found")
)

// Object is one placed decoration. Model stays nil until its mesh is built.
type Object struct {
	ID       uuid.UUID
	Kind     objects.Kind
	Chunk    world.ChunkCoord
	Position mgl32.Vec3
	Scale    float32
	Drop     objects.Drop
	Model    *objects.Model
}

// Built reports whether the object's mesh is available.
func (o Object) Built() bool {
	return o.Model != nil && o.Model.Surface != nil
}

// WorldBounds returns the object's axis-aligned box in world space.
func (o Object) WorldBounds() (mesh.Bounds, bool) {
	if !o.Built() || o.Model.Surface.Empty() {
		return mesh.Bounds{}, false
	}
	b := o.Model.Surface.Bounds
	return mesh.Bounds{
		Min: b.Min.Mul(o.Scale).Add(o.Position),
		Max: b.Max.Mul(o.Scale).Add(o.Position),
	}, true
}

// Registry indexes placed objects by id and by owning chunk. It implements
// stream.ObjectSink. All methods are safe for concurrent use; each mesh build
// draws from its own rng seeded by the object id.
type Registry struct {
	mu      sync.RWMutex
	objects map[uuid.UUID]*Object
	byChunk map[world.ChunkCoord]map[uuid.UUID]*Object

	gen        *objects.Generator
	seed       int64
	queue      *buildQueue
	enabled    bool
	worldScale float32
	logger     *log.Logger
}

var _ stream.ObjectSink = (*Registry)(nil)

func NewRegistry(cfg config.Config, logger *log.Logger) (*Registry, error) {
	gen, err := objects.NewGenerator(cfg.Noise)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	scale := cfg.Objects.WorldScale
	if scale <= 0 {
		scale = 1
	}
	return &Registry{
		objects:    make(map[uuid.UUID]*Object),
		byChunk:    make(map[world.ChunkCoord]map[uuid.UUID]*Object),
		gen:        gen,
		seed:       cfg.Stream.Seed,
		queue:      newBuildQueue(),
		enabled:    cfg.Objects.Enabled,
		worldScale: scale,
		logger:     logger,
	}, nil
}

// objectID derives a stable id so a chunk that is evicted and rebuilt yields
// the same ids for the same decorations.
func objectID(s stream.Spawn) uuid.UUID {
	key := fmt.Sprintf("%v/%v/%g,%g,%g", s.Chunk, s.Kind, s.Position.X(), s.Position.Y(), s.Position.Z())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

// objectSeed mixes the stream seed with the object id so a model's shape does
// not depend on the order in which objects are built.
func objectSeed(seed int64, id uuid.UUID) int64 {
	return seed ^ int64(binary.BigEndian.Uint64(id[:8])) ^ int64(binary.BigEndian.Uint64(id[8:]))
}

// Spawn registers a decoration and queues its mesh build.
func (r *Registry) Spawn(s stream.Spawn) error {
	if !r.enabled {
		return ErrDisabled
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %v", objects.ErrUnsupportedKind, s.Kind)
	}

	obj := &Object{
		ID:       objectID(s),
		Kind:     s.Kind,
		Chunk:    s.Chunk,
		Position: s.Position,
		Drop:     s.Drop,
	}

	r.mu.Lock()
	if _, exists := r.objects[obj.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("placement: duplicate object %s", obj.ID)
	}
	r.objects[obj.ID] = obj
	set := r.byChunk[obj.Chunk]
	if set == nil {
		set = make(map[uuid.UUID]*Object)
		r.byChunk[obj.Chunk] = set
	}
	set[obj.ID] = obj
	r.mu.Unlock()

	r.queue.Enqueue(obj.ID)
	return nil
}

// RemoveChunk drops every object owned by coord. Pending builds for those
// objects are skipped when drained.
func (r *Registry) RemoveChunk(coord world.ChunkCoord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byChunk[coord]
	if !ok {
		return
	}
	for id := range set {
		delete(r.objects, id)
	}
	delete(r.byChunk, coord)
}

// Harvest removes one object and returns the item it drops.
func (r *Registry) Harvest(id uuid.UUID) (objects.Drop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[id]
	if !ok {
		return objects.Drop{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.removeLocked(obj)
	return obj.Drop, nil
}

func (r *Registry) removeLocked(obj *Object) {
	delete(r.objects, obj.ID)
	if set, ok := r.byChunk[obj.Chunk]; ok {
		delete(set, obj.ID)
		if len(set) == 0 {
			delete(r.byChunk, obj.Chunk)
		}
	}
}

// BuildPending meshes up to max queued objects (max <= 0 builds all of them)
// and returns how many models were attached. Objects removed while queued are
// skipped; a failed build drops the object.
func (r *Registry) BuildPending(ctx context.Context, max int) (int, error) {
	built := 0
	for _, id := range r.queue.Drain(max) {
		if err := ctx.Err(); err != nil {
			return built, err
		}

		r.mu.RLock()
		obj, ok := r.objects[id]
		var kind objects.Kind
		if ok {
			kind = obj.Kind
		}
		r.mu.RUnlock()
		if !ok {
			continue
		}

		model, err := r.gen.Build(ctx, kind, rand.New(rand.NewSource(objectSeed(r.seed, id))))
		if err != nil {
			if ctx.Err() != nil {
				return built, ctx.Err()
			}
			r.logger.Printf("object %s (%v) build failed, dropping: %v", id, kind, err)
			r.mu.Lock()
			if cur, ok := r.objects[id]; ok {
				r.removeLocked(cur)
			}
			r.mu.Unlock()
			continue
		}

		r.mu.Lock()
		if cur, ok := r.objects[id]; ok {
			cur.Model = model
			cur.Scale = model.Scale * r.worldScale
			built++
		}
		r.mu.Unlock()
	}
	return built, nil
}

// Pending reports how many mesh builds are queued.
func (r *Registry) Pending() int {
	return r.queue.Len()
}

// Object returns a snapshot of one object.
func (r *Registry) Object(id uuid.UUID) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[id]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// ByChunk returns snapshots of the objects owned by coord, sorted by id.
func (r *Registry) ByChunk(coord world.ChunkCoord) []Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byChunk[coord]
	out := make([]Object, 0, len(set))
	for _, obj := range set {
		out = append(out, *obj)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Chunks lists the coordinates that own at least one object.
func (r *Registry) Chunks() []world.ChunkCoord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]world.ChunkCoord, 0, len(r.byChunk))
	for coord := range r.byChunk {
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

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
