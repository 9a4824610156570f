// Package stream keeps the set of resident chunks synchronized with an
// observer. Builds run on background goroutines bounded by a fixed pool of
// worker slots; their results are applied on the goroutine that calls Tick.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/terrain"
	"voxelterrain/internal/world"
)

// Result is the typed outcome of one build. Err is nil for a Ready result.
type Result struct {
	Coord   world.ChunkCoord
	Chunk   *Chunk
	Err     error
	Elapsed time.Duration

	slot  int
	token uint64
}

func (r Result) Ready() bool {
	return r.Err == nil && r.Chunk != nil
}

type slot struct {
	busy bool
	rng  *rand.Rand
}

type record struct {
	state   world.ChunkState
	token   uint64
	biome   terrain.Biome
	surface *mesh.Surface
	pending []Spawn
}

// Options wires the manager to its collaborators. Nil sinks discard output; a
// nil logger falls back to log.Default.
type Options struct {
	Render  RenderSink
	Objects ObjectSink
	Logger  *log.Logger
}

// Stats is a snapshot of the manager's bookkeeping. InFlight always equals
// Generating plus Orphaned.
type Stats struct {
	Resident   int
	Ready      int
	Generating int
	Orphaned   int
	InFlight   int
	FreeSlots  int
}

// Manager owns the resident-chunk table and the worker slots. Every method
// must be called from a single goroutine.
type Manager struct {
	dims           world.Dimensions
	renderDistance int
	order          []world.ChunkCoord
	builder        Builder
	render         RenderSink
	objects        ObjectSink
	logger         *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	seed      int64
	slots     []slot
	inFlight  int
	chunks    map[world.ChunkCoord]*record
	orphaned  map[world.ChunkCoord]uint64 // evicted while building, keyed to the build's token
	results   chan Result
	nextToken uint64
}

func NewManager(cfg config.StreamConfig, dims world.Dimensions, builder Builder, opts Options) (*Manager, error) {
	if cfg.RenderDistance < 1 {
		return nil, errors.New("stream: render distance must be >= 1")
	}
	if cfg.WorkerSlots < 1 {
		return nil, errors.New("stream: worker slots must be >= 1")
	}
	if builder == nil {
		return nil, errors.New("stream: builder is nil")
	}

	m := &Manager{
		dims:           dims,
		renderDistance: cfg.RenderDistance,
		order:          LoadingOrder(cfg.RenderDistance),
		builder:        builder,
		render:         opts.Render,
		objects:        opts.Objects,
		logger:         opts.Logger,
		seed:           cfg.Seed,
		slots:          make([]slot, cfg.WorkerSlots),
		chunks:         make(map[world.ChunkCoord]*record),
		orphaned:       make(map[world.ChunkCoord]uint64),
		results:        make(chan Result, cfg.WorkerSlots),
	}
	if m.render == nil {
		m.render = discardRender{}
	}
	if m.objects == nil {
		m.objects = discardObjects{}
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	for i := range m.slots {
		m.slots[i].rng = rand.New(rand.NewSource(cfg.Seed + int64(i)))
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m, nil
}

// LoadingOrder lists every offset within radius r of the origin, nearest
// first, with ties broken by X then Z.
func LoadingOrder(r int) []world.ChunkCoord {
	var order []world.ChunkCoord
	origin := world.ChunkCoord{}
	for x := -r; x <= r; x++ {
		for z := -r; z <= r; z++ {
			c := world.ChunkCoord{X: x, Z: z}
			if c.Distance(origin) <= float64(r) {
				order = append(order, c)
			}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		di := order[i].X*order[i].X + order[i].Z*order[i].Z
		dj := order[j].X*order[j].X + order[j].Z*order[j].Z
		if di != dj {
			return di < dj
		}
		if order[i].X != order[j].X {
			return order[i].X < order[j].X
		}
		return order[i].Z < order[j].Z
	})
	return order
}

// Tick applies finished builds, drains spawns of Ready chunks, evicts chunks
// beyond the hysteresis band and launches at most one new build.
func (m *Manager) Tick(observer mgl32.Vec3) {
	m.collect()
	m.drainSpawns()

	center := m.dims.ObserverChunk(observer)
	m.evict(center)
	m.dispatch(center)
}

// Run ticks at the given rate until ctx is done, sampling the observer each
// tick.
func (m *Manager) Run(ctx context.Context, rate time.Duration, observer func() mgl32.Vec3) error {
	if rate <= 0 {
		return fmt.Errorf("stream: invalid tick rate %s", rate)
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(observer())
		}
	}
}

// Close cancels the context handed to builds still running. Their results
// are never applied.
func (m *Manager) Close() {
	m.cancel()
}

func (m *Manager) collect() {
	for {
		select {
		case r := <-m.results:
			m.apply(r)
		default:
			return
		}
	}
}

func (m *Manager) apply(r Result) {
	m.release(r.slot)

	if token, ok := m.orphaned[r.Coord]; ok && token == r.token {
		delete(m.orphaned, r.Coord)
		m.logger.Printf("chunk %v result dropped: chunk evicted during build", r.Coord)
		return
	}
	rec, ok := m.chunks[r.Coord]
	if !ok || rec.token != r.token {
		m.logger.Printf("chunk %v result dropped: stale build token %d", r.Coord, r.token)
		return
	}
	if !r.Ready() {
		delete(m.chunks, r.Coord)
		m.logger.Printf("chunk %v build failed after %s, will retry: %v", r.Coord, r.Elapsed.Round(time.Millisecond), r.Err)
		return
	}

	rec.state = world.Ready
	rec.biome = r.Chunk.Biome
	rec.surface = r.Chunk.Surface
	rec.pending = r.Chunk.Spawns
	m.render.Upload(r.Coord, rec.surface)
}

func (m *Manager) release(i int) {
	if i < 0 || i >= len(m.slots) || !m.slots[i].busy {
		m.logger.Printf("worker slot %d released while idle", i)
		return
	}
	m.slots[i].busy = false
	m.inFlight--
}

func (m *Manager) drainSpawns() {
	for coord, rec := range m.chunks {
		if rec.state != world.Ready || len(rec.pending) == 0 {
			continue
		}
		for _, s := range rec.pending {
			if err := m.objects.Spawn(s); err != nil {
				m.logger.Printf("chunk %v spawn %v at %v skipped: %v", coord, s.Kind, s.Position, err)
			}
		}
		rec.pending = nil
	}
}

func (m *Manager) evict(center world.ChunkCoord) {
	for coord, rec := range m.chunks {
		if int(coord.Distance(center)) <= m.renderDistance+1 {
			continue
		}
		delete(m.chunks, coord)
		switch rec.state {
		case world.Ready:
			m.render.Remove(coord)
			m.objects.RemoveChunk(coord)
		case world.Generating:
			// The build keeps its slot until it returns; the coordinate
			// cannot be dispatched again before then.
			m.orphaned[coord] = rec.token
		}
	}
}

func (m *Manager) freeSlot() int {
	for i := range m.slots {
		if !m.slots[i].busy {
			return i
		}
	}
	return -1
}

// dispatch launches a build for the nearest missing coordinate. It reports
// false when no slot is free or nothing is missing.
func (m *Manager) dispatch(center world.ChunkCoord) bool {
	if m.inFlight >= len(m.slots) {
		return false
	}
	idx := m.freeSlot()
	if idx < 0 {
		return false
	}

	for _, offset := range m.order {
		coord := center.Add(offset)
		if _, ok := m.chunks[coord]; ok {
			continue
		}
		if _, ok := m.orphaned[coord]; ok {
			continue
		}

		m.nextToken++
		token := m.nextToken
		m.chunks[coord] = &record{state: world.Generating, token: token}
		m.slots[idx].busy = true
		m.inFlight++

		rng := m.slots[idx].rng
		rng.Seed(ChunkSeed(m.seed, coord))
		go m.build(coord, idx, token, rng)
		return true
	}
	return false
}

// ChunkSeed derives the random seed of one chunk build from the stream seed
// and the coordinate, so a chunk rebuilt on any slot draws the same values.
func ChunkSeed(seed int64, coord world.ChunkCoord) int64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(coord.X))
	binary.LittleEndian.PutUint64(buf[16:], uint64(coord.Z))
	h := fnv.New64a()
	h.Write(buf[:])
	return int64(h.Sum64())
}

func (m *Manager) build(coord world.ChunkCoord, idx int, token uint64, rng *rand.Rand) {
	start := time.Now()
	result := Result{Coord: coord, slot: idx, token: token}
	defer func() {
		if r := recover(); r != nil {
			result.Chunk = nil
			result.Err = fmt.Errorf("chunk %v build panicked: %v", coord, r)
		}
		if result.Err == nil && result.Chunk == nil {
			result.Err = fmt.Errorf("chunk %v build returned no content", coord)
		}
		result.Elapsed = time.Since(start)
		m.results <- result
	}()

	result.Chunk, result.Err = m.builder.Build(m.ctx, coord, rng)
}

// State reports the lifecycle state of a coordinate.
func (m *Manager) State(coord world.ChunkCoord) world.ChunkState {
	rec, ok := m.chunks[coord]
	if !ok {
		return world.NotLoaded
	}
	return rec.state
}

// Building reports whether a build for coord is running, including one whose
// chunk was evicted before it finished.
func (m *Manager) Building(coord world.ChunkCoord) bool {
	if _, ok := m.orphaned[coord]; ok {
		return true
	}
	rec, ok := m.chunks[coord]
	return ok && rec.state == world.Generating
}

// Biome returns the biome of a Ready chunk.
func (m *Manager) Biome(coord world.ChunkCoord) (terrain.Biome, bool) {
	rec, ok := m.chunks[coord]
	if !ok || rec.state != world.Ready {
		return 0, false
	}
	return rec.biome, true
}

// Surface returns the geometry of a Ready chunk.
func (m *Manager) Surface(coord world.ChunkCoord) (*mesh.Surface, bool) {
	rec, ok := m.chunks[coord]
	if !ok || rec.state != world.Ready {
		return nil, false
	}
	return rec.surface, true
}

// Resident lists every tracked coordinate, Generating or Ready, sorted by X
// then Z.
func (m *Manager) Resident() []world.ChunkCoord {
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

func (m *Manager) Stats() Stats {
	s := Stats{Resident: len(m.chunks), Orphaned: len(m.orphaned), InFlight: m.inFlight}
	for _, rec := range m.chunks {
		switch rec.state {
		case world.Ready:
			s.Ready++
		case world.Generating:
			s.Generating++
		}
	}
	for _, sl := range m.slots {
		if !sl.busy {
			s.FreeSlots++
		}
	}
	return s
}
