package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/objects"
	"voxelterrain/internal/world"
)

var testDims = world.Dimensions{Width: 32, Height: 256}

type outcome struct {
	err      error
	panicMsg string
}

type blockingBuilder struct {
	mu      sync.Mutex
	waiters map[world.ChunkCoord]chan outcome
	notify  chan world.ChunkCoord
	spawns  int
}

func newBlockingBuilder() *blockingBuilder {
	return &blockingBuilder{
		waiters: make(map[world.ChunkCoord]chan outcome),
		notify:  make(chan world.ChunkCoord, 64),
	}
}

func (b *blockingBuilder) Build(ctx context.Context, coord world.ChunkCoord, rng *rand.Rand) (*Chunk, error) {
	ch := make(chan outcome, 1)
	b.mu.Lock()
	b.waiters[coord] = ch
	spawns := b.spawns
	b.mu.Unlock()

	b.notify <- coord

	var out outcome
	select {
	case out = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if out.panicMsg != "" {
		panic(out.panicMsg)
	}
	if out.err != nil {
		return nil, out.err
	}

	chunk := &Chunk{
		Coord:   coord,
		Surface: mesh.Finalize(mesh.Buffer{}),
	}
	for i := 0; i < spawns; i++ {
		chunk.Spawns = append(chunk.Spawns, Spawn{
			Kind:     objects.Rock,
			Position: mgl32.Vec3{float32(coord.X*32 + i), 40, float32(coord.Z * 32)},
			Chunk:    coord,
		})
	}
	return chunk, nil
}

func (b *blockingBuilder) finish(coord world.ChunkCoord, out outcome) {
	b.mu.Lock()
	ch, ok := b.waiters[coord]
	if ok {
		delete(b.waiters, coord)
	}
	b.mu.Unlock()
	if ok {
		ch <- out
	}
}

func (b *blockingBuilder) release(coord world.ChunkCoord) {
	b.finish(coord, outcome{})
}

func (b *blockingBuilder) waitForCall(t *testing.T) world.ChunkCoord {
	t.Helper()
	select {
	case coord := <-b.notify:
		return coord
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for build call")
	}
	return world.ChunkCoord{}
}

func (b *blockingBuilder) assertNoCallWithin(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case coord := <-b.notify:
		t.Fatalf("unexpected build for %v", coord)
	case <-time.After(d):
	}
}

type instantBuilder struct{}

func (instantBuilder) Build(_ context.Context, coord world.ChunkCoord, _ *rand.Rand) (*Chunk, error) {
	return &Chunk{Coord: coord, Surface: mesh.Finalize(mesh.Buffer{})}, nil
}

type recordingSink struct {
	events []string
	fail   bool
}

func (s *recordingSink) Upload(coord world.ChunkCoord, _ *mesh.Surface) {
	s.events = append(s.events, "upload "+coord.String())
}

func (s *recordingSink) Remove(coord world.ChunkCoord) {
	s.events = append(s.events, "remove "+coord.String())
}

func (s *recordingSink) Spawn(sp Spawn) error {
	s.events = append(s.events, fmt.Sprintf("spawn %v %v", sp.Chunk, sp.Kind))
	if s.fail {
		return errors.New("sink full")
	}
	return nil
}

func (s *recordingSink) RemoveChunk(coord world.ChunkCoord) {
	s.events = append(s.events, "remove-objects "+coord.String())
}

func (s *recordingSink) count(prefix string) int {
	n := 0
	for _, e := range s.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T, renderDistance, slots int, b Builder, sink *recordingSink) *Manager {
	t.Helper()
	opts := Options{Logger: log.New(io.Discard, "", 0)}
	if sink != nil {
		opts.Render = sink
		opts.Objects = sink
	}
	cfg := config.StreamConfig{RenderDistance: renderDistance, WorkerSlots: slots, Seed: 1}
	m, err := NewManager(cfg, testDims, b, opts)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// tickUntil ticks the manager until cond holds or a second elapses.
func tickUntil(t *testing.T, m *Manager, pos mgl32.Vec3, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached; stats %+v", m.Stats())
		}
		m.Tick(pos)
		time.Sleep(time.Millisecond)
	}
}

func chunkCenter(c world.ChunkCoord) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X * testDims.Width), 60, float32(c.Z * testDims.Width)}
}

func TestLoadingOrderIsNearestFirst(t *testing.T) {
	got := LoadingOrder(1)
	want := []world.ChunkCoord{{X: 0, Z: 0}, {X: -1, Z: 0}, {X: 0, Z: -1}, {X: 0, Z: 1}, {X: 1, Z: 0}}
	if len(got) != len(want) {
		t.Fatalf("expected %d offsets, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offset %d = %v, want %v", i, got[i], want[i])
		}
	}

	order := LoadingOrder(3)
	if len(order) != 29 {
		t.Fatalf("expected 29 offsets within radius 3, got %d", len(order))
	}
	origin := world.ChunkCoord{}
	for i := 1; i < len(order); i++ {
		if order[i].Distance(origin) < order[i-1].Distance(origin) {
			t.Fatalf("order not sorted at %d: %v after %v", i, order[i], order[i-1])
		}
	}
}

func TestScenarioRadiusOneFourSlots(t *testing.T) {
	b := newBlockingBuilder()
	m := newTestManager(t, 1, 4, b, nil)
	origin := mgl32.Vec3{0, 60, 0}

	want := LoadingOrder(1)
	for i := 0; i < 4; i++ {
		m.Tick(origin)
		if got := b.waitForCall(t); got != want[i] {
			t.Fatalf("build %d: expected %v, got %v", i, want[i], got)
		}
		b.assertNoCallWithin(t, 20*time.Millisecond)
	}
	if s := m.Stats(); s.Generating != 4 || s.InFlight != 4 || s.FreeSlots != 0 {
		t.Fatalf("unexpected stats after four ticks: %+v", s)
	}

	m.Tick(origin)
	b.assertNoCallWithin(t, 50*time.Millisecond)
	if state := m.State(want[4]); state != world.NotLoaded {
		t.Fatalf("fifth coordinate should wait for a slot, state %v", state)
	}

	b.release(want[0])
	tickUntil(t, m, origin, func() bool { return m.State(want[0]) == world.Ready })
	if got := b.waitForCall(t); got != want[4] {
		t.Fatalf("expected the remaining coordinate %v, got %v", want[4], got)
	}
}

func TestSlotAccounting(t *testing.T) {
	b := newBlockingBuilder()
	sink := &recordingSink{}
	m := newTestManager(t, 2, 2, b, sink)
	origin := mgl32.Vec3{}
	disc := len(LoadingOrder(2))

	pending := make(map[world.ChunkCoord]bool)
	deadline := time.Now().Add(2 * time.Second)
	for m.Stats().Ready < disc {
		if time.Now().After(deadline) {
			t.Fatalf("chunks never became ready: %+v", m.Stats())
		}
		m.Tick(origin)
		s := m.Stats()
		if s.InFlight > 2 || s.Generating > 2 || s.InFlight < 0 {
			t.Fatalf("slot bound violated: %+v", s)
		}
		if s.InFlight+s.FreeSlots != 2 {
			t.Fatalf("slot bookkeeping inconsistent: %+v", s)
		}
		select {
		case coord := <-b.notify:
			pending[coord] = true
		case <-time.After(5 * time.Millisecond):
		}
		for coord := range pending {
			b.release(coord)
			delete(pending, coord)
			break
		}
	}

	tickUntil(t, m, origin, func() bool { return m.Stats().InFlight == 0 })
	if s := m.Stats(); s.FreeSlots != 2 || s.Resident != disc {
		t.Fatalf("expected all slots free and %d resident, got %+v", disc, s)
	}
	if got := sink.count("upload"); got != disc {
		t.Fatalf("expected %d uploads, got %d", disc, got)
	}
}

func TestReleaseOfIdleSlotIsIgnored(t *testing.T) {
	m := newTestManager(t, 1, 2, instantBuilder{}, nil)
	m.release(0)
	m.release(7)
	if s := m.Stats(); s.InFlight != 0 || s.FreeSlots != 2 {
		t.Fatalf("idle release changed bookkeeping: %+v", s)
	}
}

func TestSteadyStateMatchesDisc(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, 2, 4, instantBuilder{}, sink)
	center := world.ChunkCoord{X: 5, Z: -3}
	pos := chunkCenter(center)

	disc := LoadingOrder(2)
	tickUntil(t, m, pos, func() bool { return m.Stats().Ready == len(disc) })
	for i := 0; i < 20; i++ {
		m.Tick(pos)
	}

	resident := m.Resident()
	if len(resident) != len(disc) {
		t.Fatalf("expected %d resident chunks, got %d", len(disc), len(resident))
	}
	for _, offset := range disc {
		if m.State(center.Add(offset)) != world.Ready {
			t.Fatalf("expected %v to be ready", center.Add(offset))
		}
	}

	moved := center.Add(world.ChunkCoord{X: 1})
	movedPos := chunkCenter(moved)
	tickUntil(t, m, movedPos, func() bool {
		for _, offset := range disc {
			if m.State(moved.Add(offset)) != world.Ready {
				return false
			}
		}
		return true
	})
	for _, coord := range m.Resident() {
		if int(coord.Distance(moved)) > 3 {
			t.Fatalf("chunk %v outside the hysteresis band is still resident", coord)
		}
	}
	// (3,-3) is 3 chunks from the new center: outside the disc but inside the band.
	if m.State(world.ChunkCoord{X: 3, Z: -3}) != world.Ready {
		t.Fatalf("expected chunk inside the hysteresis band to stay resident")
	}
	if sink.count("remove ") != 0 {
		t.Fatalf("no chunk should have left the band yet: %v", sink.events)
	}
}

func TestEvictMidGenerationDiscardsResult(t *testing.T) {
	b := newBlockingBuilder()
	sink := &recordingSink{}
	m := newTestManager(t, 1, 1, b, sink)

	origin := world.ChunkCoord{}
	m.Tick(chunkCenter(origin))
	if got := b.waitForCall(t); got != origin {
		t.Fatalf("expected build for %v, got %v", origin, got)
	}

	far := world.ChunkCoord{X: 10}
	m.Tick(chunkCenter(far))
	if m.State(origin) != world.NotLoaded {
		t.Fatalf("expected %v to be evicted", origin)
	}
	b.assertNoCallWithin(t, 30*time.Millisecond)

	b.release(origin)
	tickUntil(t, m, chunkCenter(far), func() bool { return m.State(far) == world.Generating })
	if got := b.waitForCall(t); got != far {
		t.Fatalf("expected the freed slot to build %v, got %v", far, got)
	}
	if m.State(origin) != world.NotLoaded {
		t.Fatalf("evicted chunk %v was resurrected", origin)
	}
	if sink.count("upload") != 0 {
		t.Fatalf("discarded result reached the render sink: %v", sink.events)
	}
}

func TestEvictedBuildBlocksRedispatch(t *testing.T) {
	b := newBlockingBuilder()
	sink := &recordingSink{}
	m := newTestManager(t, 1, 3, b, sink)

	origin := world.ChunkCoord{}
	far := world.ChunkCoord{X: 10}
	m.Tick(chunkCenter(origin))
	if got := b.waitForCall(t); got != origin {
		t.Fatalf("expected build for %v, got %v", origin, got)
	}

	m.Tick(chunkCenter(far))
	if got := b.waitForCall(t); got != far {
		t.Fatalf("expected build for %v, got %v", far, got)
	}
	if m.State(origin) != world.NotLoaded || !m.Building(origin) {
		t.Fatalf("expected %v evicted with its build still running", origin)
	}

	// Back at the origin the only free slot must go to a neighbour.
	m.Tick(chunkCenter(origin))
	if got := b.waitForCall(t); got == origin {
		t.Fatalf("second concurrent build started for %v", origin)
	}
	for i := 0; i < 5; i++ {
		m.Tick(chunkCenter(origin))
	}
	b.assertNoCallWithin(t, 30*time.Millisecond)

	s := m.Stats()
	if s.Orphaned != 2 || s.FreeSlots != 0 {
		t.Fatalf("expected two evicted builds holding slots, got %+v", s)
	}
	if s.InFlight != s.Generating+s.Orphaned {
		t.Fatalf("in-flight builds not accounted for: %+v", s)
	}

	b.release(origin)
	tickUntil(t, m, chunkCenter(origin), func() bool { return m.State(origin) == world.Generating })
	if got := b.waitForCall(t); got != origin {
		t.Fatalf("expected %v to be rebuilt, got %v", origin, got)
	}
	if s := m.Stats(); s.Orphaned != 1 || s.InFlight != s.Generating+s.Orphaned {
		t.Fatalf("unexpected stats after stale result: %+v", s)
	}
	if sink.count("upload") != 0 {
		t.Fatalf("stale result reached the render sink: %v", sink.events)
	}
}

// seedRecorder builds empty chunks and records the first value drawn from
// each build's rng.
type seedRecorder struct {
	mu    sync.Mutex
	draws map[world.ChunkCoord][]int64
}

func (r *seedRecorder) Build(_ context.Context, coord world.ChunkCoord, rng *rand.Rand) (*Chunk, error) {
	v := rng.Int63()
	r.mu.Lock()
	r.draws[coord] = append(r.draws[coord], v)
	r.mu.Unlock()
	return &Chunk{Coord: coord, Surface: mesh.Finalize(mesh.Buffer{})}, nil
}

func (r *seedRecorder) get(coord world.ChunkCoord) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.draws[coord]...)
}

func TestRebuiltChunkDrawsSameValues(t *testing.T) {
	origin := world.ChunkCoord{}
	far := world.ChunkCoord{X: 10}
	want := rand.New(rand.NewSource(ChunkSeed(1, origin))).Int63()

	rec := &seedRecorder{draws: make(map[world.ChunkCoord][]int64)}
	m := newTestManager(t, 1, 4, rec, nil)
	allReady := func(at world.ChunkCoord) func() bool {
		return func() bool {
			for _, off := range LoadingOrder(1) {
				if m.State(world.ChunkCoord{X: at.X + off.X, Z: at.Z + off.Z}) != world.Ready {
					return false
				}
			}
			return true
		}
	}

	// Every slot has served other chunks by the time origin is rebuilt.
	tickUntil(t, m, chunkCenter(origin), allReady(origin))
	tickUntil(t, m, chunkCenter(far), allReady(far))
	if m.State(origin) != world.NotLoaded {
		t.Fatalf("expected %v to be evicted", origin)
	}
	tickUntil(t, m, chunkCenter(origin), allReady(origin))

	draws := rec.get(origin)
	if len(draws) != 2 {
		t.Fatalf("expected origin to be built twice, got %d builds", len(draws))
	}
	for i, v := range draws {
		if v != want {
			t.Fatalf("build %d of %v drew %d, want %d", i, origin, v, want)
		}
	}

	// A manager with a different slot count draws the same values too.
	other := &seedRecorder{draws: make(map[world.ChunkCoord][]int64)}
	m2 := newTestManager(t, 1, 1, other, nil)
	tickUntil(t, m2, chunkCenter(origin), func() bool { return m2.State(origin) == world.Ready })
	if got := other.get(origin); len(got) != 1 || got[0] != want {
		t.Fatalf("single-slot manager drew %v, want [%d]", got, want)
	}
}

func TestChunkSeed(t *testing.T) {
	a := world.ChunkCoord{X: 3, Z: -7}
	if ChunkSeed(42, a) != ChunkSeed(42, a) {
		t.Fatalf("chunk seed is not deterministic")
	}
	seen := map[int64]world.ChunkCoord{}
	for x := -4; x <= 4; x++ {
		for z := -4; z <= 4; z++ {
			c := world.ChunkCoord{X: x, Z: z}
			s := ChunkSeed(42, c)
			if prev, ok := seen[s]; ok {
				t.Fatalf("chunks %v and %v share seed %d", prev, c, s)
			}
			seen[s] = c
		}
	}
	if ChunkSeed(42, a) == ChunkSeed(43, a) {
		t.Fatalf("stream seed does not affect chunk seed")
	}
	// X and Z must not be interchangeable.
	if ChunkSeed(42, world.ChunkCoord{X: 1, Z: 2}) == ChunkSeed(42, world.ChunkCoord{X: 2, Z: 1}) {
		t.Fatalf("chunk seed ignores axis order")
	}
}

func TestFailedBuildIsRetried(t *testing.T) {
	tests := []struct {
		name string
		out  outcome
	}{
		{name: "error", out: outcome{err: errors.New("degenerate")}},
		{name: "panic", out: outcome{panicMsg: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBlockingBuilder()
			m := newTestManager(t, 1, 1, b, nil)
			origin := mgl32.Vec3{}
			first := world.ChunkCoord{}

			m.Tick(origin)
			if got := b.waitForCall(t); got != first {
				t.Fatalf("expected %v, got %v", first, got)
			}
			b.finish(first, tt.out)

			deadline := time.After(time.Second)
			for {
				m.Tick(origin)
				select {
				case got := <-b.notify:
					if got != first {
						t.Fatalf("expected retry of %v, got %v", first, got)
					}
					if m.State(first) != world.Generating {
						t.Fatalf("retried chunk should be generating, got %v", m.State(first))
					}
					return
				case <-deadline:
					t.Fatalf("failed chunk was never retried; stats %+v", m.Stats())
				case <-time.After(2 * time.Millisecond):
				}
			}
		})
	}
}

func TestSpawnsDrainedOnlyAfterReady(t *testing.T) {
	b := newBlockingBuilder()
	b.spawns = 3
	sink := &recordingSink{fail: true}
	m := newTestManager(t, 1, 1, b, sink)
	origin := world.ChunkCoord{}
	pos := chunkCenter(origin)

	m.Tick(pos)
	b.waitForCall(t)
	for i := 0; i < 5; i++ {
		m.Tick(pos)
	}
	if n := sink.count("spawn"); n != 0 {
		t.Fatalf("spawns drained before the chunk was ready: %v", sink.events)
	}

	b.release(origin)
	tickUntil(t, m, pos, func() bool { return sink.count("spawn") == 3 })
	if sink.events[0] != "upload "+origin.String() {
		t.Fatalf("expected upload before any spawn, got %v", sink.events)
	}

	for i := 0; i < 5; i++ {
		m.Tick(pos)
	}
	if n := sink.count("spawn"); n != 3 {
		t.Fatalf("spawns must be drained exactly once, got %d", n)
	}

	m.Tick(chunkCenter(world.ChunkCoord{X: 20}))
	if sink.count("remove (0,0)") != 1 || sink.count("remove-objects (0,0)") != 1 {
		t.Fatalf("evicting a ready chunk should clear render and objects: %v", sink.events)
	}
}

func TestNewManagerValidates(t *testing.T) {
	tests := []config.StreamConfig{
		{RenderDistance: 0, WorkerSlots: 1},
		{RenderDistance: 1, WorkerSlots: 0},
	}
	for _, cfg := range tests {
		if _, err := NewManager(cfg, testDims, instantBuilder{}, Options{}); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if _, err := NewManager(config.StreamConfig{RenderDistance: 1, WorkerSlots: 1}, testDims, nil, Options{}); err == nil {
		t.Fatalf("expected error for nil builder")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	m := newTestManager(t, 1, 2, instantBuilder{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := m.Run(ctx, time.Millisecond, func() mgl32.Vec3 { return mgl32.Vec3{} })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if m.Stats().Ready == 0 {
		t.Fatalf("expected Run to load chunks, got %+v", m.Stats())
	}
}
