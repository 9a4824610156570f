// Command terrainview streams terrain around a free-flying camera and draws
// it with OpenGL. WASD moves, Space and LeftShift rise and sink, the arrow
// keys look around and Escape quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
	"voxelterrain/internal/placement"
	"voxelterrain/internal/stream"
	"voxelterrain/internal/terrain"
	"voxelterrain/internal/world"
)

var skyColor = mesh.RGB(150, 190, 230)

func main() {
	var (
		cfgPath     string
		objectBatch int
	)
	flag.StringVar(&cfgPath, "config", "", "path to terrain configuration file")
	flag.IntVar(&objectBatch, "object-batch", 2, "object meshes built per frame")
	flag.Parse()

	logger := log.New(log.Writer(), "terrain-view ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := run(*cfg, logger, objectBatch); err != nil {
		logger.Fatalf("viewer exited with error: %v", err)
	}
}

func run(cfg config.Config, logger *log.Logger, objectBatch int) error {
	// GL and the stream manager's render sink share this thread.
	runtime.LockOSThread()

	window, err := initWindow()
	if err != nil {
		return err
	}
	defer glfw.Terminate()
	defer window.Destroy()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(skyColor.X(), skyColor.Y(), skyColor.Z(), 1)

	gen, err := terrain.NewGenContext(cfg)
	if err != nil {
		return err
	}
	dims := gen.Dimensions()

	rend, err := newRenderer(dims)
	if err != nil {
		return err
	}
	defer rend.destroy()

	registry, err := placement.NewRegistry(cfg, logger)
	if err != nil {
		return err
	}
	manager, err := stream.NewManager(cfg.Stream, dims, stream.NewChunkWorker(gen, logger), stream.Options{
		Render:  rend,
		Objects: registry,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	cam := camera{
		Position: mgl32.Vec3{0, float32(dims.Height) * 0.6, 0},
		Pitch:    -0.3,
		Speed:    defaultSpeed,
	}
	fogDistance := float32(cfg.Stream.RenderDistance * dims.Width)
	tickRate := cfg.Stream.TickRate.Duration()
	ctx := context.Background()

	var (
		lastTick  time.Time
		lastStats time.Time
	)
	last := glfw.GetTime()
	for !window.ShouldClose() {
		now := glfw.GetTime()
		dt := now - last
		last = now
		if dt > 0.1 {
			dt = 0.1
		}

		glfw.PollEvents()
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
			continue
		}
		cam.update(readControls(window), dt)

		if time.Since(lastTick) >= tickRate {
			lastTick = time.Now()
			manager.Tick(cam.Position)
			if _, err := registry.BuildPending(ctx, objectBatch); err != nil {
				return err
			}
		}
		if time.Since(lastStats) >= 5*time.Second {
			lastStats = time.Now()
			s := manager.Stats()
			logger.Printf("at %v: %d resident (%d ready, %d generating), %d objects", dims.ObserverChunk(cam.Position), s.Resident, s.Ready, s.Generating, registry.Len())
		}

		fbW, fbH := window.GetFramebufferSize()
		if fbW <= 0 || fbH <= 0 {
			continue
		}
		gl.Viewport(0, 0, int32(fbW), int32(fbH))
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		objs := residentObjects(manager, registry)
		rend.syncObjects(objs)
		rend.draw(cam.viewProjection(fbW, fbH), skyColor.Vec3(), fogDistance, objs)

		window.SwapBuffers()
	}
	return nil
}

func residentObjects(manager *stream.Manager, registry *placement.Registry) []placement.Object {
	var out []placement.Object
	for _, coord := range registry.Chunks() {
		if manager.State(coord) != world.Ready {
			continue
		}
		out = append(out, registry.ByChunk(coord)...)
	}
	return out
}

func readControls(window *glfw.Window) controls {
	axis := func(pos, neg glfw.Key) float32 {
		var v float32
		if window.GetKey(pos) == glfw.Press {
			v++
		}
		if window.GetKey(neg) == glfw.Press {
			v--
		}
		return v
	}
	return controls{
		Forward: axis(glfw.KeyW, glfw.KeyS),
		Strafe:  axis(glfw.KeyD, glfw.KeyA),
		Lift:    axis(glfw.KeySpace, glfw.KeyLeftShift),
		Turn:    float64(axis(glfw.KeyRight, glfw.KeyLeft)),
		Tilt:    float64(axis(glfw.KeyUp, glfw.KeyDown)),
	}
}
