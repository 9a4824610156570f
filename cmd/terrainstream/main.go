// Command terrainstream runs the chunk streamer headless along a scripted
// observer path and optionally writes a top-down map of the resident chunks.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"voxelterrain/internal/config"
	"voxelterrain/internal/placement"
	"voxelterrain/internal/preview"
	"voxelterrain/internal/stream"
	"voxelterrain/internal/terrain"
)

func main() {
	var (
		cfgPath     string
		duration    time.Duration
		speed       float64
		heading     float64
		previewPath string
		objectBatch int
	)
	flag.StringVar(&cfgPath, "config", "", "path to terrain configuration file")
	flag.DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Float64Var(&speed, "speed", 20, "observer speed in blocks per second")
	flag.Float64Var(&heading, "heading", 0, "observer heading in degrees from +X towards +Z")
	flag.StringVar(&previewPath, "preview", "", "write a top-down PNG of resident chunks on exit")
	flag.IntVar(&objectBatch, "object-batch", 4, "object meshes built per tick")
	flag.Parse()

	logger := log.New(log.Writer(), "terrain-stream ", log.LstdFlags|log.Lmicroseconds)

	if wrote, err := writeConfigFromEnv(cfgPath); err != nil {
		logger.Fatalf("sync config: %v", err)
	} else if wrote {
		logger.Printf("configuration written to %s", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, duration)
		defer stop()
	}

	if err := run(ctx, *cfg, logger, path{speed: speed, heading: heading}, previewPath, objectBatch); err != nil {
		logger.Fatalf("stream exited with error: %v", err)
	}
}

// path moves the observer along a straight line at a fixed speed.
type path struct {
	speed   float64
	heading float64
	start   time.Time
}

func (p path) at(now time.Time) mgl32.Vec3 {
	d := p.speed * now.Sub(p.start).Seconds()
	rad := p.heading * math.Pi / 180
	return mgl32.Vec3{float32(d * math.Cos(rad)), 0, float32(d * math.Sin(rad))}
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger, p path, previewPath string, objectBatch int) error {
	gen, err := terrain.NewGenContext(cfg)
	if err != nil {
		return err
	}
	registry, err := placement.NewRegistry(cfg, logger)
	if err != nil {
		return err
	}
	dims := gen.Dimensions()
	view := preview.NewMap(dims, 1)

	manager, err := stream.NewManager(cfg.Stream, dims, stream.NewChunkWorker(gen, logger), stream.Options{
		Render:  view,
		Objects: registry,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	rate := cfg.Stream.TickRate.Duration()
	if rate <= 0 {
		rate = 16 * time.Millisecond
	}
	p.start = time.Now()
	logger.Printf("streaming: render distance %d, %d worker slots, tick %s", cfg.Stream.RenderDistance, cfg.Stream.WorkerSlots, rate)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return manager.Run(ctx, rate, func() mgl32.Vec3 { return p.at(time.Now()) })
	})
	eg.Go(func() error {
		return buildObjects(ctx, registry, rate, objectBatch)
	})
	err = eg.Wait()

	stats := manager.Stats()
	logger.Printf("stopped at %v: %d resident (%d ready, %d generating), %d objects, %d object meshes pending",
		dims.ObserverChunk(p.at(time.Now())), stats.Resident, stats.Ready, stats.Generating, registry.Len(), registry.Pending())

	if previewPath != "" {
		if err := view.Save(previewPath); err != nil {
			return err
		}
		logger.Printf("preview written to %s", previewPath)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func buildObjects(ctx context.Context, registry *placement.Registry, rate time.Duration, batch int) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := registry.BuildPending(ctx, batch); err != nil {
				return err
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
