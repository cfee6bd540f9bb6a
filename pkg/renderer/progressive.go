package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"
	"time"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/film"
	"github.com/df07/go-progressive-raytracer/pkg/integrator"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// ProgressiveConfig contains configuration for progressive rendering: a
// sequence of passes, each sampling every pixel up to some target count, so
// an interactive front end gets a quick low-sample preview before refining.
type ProgressiveConfig struct {
	TileSize           int // Size of each tile (64x64 recommended)
	InitialSamples     int // Samples for first pass (1 recommended)
	MaxSamplesPerPixel int // Maximum total samples per pixel
	MaxPasses          int // Maximum number of passes
	NumWorkers         int // Number of parallel workers (0 = use CPU count)
}

// DefaultProgressiveConfig returns sensible default values.
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		TileSize:           64,
		InitialSamples:     1,
		MaxSamplesPerPixel: 50,
		MaxPasses:          7,
		NumWorkers:         0,
	}
}

// RenderStats reports how many samples a pass actually took, for progress
// reporting to an interactive front end.
type RenderStats struct {
	TotalPixels    int
	TotalSamples   int
	AverageSamples float64
	MaxSamples     int
	MinSamples     int
	MaxSamplesUsed int
}

// PassResult contains the result of a single progressive pass.
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats
	IsLast     bool
}

// TileCompletionResult contains information about a completed tile, for
// streaming partial-frame updates before a whole pass finishes.
type TileCompletionResult struct {
	TileX      int
	TileY      int
	TileImage  *image.RGBA
	PassNumber int

	TileNumber  int
	TotalTiles  int
	TotalPasses int
}

// RenderOptions configures progressive rendering behavior.
type RenderOptions struct {
	TileUpdates bool
}

// Tile is a rectangular region of the image rendered by one worker task.
type Tile struct {
	ID     int
	Bounds image.Rectangle
}

// NewTileGrid creates a grid of tiles covering the entire image.
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	id := 0
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileSize, ty*tileSize
			x1, y1 := min(x0+tileSize, width), min(y0+tileSize, height)
			tiles = append(tiles, &Tile{ID: id, Bounds: image.Rect(x0, y0, x1, y1)})
			id++
		}
	}
	return tiles
}

// ProgressiveRaytracer drives a pass-based render loop on top of the
// core.Sampler/integrator.PathTracer/core.Film abstraction: each pass
// raises every pixel's target sample count and re-renders the delta,
// streaming per-tile image updates as workers finish their tile.
//
// Unlike RenderEngine's continuous worker loop (which runs until halted),
// ProgressiveRaytracer explicitly bounds each pass to a per-pixel sample
// target so it can report deterministic pass boundaries to a UI — the
// tile/pass streaming contract an interactive client needs that the
// open-ended engine loop doesn't provide on its own.
type ProgressiveRaytracer struct {
	scene  *scene.Scene
	config ProgressiveConfig
	tracer integrator.PathTracer
	logger core.Logger

	width, height int
	film          *film.Film
	tiles         []*Tile
	numWorkers    int

	samplesTaken [][]int // per-pixel samples taken so far, for tile extraction bookkeeping
}

// NewProgressiveRaytracer creates a progressive raytracer over sc using
// tracer as the light-transport estimator. sc must already have valid
// SamplingConfig.Width/Height. It runs sc.Preprocess itself; a caller that
// wants a specific strategy (e.g. DLSC) sets sc.LightStrategy beforehand,
// and Preprocess keeps it.
func NewProgressiveRaytracer(sc *scene.Scene, config ProgressiveConfig, tracer integrator.PathTracer, logger core.Logger) (*ProgressiveRaytracer, error) {
	if sc == nil {
		return nil, core.NewRenderError(core.ConfigError, "NewProgressiveRaytracer", fmt.Errorf("scene is nil"))
	}
	if tracer == nil {
		return nil, core.NewRenderError(core.ConfigError, "NewProgressiveRaytracer", fmt.Errorf("tracer is nil"))
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if config.TileSize <= 0 {
		config.TileSize = 64
	}
	if config.MaxPasses <= 0 {
		config.MaxPasses = 1
	}
	if config.InitialSamples <= 0 {
		config.InitialSamples = 1
	}

	width, height := sc.SamplingConfig.Width, sc.SamplingConfig.Height
	if width <= 0 || height <= 0 {
		return nil, core.NewRenderError(core.ConfigError, "NewProgressiveRaytracer", fmt.Errorf("invalid image dimensions %dx%d", width, height))
	}

	if err := sc.Preprocess(); err != nil {
		return nil, core.NewRenderError(core.SceneError, "NewProgressiveRaytracer", err)
	}

	// Both radiance channels are kept active regardless of which tracer is
	// selected: an eye-path tracer (Unidirectional/BiDir) only ever splats
	// into the pixel-normalized one and a LightTracer only into the
	// screen-normalized one, but running both concurrently (spec.md §3's
	// hybrid mode) needs both present on the same film.
	f := film.NewFilm(width, height, film.ChannelRadiancePixelNormalized|film.ChannelRadianceScreenNormalized)
	if sc.SamplingConfig.VarianceClampMax > 0 {
		f.VarianceClampMax = sc.SamplingConfig.VarianceClampMax
	}

	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	samplesTaken := make([][]int, height)
	for y := range samplesTaken {
		samplesTaken[y] = make([]int, width)
	}

	return &ProgressiveRaytracer{
		scene:        sc,
		config:       config,
		tracer:       tracer,
		logger:       logger,
		width:        width,
		height:       height,
		film:         f,
		tiles:        NewTileGrid(width, height, config.TileSize),
		numWorkers:   numWorkers,
		samplesTaken: samplesTaken,
	}, nil
}

// getSamplesForPass calculates the target total samples for a given pass.
func (pr *ProgressiveRaytracer) getSamplesForPass(passNumber int) int {
	if pr.config.MaxPasses == 1 {
		return pr.config.MaxSamplesPerPixel
	}
	if passNumber == 1 {
		return pr.config.InitialSamples
	}
	remainingSamples := pr.config.MaxSamplesPerPixel - pr.config.InitialSamples
	remainingPasses := pr.config.MaxPasses - 1
	samplesPerPass := remainingSamples / remainingPasses
	target := pr.config.InitialSamples + (passNumber-1)*samplesPerPass
	if passNumber == pr.config.MaxPasses {
		target = pr.config.MaxSamplesPerPixel
	}
	return target
}

// tileTask is one worker's unit of work for a pass: render every pixel in
// bounds up to targetSamples total samples.
type tileTask struct {
	tile          *Tile
	targetSamples int
	taskIndex     int
}

// RenderPass renders a single progressive pass in parallel across
// pr.numWorkers workers, each driving its own RandomSampler over a disjoint
// set of tiles, and invokes tileCallback (if non-nil) as each tile
// finishes.
func (pr *ProgressiveRaytracer) RenderPass(passNumber int, tileCallback func(TileCompletionResult)) (*image.RGBA, RenderStats, error) {
	targetSamples := pr.getSamplesForPass(passNumber)
	pr.logger.Printf("Pass %d: Target %d samples per pixel (using %d workers)...\n", passNumber, targetSamples, pr.numWorkers)

	tasks := make(chan tileTask, len(pr.tiles))
	for i, t := range pr.tiles {
		tasks <- tileTask{tile: t, targetSamples: targetSamples, taskIndex: i}
	}
	close(tasks)

	type tileOutcome struct {
		task  tileTask
		image *image.RGBA
	}
	results := make(chan tileOutcome, len(pr.tiles))

	var wg sync.WaitGroup
	for w := 0; w < pr.numWorkers; w++ {
		wg.Add(1)
		go func(workerIndex int) {
			defer wg.Done()
			s := sampler.NewRandomSampler(uint32(passNumber)*1_000_003+uint32(workerIndex), pr.film, true)
			s.SetThreadIndex(workerIndex)
			for task := range tasks {
				pr.renderTile(s, task)
				var img *image.RGBA
				if tileCallback != nil {
					img = pr.extractTileImage(task.tile)
				}
				results <- tileOutcome{task: task, image: img}
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	tileNumber := 0
	for outcome := range results {
		tileNumber++
		if tileCallback != nil {
			tileX := outcome.task.tile.Bounds.Min.X / pr.config.TileSize
			tileY := outcome.task.tile.Bounds.Min.Y / pr.config.TileSize
			tileCallback(TileCompletionResult{
				TileX:       tileX,
				TileY:       tileY,
				TileImage:   outcome.image,
				PassNumber:  passNumber,
				TileNumber:  tileNumber,
				TotalTiles:  len(pr.tiles),
				TotalPasses: pr.config.MaxPasses,
			})
		}
	}

	img, stats := pr.assembleCurrentImage(targetSamples)
	return img, stats, nil
}

// renderTile draws samples for every pixel in task.tile.Bounds until each
// has taken task.targetSamples total samples.
func (pr *ProgressiveRaytracer) renderTile(s *sampler.RandomSampler, task tileTask) {
	bounds := task.tile.Bounds
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			already := pr.samplesTaken[y][x]
			for n := already; n < task.targetSamples; n++ {
				if !s.StartPixelSample(x, y, n) {
					continue
				}
				results := pr.tracer.RenderSample(s, pr.scene)
				s.NextSample(results)
			}
			pr.samplesTaken[y][x] = task.targetSamples
		}
	}
}

// extractTileImage reads back the film's current color for every pixel in
// tile, for the tile-completion callback.
func (pr *ProgressiveRaytracer) extractTileImage(tile *Tile) *image.RGBA {
	bounds := tile.Bounds
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, vec3ToColor(pr.film.GetColor(x, y)))
		}
	}
	return img
}

// assembleCurrentImage creates an image from the film's current state and
// computes render statistics from the per-pixel sample counters.
func (pr *ProgressiveRaytracer) assembleCurrentImage(targetSamples int) (*image.RGBA, RenderStats) {
	img := image.NewRGBA(image.Rect(0, 0, pr.width, pr.height))
	stats := RenderStats{
		TotalPixels: pr.width * pr.height,
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples,
	}
	for y := 0; y < pr.height; y++ {
		for x := 0; x < pr.width; x++ {
			img.SetRGBA(x, y, vec3ToColor(pr.film.GetColor(x, y)))
			n := pr.samplesTaken[y][x]
			stats.TotalSamples += n
			if n < stats.MinSamples {
				stats.MinSamples = n
			}
			if n > stats.MaxSamplesUsed {
				stats.MaxSamplesUsed = n
			}
		}
	}
	stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	return img, stats
}

// vec3ToColor converts linear radiance to a gamma-corrected, clamped RGBA
// pixel (gamma = 2.0, matching the rest of this codebase's tone mapping).
func vec3ToColor(v core.Vec3) color.RGBA {
	v = v.GammaCorrect(2.0).Clamp(0.0, 1.0)
	return color.RGBA{R: uint8(255 * v.X), G: uint8(255 * v.Y), B: uint8(255 * v.Z), A: 255}
}

// RenderProgressive renders with channel-based communication: the caller
// reads PassResults, optional TileCompletionResults, and a final error (nil
// on success) from separate goroutines.
func (pr *ProgressiveRaytracer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan TileCompletionResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	tileChan := make(chan TileCompletionResult, 100)
	errChan := make(chan error, 1)

	if !options.TileUpdates {
		close(tileChan)
	}

	go func() {
		defer close(passChan)
		if options.TileUpdates {
			defer close(tileChan)
		}
		defer close(errChan)

		pr.logger.Printf("Starting progressive rendering with %d passes...\n", pr.config.MaxPasses)

		for pass := 1; pass <= pr.config.MaxPasses; pass++ {
			select {
			case <-ctx.Done():
				pr.logger.Printf("Rendering cancelled before pass %d\n", pass)
				errChan <- ctx.Err()
				return
			default:
			}

			startTime := time.Now()

			var tileCallback func(TileCompletionResult)
			if options.TileUpdates {
				tileCallback = func(result TileCompletionResult) {
					select {
					case tileChan <- result:
					case <-ctx.Done():
					default:
					}
				}
			}

			img, stats, err := pr.RenderPass(pass, tileCallback)
			if err != nil {
				errChan <- err
				return
			}

			passTime := time.Since(startTime)
			actualSamples := int(stats.AverageSamples)
			pr.logger.Printf("Pass %d completed in %v (actual: %d samples/pixel)\n", pass, passTime, actualSamples)

			isLast := pass == pr.config.MaxPasses || actualSamples >= pr.config.MaxSamplesPerPixel
			result := PassResult{PassNumber: pass, Image: img, Stats: stats, IsLast: isLast}

			select {
			case passChan <- result:
			case <-ctx.Done():
				return
			}

			if actualSamples >= pr.config.MaxSamplesPerPixel {
				pr.logger.Printf("Reached maximum samples per pixel (%d), stopping.\n", pr.config.MaxSamplesPerPixel)
				break
			}
		}
	}()

	return passChan, tileChan, errChan
}
