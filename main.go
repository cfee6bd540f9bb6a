package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/df07/go-progressive-raytracer/pkg/config"
	"github.com/df07/go-progressive-raytracer/pkg/film"
	"github.com/df07/go-progressive-raytracer/pkg/integrator"
	"github.com/df07/go-progressive-raytracer/pkg/loaders"
	"github.com/df07/go-progressive-raytracer/pkg/renderer"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// cliOptions holds the command-line configuration for the raytracer.
type cliOptions struct {
	SceneType  string
	ConfigFile string
	Engine     string
	MaxSamples int
	NumWorkers int
	Help       bool
	CPUProfile string
}

func main() {
	opts := parseFlags()
	if opts.Help {
		showHelp()
		return
	}

	// Start CPU profiling if requested
	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			fmt.Printf("Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		fmt.Printf("Error reading configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Starting Progressive Raytracer...")
	startTime := time.Now()

	sceneObj, err := createScene(opts.SceneType)
	if err != nil {
		fmt.Printf("Error creating scene: %v\n", err)
		os.Exit(1)
	}

	img, err := render(cfg, sceneObj)
	if err != nil {
		fmt.Printf("Error during rendering: %v\n", err)
		os.Exit(1)
	}

	outputDir := createOutputDir(opts.SceneType)
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))
	if err := saveImageToFile(img, filename); err != nil {
		fmt.Printf("Error saving image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Render completed in %v\n", time.Since(startTime))
	fmt.Printf("Render saved as %s\n", filename)
}

// parseFlags parses command line flags and returns the CLI options.
func parseFlags() cliOptions {
	opts := cliOptions{}
	flag.StringVar(&opts.SceneType, "scene", "default", "Scene type or PBRT file path")
	flag.StringVar(&opts.ConfigFile, "config", "", "YAML render configuration file (renderengine.*, sampler.*, path.* groups)")
	flag.StringVar(&opts.Engine, "engine", "", "Render engine type: PATHCPU, BIDIRCPU, BIDIRVMCPU, LIGHTCPU, TILEPATHCPU, RTPATHCPU (overrides config file)")
	flag.IntVar(&opts.MaxSamples, "max-samples", 50, "Halt after this many samples per pixel (0 = unbounded)")
	flag.IntVar(&opts.NumWorkers, "workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	flag.BoolVar(&opts.Help, "help", false, "Show help information")
	flag.StringVar(&opts.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.Parse()
	return opts
}

// showHelp displays help information
func showHelp() {
	fmt.Println("Progressive Raytracer")
	fmt.Println("Usage: raytracer [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Built-in scenes:")
	fmt.Println("  default      - Default scene with spheres and plane ground")
	fmt.Println("  cornell      - Cornell box scene with spheres")
	fmt.Println("  cornell-boxes - Cornell box scene with axis-aligned boxes")
	fmt.Println("  Or use a direct file path: scenes/my-custom-scene.pbrt")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  raytracer --scene=cornell --max-samples=100")
	fmt.Println("  raytracer --scene=cornell --engine=BIDIRCPU --workers=4")
	fmt.Println("  raytracer --config=render.yaml --scene=scenes/simple-sphere.pbrt")
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene_type>/render_<timestamp>.png")
}

// buildConfig resolves the render configuration: YAML file first (if any),
// then command-line overrides on top.
func buildConfig(opts cliOptions) (renderer.Config, error) {
	cfg := renderer.DefaultConfig()
	if opts.ConfigFile != "" {
		props, err := config.LoadYAML(opts.ConfigFile)
		if err != nil {
			return cfg, err
		}
		parsed, err := renderer.ParseConfig(props)
		if err != nil {
			return cfg, err
		}
		cfg = parsed.Config
	}
	if opts.Engine != "" {
		t, err := renderer.ParseEngineType(opts.Engine)
		if err != nil {
			return cfg, err
		}
		cfg.Type = t
	}
	if opts.MaxSamples > 0 {
		cfg.HaltSPP = opts.MaxSamples
		cfg.ConvergedAtOne = false
	}
	if opts.NumWorkers > 0 {
		cfg.NumWorkers = opts.NumWorkers
	}
	return cfg, nil
}

// createScene creates the appropriate scene based on scene type
func createScene(sceneType string) (*scene.Scene, error) {
	// First, try to load as a PBRT scene (direct path or scene name)
	if pbrtScene := tryLoadPBRTScene(sceneType); pbrtScene != nil {
		return pbrtScene, nil
	}

	switch sceneType {
	case "cornell":
		fmt.Println("Using Cornell scene...")
		return scene.NewCornellScene(scene.CornellSpheres), nil
	case "cornell-boxes":
		fmt.Println("Using Cornell scene with boxes...")
		return scene.NewCornellScene(scene.CornellBoxes), nil
	case "default":
		fmt.Println("Using default scene...")
		return scene.NewDefaultScene(), nil
	default:
		return nil, fmt.Errorf("unknown scene type: %s", sceneType)
	}
}

// tryLoadPBRTScene attempts to load a PBRT scene from various possible paths
func tryLoadPBRTScene(sceneType string) *scene.Scene {
	possiblePaths := []string{
		sceneType, // Direct path (e.g., "scenes/my-scene.pbrt")
		filepath.Join("scenes", sceneType+".pbrt"),
		filepath.Join("scenes", sceneType),
	}

	for _, path := range possiblePaths {
		if !strings.HasSuffix(path, ".pbrt") {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fmt.Printf("Loading PBRT scene: %s...\n", path)
		pbrtScene, err := loaders.LoadPBRT(path)
		if err != nil {
			fmt.Printf("Failed to load PBRT file '%s': %v\n", path, err)
			continue
		}
		sceneObj, err := scene.NewPBRTScene(pbrtScene)
		if err != nil {
			fmt.Printf("Failed to create PBRT scene '%s': %v\n", path, err)
			continue
		}
		return sceneObj
	}

	return nil
}

// render drives a RenderEngine to its halt condition and reads the film
// back into an image.
func render(cfg renderer.Config, sceneObj *scene.Scene) (*image.RGBA, error) {
	renderer.ApplyPathConfig(sceneObj, cfg)

	width := sceneObj.SamplingConfig.Width
	height := sceneObj.SamplingConfig.Height

	channels := film.ChannelRadiancePixelNormalized | film.ChannelNoise
	if cfg.Type == renderer.LightCPU || cfg.Type == renderer.BiDirCPU || cfg.Type == renderer.BiDirVMCPU {
		channels |= film.ChannelRadianceScreenNormalized
	}
	f := film.NewFilm(width, height, channels)
	if cfg.Path.VarianceClampMax > 0 {
		f.VarianceClampMax = cfg.Path.VarianceClampMax
	}

	var tracer integrator.PathTracer
	switch cfg.Type {
	case renderer.BiDirCPU:
		fmt.Println("Using BiDir integrator...")
		tracer = integrator.NewBiDir(sceneObj)
	case renderer.BiDirVMCPU:
		fmt.Println("Using BiDir-VM integrator...")
		tracer = integrator.NewBiDirVM(sceneObj, 0.1, 0.75)
	case renderer.LightCPU:
		fmt.Println("Using light tracing integrator...")
		tracer = integrator.NewLightTracer(sceneObj)
	default:
		fmt.Println("Using path tracing integrator...")
		tracer = integrator.NewUnidirectional(sceneObj)
	}

	factory, _ := renderer.BuildSamplerFactory(cfg, f, width, height, cfg.NumWorkers)
	engine := renderer.NewRenderEngine(sceneObj, f, tracer, factory, cfg, renderer.NewDefaultLogger())
	if err := engine.Start(); err != nil {
		return nil, err
	}

	// Poll the halt condition at the screen-refresh cadence; the workers
	// themselves stop at the same boundary.
	interval := time.Duration(cfg.ScreenRefreshInterval * float64(time.Second))
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if cfg.HaltSPP > 0 {
		target := uint64(cfg.HaltSPP) * uint64(width*height)
		for f.TotalPixelSamples() < target {
			time.Sleep(interval)
		}
	}
	engine.Stop()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := f.GetColor(x, y)
			img.SetRGBA(x, y, vec3ToRGBA(c.X, c.Y, c.Z))
		}
	}
	return img, nil
}

// vec3ToRGBA converts linear radiance to display color with gamma 2.
func vec3ToRGBA(r, g, b float64) color.RGBA {
	conv := func(c float64) uint8 {
		c = math.Sqrt(math.Max(0, c))
		if c > 1 {
			c = 1
		}
		return uint8(c * 255.999)
	}
	return color.RGBA{R: conv(r), G: conv(g), B: conv(b), A: 255}
}

// createOutputDir creates the output directory for the scene type
func createOutputDir(sceneType string) string {
	dirName := sceneType
	if strings.Contains(sceneType, "/") || strings.HasSuffix(sceneType, ".pbrt") {
		base := filepath.Base(sceneType)
		dirName = strings.TrimSuffix(base, ".pbrt")
	}

	outputDir := filepath.Join("output", dirName)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	return outputDir
}

// saveImageToFile saves an image to the specified file path
func saveImageToFile(img *image.RGBA, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, img)
}
