package main

import (
	"strings"
	"testing"

	"github.com/df07/go-progressive-raytracer/pkg/renderer"
)

func TestCreateScene(t *testing.T) {
	tests := []struct {
		name        string
		sceneType   string
		expectError bool
	}{
		// Built-in scenes
		{"default scene", "default", false},
		{"cornell scene", "cornell", false},
		{"cornell-boxes scene", "cornell-boxes", false},

		// Invalid scenes
		{"unknown scene", "nonexistent", true},
		{"invalid PBRT path", "scenes/nonexistent.pbrt", true},
		{"empty scene name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sceneObj, err := createScene(tt.sceneType)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for scene type '%s', but got none", tt.sceneType)
				}
				if sceneObj != nil {
					t.Errorf("Expected nil scene for invalid scene type '%s', got %T", tt.sceneType, sceneObj)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for scene type '%s': %v", tt.sceneType, err)
			}
			if sceneObj == nil {
				t.Fatalf("Expected scene for valid scene type '%s', got nil", tt.sceneType)
			}
			if sceneObj.CameraConfig.Width <= 0 {
				t.Errorf("Scene camera width should be positive, got %d", sceneObj.CameraConfig.Width)
			}
			if sceneObj.SamplingConfig.Width <= 0 {
				t.Errorf("Scene sampling width should be positive, got %d", sceneObj.SamplingConfig.Width)
			}
		})
	}
}

func TestTryLoadPBRTSceneRejectsMissingFiles(t *testing.T) {
	for _, sceneType := range []string{"nonexistent", "scenes/nonexistent.pbrt", "cornell"} {
		if sceneObj := tryLoadPBRTScene(sceneType); sceneObj != nil {
			t.Errorf("Expected PBRT scene not to load for '%s', got %T", sceneType, sceneObj)
		}
	}
}

func TestCreateOutputDir(t *testing.T) {
	tests := []struct {
		name         string
		sceneType    string
		expectedBase string
	}{
		{"default scene", "default", "default"},
		{"cornell scene", "cornell", "cornell"},
		{"PBRT file path", "scenes/cornell-empty.pbrt", "cornell-empty"},
		{"nested PBRT path", "scenes/subdir/my-scene.pbrt", "my-scene"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputDir := createOutputDir(tt.sceneType)
			if !strings.Contains(outputDir, tt.expectedBase) {
				t.Errorf("Expected output directory to contain '%s', got '%s'", tt.expectedBase, outputDir)
			}
			if !strings.Contains(outputDir, "output") {
				t.Errorf("Expected output directory to contain 'output', got '%s'", outputDir)
			}
		})
	}
}

func TestBuildConfigAppliesOverrides(t *testing.T) {
	cfg, err := buildConfig(cliOptions{Engine: "BIDIRCPU", MaxSamples: 32, NumWorkers: 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Type != renderer.BiDirCPU {
		t.Errorf("Expected BIDIRCPU engine, got %v", cfg.Type)
	}
	if cfg.HaltSPP != 32 {
		t.Errorf("Expected HaltSPP 32, got %d", cfg.HaltSPP)
	}
	if cfg.NumWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.NumWorkers)
	}

	if _, err := buildConfig(cliOptions{Engine: "OPENCL"}); err == nil {
		t.Error("Expected an error for an unsupported engine type")
	}
}

func TestVec3ToRGBAClampsAndGammaCorrects(t *testing.T) {
	c := vec3ToRGBA(1, 4, 0.25)
	if c.R != 255 {
		t.Errorf("Expected full red for 1.0, got %d", c.R)
	}
	if c.G != 255 {
		t.Errorf("Expected clamped green for 4.0, got %d", c.G)
	}
	if c.B != 127 {
		t.Errorf("Expected gamma-corrected blue for 0.25 (sqrt = 0.5), got %d", c.B)
	}
	if c.A != 255 {
		t.Errorf("Expected opaque alpha, got %d", c.A)
	}
}
