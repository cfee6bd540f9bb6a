package dlsc

import (
	"bufio"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// formatVersion is bumped whenever the persisted layout changes
// incompatibly; Load rejects any other version rather than guess at
// upgrading it, per spec.md §6's "reject on version mismatch".
const formatVersion = 1

// persistedEntry is the on-disk shape of an Entry: only what Lookup needs
// to reconstruct survives a save (BSDFs/Wos are build-time scratch state).
type persistedEntry struct {
	Point, Normal core.Vec3
	IsVolume      bool
	Weights       []float64 // nil means a null distribution (no light was ever visible here)
}

// persistedCache is the full gob-encoded blob: version tag, the params a
// build was run with (so a mismatched config invalidates the file), and
// every entry.
type persistedCache struct {
	Version int
	Params  Params
	Entries []persistedEntry
}

// Load reads a previously-saved DLSC from params.Persistent.FileName. It
// reports ok=false (no error) if the file doesn't exist, so callers build
// fresh on a cold cache.
func Load(params Params) (d *DLSC, ok bool, err error) {
	path := params.Persistent.FileName
	if path == "" {
		return nil, false, nil
	}
	f, openErr := os.Open(path)
	if openErr != nil {
		if errors.Is(openErr, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, core.NewRenderError(core.CacheError, "dlsc.Load", openErr)
	}
	defer f.Close()

	var pc persistedCache
	if decErr := gob.NewDecoder(bufio.NewReader(f)).Decode(&pc); decErr != nil {
		return nil, false, core.NewRenderError(core.CacheError, "dlsc.Load", decErr)
	}
	if pc.Version != formatVersion {
		return nil, false, core.NewRenderError(core.CacheError, "dlsc.Load", errors.New("persisted DLSC version mismatch"))
	}

	radius := pc.Params.Visibility.LookupRadius
	mergeRadius := 1.5 * radius
	cellSize := mergeRadius
	if radius > cellSize {
		cellSize = radius
	}
	g := newGrid(cellSize)
	entries := make([]*Entry, len(pc.Entries))
	for i, pe := range pc.Entries {
		e := &Entry{Point: pe.Point, Normal: pe.Normal, IsVolume: pe.IsVolume}
		if pe.Weights != nil {
			e.Distribution = lightstrategy.NewLightsDistribution(pe.Weights)
		}
		entries[i] = e
		g.insert(e)
	}

	return &DLSC{params: pc.Params, radius: radius, entries: entries, grid: g}, true, nil
}

// Save writes d to params.Persistent.FileName using a safe-save pattern:
// encode to a tempfile in the same directory, then rename over the final
// path, so a crash mid-write never leaves a corrupt cache in place.
func (d *DLSC) Save() error {
	path := d.params.Persistent.FileName
	if path == "" {
		return nil
	}

	pc := persistedCache{Version: formatVersion, Params: d.params}
	// Persist the resolved radius, not the configured one: a build run with
	// LookupRadius = 0 (auto) must reload with the radius it actually used.
	pc.Params.Visibility.LookupRadius = d.radius
	pc.Entries = make([]persistedEntry, len(d.entries))
	for i, e := range d.entries {
		pe := persistedEntry{Point: e.Point, Normal: e.Normal, IsVolume: e.IsVolume}
		if e.Distribution != nil {
			weights := make([]float64, e.Distribution.Len())
			for li := range weights {
				weights[li] = e.Distribution.PDF(li)
			}
			pe.Weights = weights
		}
		pc.Entries[i] = pe
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dlsc-*.tmp")
	if err != nil {
		return core.NewRenderError(core.CacheError, "dlsc.Save", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	w := bufio.NewWriter(tmp)
	if encErr := gob.NewEncoder(w).Encode(pc); encErr != nil {
		tmp.Close()
		return core.NewRenderError(core.CacheError, "dlsc.Save", encErr)
	}
	if flushErr := w.Flush(); flushErr != nil {
		tmp.Close()
		return core.NewRenderError(core.CacheError, "dlsc.Save", flushErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return core.NewRenderError(core.CacheError, "dlsc.Save", closeErr)
	}
	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		return core.NewRenderError(core.CacheError, "dlsc.Save", renameErr)
	}
	return nil
}

// BuildOrLoad resolves the persistence clause of spec.md §4.5: load an
// existing cache file if configured and present, otherwise build fresh
// and (if a file name is configured) save the result.
func BuildOrLoad(sc *scene.Scene, params Params, interrupt func() bool) (*DLSC, error) {
	if cached, ok, err := Load(params); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	d, err := Build(sc, params, interrupt)
	if err != nil {
		return nil, err
	}
	if err := d.Save(); err != nil {
		return nil, err
	}
	return d, nil
}
