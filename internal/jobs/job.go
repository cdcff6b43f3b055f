package jobs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/config"
	"github.com/ironsheep/pathfinder-heatmap/internal/heatmap"
	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
	"github.com/ironsheep/pathfinder-heatmap/internal/manifest"
	"github.com/ironsheep/pathfinder-heatmap/internal/ocr"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
	"github.com/ironsheep/pathfinder-heatmap/internal/series"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

// Directory names inside a job.
const (
	DataDirName     = "data"
	HeatmapsDirName = "heatmaps"
	SeriesDirName   = "series"
)

// ErrJobNotFound reports an id with no job directory.
var ErrJobNotFound = errors.New("job not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Store is the jobs directory: <root>/jobs/<id>/.
type Store struct {
	dir      string
	workers  int
	tessdata string
	cache    *imaging.ImageCache
}

// NewStore opens the jobs directory named by settings.
func NewStore(settings config.Settings) *Store {
	return &Store{
		dir:      settings.JobsDir(),
		workers:  settings.Workers,
		tessdata: settings.Tessdata,
	}
}

// Dir is the jobs directory.
func (s *Store) Dir() string { return s.dir }

// SetCache shares decoded rasters between jobs. Nil disables caching.
func (s *Store) SetCache(c *imaging.ImageCache) { s.cache = c }

// Job is one camera's working directory.
type Job struct {
	ID       string
	Dir      string
	Manifest *manifest.Manifest

	store *Store
}

func (s *Store) jobDir(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid job id %q", id)
	}
	return filepath.Join(s.dir, id), nil
}

// Create sets up a job directory from m and persists an empty heatmap for
// it. Creating a job that already exists fails.
func (s *Store) Create(id string, m *manifest.Manifest) (*Job, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := ProcessingOf(m); err != nil {
		return nil, err
	}
	geom, err := m.Build()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err == nil {
		return nil, fmt.Errorf("job %s already exists", id)
	}

	for _, sub := range []string{DataDirName, HeatmapsDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create job dir: %w", err)
		}
	}
	j := &Job{ID: id, Dir: dir, Manifest: m, store: s}
	if err := m.Save(j.ManifestPath()); err != nil {
		return nil, err
	}

	hm, err := heatmap.New(geom, m.Dimensions())
	if err != nil {
		return nil, err
	}
	if _, err := heatmap.Create(j.HeatmapPath(), hm); err != nil {
		return nil, err
	}
	log.Printf("[Jobs] created job %s (%s)", id, m.Processing.Type)
	return j, nil
}

// Open loads an existing job.
func (s *Store) Open(id string) (*Job, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return &Job{ID: id, Dir: dir, Manifest: m, store: s}, nil
}

// List returns the ids of every job with a manifest, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), manifest.FileName)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (j *Job) ManifestPath() string { return filepath.Join(j.Dir, manifest.FileName) }
func (j *Job) DataDir() string      { return filepath.Join(j.Dir, DataDirName) }
func (j *Job) SeriesDir() string    { return filepath.Join(j.Dir, SeriesDirName) }

// HeatmapPath is heatmaps/<id>.heatmap.
func (j *Job) HeatmapPath() string {
	return filepath.Join(j.Dir, HeatmapsDirName, j.ID+".heatmap")
}

// ImagePaths lists the job's photos and chunk summaries in name order.
// Hidden files and files of no known image kind are skipped.
func (j *Job) ImagePaths() ([]string, error) {
	entries, err := os.ReadDir(j.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read job data: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(j.DataDir(), e.Name())
		if _, err := source.KindOf(path); err != nil {
			config.Debugf("[Jobs] %s: skipping %s: %v", j.ID, e.Name(), err)
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// Loader opens the job's photos: sized to the calibration, using the job's
// chunk size, and reading burned-in timestamps when the manifest locates
// one.
func (j *Job) Loader() source.Loader {
	return j.store.Loader(j.Manifest)
}

// Loader builds the photo loader for a job described by m.
func (s *Store) Loader(m *manifest.Manifest) source.Loader {
	l := source.Loader{
		Dim:     m.Dimensions(),
		Chunk:   m.ChunkSize(),
		Cache:   s.cache,
		Workers: s.workers,
	}
	if to := m.TimestampOverlay; to != nil {
		region, layout := to.Rect(), to.Layout
		opts := ocr.Options{Language: to.Language, TessdataPrefix: s.tessdata}
		l.Stamp = func(img *image.NRGBA) (time.Time, error) {
			return ocr.ReadTimestamp(img, region, layout, opts)
		}
	}
	return l
}

func (j *Job) series(p Params) (*series.Series, error) {
	s, err := series.Open(j.SeriesDir())
	if err == nil {
		s.Loader = j.Loader()
		return s, nil
	}
	if !errors.Is(err, series.ErrNotFound) {
		return nil, err
	}
	start, err := p.start()
	if err != nil {
		return nil, err
	}
	s, err = series.Create(j.SeriesDir(), j.ManifestPath(), p.interval(), start)
	if errors.Is(err, series.ErrExists) {
		// Another photo created it first.
		s, err = series.Open(j.SeriesDir())
	}
	if err != nil {
		return nil, err
	}
	s.Loader = j.Loader()
	return s, nil
}

// record loads the job's data captured within window and records it into
// the heatmap stored at path.
func (j *Job) record(ctx context.Context, path string, window period.Period, p Params) (Result, error) {
	paths, err := j.ImagePaths()
	if err != nil {
		return Result{}, err
	}
	loader := j.Loader()

	var inWindow []string
	for _, fp := range paths {
		taken, err := loader.TimeTaken(fp)
		if err != nil {
			return Result{}, err
		}
		switch {
		case window.Contains(taken):
			inWindow = append(inWindow, fp)
		case taken.Before(window.Start) && j.store.cache != nil:
			// Later photos only move the window forward.
			j.store.cache.Evict(fp)
		}
	}
	sources, err := loader.LoadBatch(ctx, inWindow)
	if err != nil {
		return Result{}, err
	}

	var stats heatmap.RecordStats
	err = heatmap.Update(path, func(h *heatmap.Heatmap) error {
		var err error
		stats, err = h.Record(ctx, sources, window, heatmap.RecordOptions{
			WindowSize: p.WindowSize,
			Threshold:  p.ColorThresh,
			Workers:    j.store.workers,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if j.store.cache != nil {
		config.Debugf("[Jobs] %s: %d rasters cached", j.ID, j.store.cache.Len())
	}
	return Result{Heatmap: path, Period: window, Stats: stats}, nil
}

// UpdateJob moves incoming into the job's data directory and runs the job's
// processing for it.
func (s *Store) UpdateJob(ctx context.Context, id, incoming string) (Result, error) {
	j, err := s.Open(id)
	if err != nil {
		return Result{}, err
	}
	proc, err := ProcessingOf(j.Manifest)
	if err != nil {
		return Result{}, err
	}
	if _, err := source.KindOf(incoming); err != nil {
		return Result{}, err
	}

	dest := filepath.Join(j.DataDir(), filepath.Base(incoming))
	if err := moveFile(incoming, dest); err != nil {
		return Result{}, err
	}

	taken, err := j.Loader().TimeTaken(dest)
	if err != nil {
		return Result{}, err
	}
	res, err := processors[proc.Kind](ctx, j, proc.Params, dest, taken)
	if err != nil {
		return Result{}, err
	}
	res.Kind = proc.Kind.String()
	res.Image = dest

	log.Printf("[Jobs] %s: processed %s with %s: windows=%d added=%d",
		id, filepath.Base(dest), res.Kind, res.Stats.Windows, res.Stats.Added)
	return res, nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open incoming file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy incoming file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to copy incoming file: %w", err)
	}
	in.Close()
	return os.Remove(src)
}
