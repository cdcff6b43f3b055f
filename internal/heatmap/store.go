package heatmap

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
)

// ErrPersistence reports a heatmap file that is missing, unreadable or
// corrupt.
var ErrPersistence = errors.New("heatmap persistence failed")

// magic prefixes every heatmap file.
const magic = "PFHEATMAP"

// formatVersion is bumped whenever snapshot changes incompatibly.
const formatVersion = 1

// snapshot is the persisted form of a Heatmap. The geometry is stored as its
// calibration and rebuilt on load.
type snapshot struct {
	Version     int
	Calibration mapping.Calibration
	Dim         mapping.Dimensions
	Counts      []uint32
	Total       uint64
	Ingest      period.Period
	Projected   period.Period
}

// Encode writes the heatmap as a gzip-compressed gob blob.
func (h *Heatmap) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrPersistence, err)
	}
	gz := gzip.NewWriter(w)
	snap := snapshot{
		Version:     formatVersion,
		Calibration: h.geom.Calibration(),
		Dim:         h.dim,
		Counts:      h.counts,
		Total:       h.total,
		Ingest:      h.ingest,
		Projected:   h.projected,
	}
	if err := gob.NewEncoder(gz).Encode(&snap); err != nil {
		gz.Close()
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: compress: %v", ErrPersistence, err)
	}
	return nil
}

// Decode reads a heatmap written by Encode.
func Decode(r io.Reader) (*Heatmap, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil || string(header) != magic {
		return nil, fmt.Errorf("%w: not a heatmap file", ErrPersistence)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gzip reader: %v", ErrPersistence, err)
	}
	defer gz.Close()

	var snap snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPersistence, err)
	}
	if snap.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrPersistence, snap.Version)
	}
	if snap.Dim.Width <= 0 || snap.Dim.Height <= 0 || len(snap.Counts) != snap.Dim.Width*snap.Dim.Height {
		return nil, fmt.Errorf("%w: grid of %d cells for %dx%d", ErrPersistence, len(snap.Counts), snap.Dim.Width, snap.Dim.Height)
	}

	geom, err := mapping.Build(snap.Calibration)
	if err != nil {
		return nil, fmt.Errorf("%w: stored calibration: %v", ErrPersistence, err)
	}
	return &Heatmap{
		geom:      geom,
		dim:       snap.Dim,
		counts:    snap.Counts,
		total:     snap.Total,
		ingest:    snap.Ingest,
		projected: snap.Projected,
	}, nil
}

// Save writes the heatmap to path atomically: a temporary file in the same
// directory is renamed over path once fully written.
func (h *Heatmap) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := h.Encode(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}

// Load reads the heatmap stored at path.
func Load(path string) (*Heatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer f.Close()

	h, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return h, nil
}

// pathLocks serializes goroutines of this process; the lock file covers
// other processes.
var pathLocks sync.Map // map[string]*sync.Mutex

func lockPath(path string) (unlock func(), err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	mu, _ := pathLocks.LoadOrStore(abs, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		mu.(*sync.Mutex).Unlock()
		return nil, fmt.Errorf("%w: create dir: %v", ErrPersistence, err)
	}
	fl := flock.New(abs + ".lock")
	if err := fl.Lock(); err != nil {
		mu.(*sync.Mutex).Unlock()
		return nil, fmt.Errorf("%w: lock %s: %v", ErrPersistence, filepath.Base(path), err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Printf("[Heatmap] failed to release lock on %s: %v", path, err)
		}
		mu.(*sync.Mutex).Unlock()
	}, nil
}

// Update runs fn on the heatmap stored at path under an exclusive lock and
// saves the result. Concurrent Updates of one path, from goroutines or other
// processes, run one at a time. If fn fails the file is left unchanged.
func Update(path string, fn func(*Heatmap) error) error {
	unlock, err := lockPath(path)
	if err != nil {
		return err
	}
	defer unlock()

	h, err := Load(path)
	if err != nil {
		return err
	}
	if err := fn(h); err != nil {
		return err
	}
	return h.Save(path)
}

// Create saves h to path under the same lock as Update, unless a file
// already exists there. It reports whether it wrote the file.
func Create(path string, h *Heatmap) (bool, error) {
	unlock, err := lockPath(path)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := h.Save(path); err != nil {
		return false, err
	}
	return true, nil
}
