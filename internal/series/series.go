package series

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/pathfinder-heatmap/internal/heatmap"
	"github.com/ironsheep/pathfinder-heatmap/internal/manifest"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

const (
	// IndexName is the sqlite index inside a series directory.
	IndexName = "series.db"

	// BucketsDirName holds one heatmap file per bucket.
	BucketsDirName = "buckets"

	bucketLayout = "2006-01-02T15-04-05.999999999Z"
)

var (
	// ErrExists reports Create on a directory that already holds a series.
	ErrExists = errors.New("series already exists")

	// ErrNotFound reports Open on a directory without a series index.
	ErrNotFound = errors.New("series not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS series (
	id          TEXT PRIMARY KEY,
	manifest    TEXT NOT NULL,
	interval_ns INTEGER NOT NULL,
	start_ns    INTEGER NOT NULL,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS buckets (
	start_ns   INTEGER PRIMARY KEY,
	path       TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Series partitions time into buckets of Interval anchored at Start, each
// with its own heatmap file. Buckets are created the first time a photo
// falls into them.
type Series struct {
	ID           string
	Dir          string
	ManifestPath string
	Interval     time.Duration
	Start        time.Time

	// Loader reads capture times in SelectSubheatmap. Create and Open set
	// it up from the manifest's dimensions and chunk size.
	Loader source.Loader

	db   *sql.DB
	geom *mapping.Geometry
	dim  mapping.Dimensions

	mu sync.Mutex
}

// Bucket is one indexed interval.
type Bucket struct {
	Start time.Time `json:"start"`
	Path  string    `json:"path"`
}

// Create starts a new series in dir for the job described by manifestPath.
func Create(dir, manifestPath string, interval time.Duration, start time.Time) (*Series, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: series interval must be positive, got %s", mapping.ErrConfiguration, interval)
	}
	if _, err := os.Stat(filepath.Join(dir, IndexName)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}

	s := &Series{
		ID:           uuid.NewString(),
		Dir:          dir,
		ManifestPath: manifestPath,
		Interval:     interval,
		Start:        start.UTC(),
	}
	if err := s.configure(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, BucketsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create series dir: %w", err)
	}

	db, err := openIndex(filepath.Join(dir, IndexName))
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`INSERT INTO series (id, manifest, interval_ns, start_ns) VALUES (?, ?, ?, ?)`,
		s.ID, manifestPath, int64(interval), s.Start.UnixNano())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record series: %w", err)
	}
	s.db = db

	log.Printf("[Series] created %s: interval=%s start=%s", s.ID, interval, s.Start.Format(time.RFC3339))
	return s, nil
}

// Open reopens the series stored in dir.
func Open(dir string) (*Series, error) {
	path := filepath.Join(dir, IndexName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	db, err := openIndex(path)
	if err != nil {
		return nil, err
	}

	s := &Series{Dir: dir, db: db}
	var intervalNS, startNS int64
	err = db.QueryRow(`SELECT id, manifest, interval_ns, start_ns FROM series LIMIT 1`).
		Scan(&s.ID, &s.ManifestPath, &intervalNS, &startNS)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s has an empty index", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read series: %w", err)
	}
	s.Interval = time.Duration(intervalNS)
	s.Start = time.Unix(0, startNS).UTC()

	if err := s.configure(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openIndex(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series index: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create series schema: %w", err)
	}
	return db, nil
}

func (s *Series) configure() error {
	m, err := manifest.Load(s.ManifestPath)
	if err != nil {
		return err
	}
	geom, err := m.Build()
	if err != nil {
		return err
	}
	s.geom = geom
	s.dim = m.Dimensions()
	s.Loader = source.Loader{Dim: s.dim, Chunk: m.ChunkSize()}
	return nil
}

// Close releases the index.
func (s *Series) Close() error {
	return s.db.Close()
}

// BucketStart returns the start of the bucket holding t:
// Start + floor((t-Start)/Interval)*Interval. Times before Start fall into
// earlier buckets.
func (s *Series) BucketStart(t time.Time) time.Time {
	d := t.Sub(s.Start)
	n := d / s.Interval
	if d%s.Interval < 0 {
		n--
	}
	return s.Start.Add(n * s.Interval)
}

// SelectFor returns the heatmap path of the bucket holding t, creating and
// persisting an empty heatmap the first time the bucket is seen.
func (s *Series) SelectFor(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.BucketStart(t)
	key := start.UnixNano()

	var path string
	err := s.db.QueryRow(`SELECT path FROM buckets WHERE start_ns = ?`, key).Scan(&path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up bucket: %w", err)
	}

	path = filepath.Join(s.Dir, BucketsDirName, start.UTC().Format(bucketLayout)+".heatmap")
	hm, err := heatmap.New(s.geom, s.dim)
	if err != nil {
		return "", err
	}
	created, err := heatmap.Create(path, hm)
	if err != nil {
		return "", err
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO buckets (start_ns, path) VALUES (?, ?)`, key, path); err != nil {
		return "", fmt.Errorf("failed to index bucket: %w", err)
	}
	if created {
		log.Printf("[Series] %s: new bucket %s", s.ID, start.Format(time.RFC3339))
	}
	return path, nil
}

// SelectSubheatmap returns the heatmap path of the bucket the photo or chunk
// summary at imagePath was captured in.
func (s *Series) SelectSubheatmap(imagePath string) (string, error) {
	taken, err := s.Loader.TimeTaken(imagePath)
	if err != nil {
		return "", err
	}
	return s.SelectFor(taken)
}

// Buckets lists the created buckets in time order.
func (s *Series) Buckets() ([]Bucket, error) {
	rows, err := s.db.Query(`SELECT start_ns, path FROM buckets ORDER BY start_ns`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var ns int64
		var b Bucket
		if err := rows.Scan(&ns, &b.Path); err != nil {
			return nil, err
		}
		b.Start = time.Unix(0, ns).UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
