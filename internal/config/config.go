package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

// Environment variables.
const (
	EnvDir      = "PATHFINDER_DIR"
	EnvLogLevel = "PATHFINDER_LOG_LEVEL"
	EnvWorkers  = "PATHFINDER_WORKERS"
	EnvTessdata = "PATHFINDER_TESSDATA"
)

// JobsDirName is the directory under Root holding one directory per job.
const JobsDirName = "jobs"

// Settings are the process-wide options.
type Settings struct {
	// Root is the pathfinder data directory. Jobs live in Root/jobs.
	Root string

	// LogLevel is "debug" to enable Debugf output; anything else is quiet.
	LogLevel string

	// Workers bounds parallel movement detection and image decoding.
	Workers int

	// Tessdata overrides the Tesseract traineddata directory.
	Tessdata string
}

// FromEnv reads Settings from the environment, applying defaults.
func FromEnv() (Settings, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Settings, error) {
	s := Settings{
		Root:    ".",
		Workers: runtime.GOMAXPROCS(0),
	}

	if v, ok := lookup(EnvDir); ok && strings.TrimSpace(v) != "" {
		s.Root = filepath.Clean(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		s.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return Settings{}, fmt.Errorf("%s must be a positive integer, got %q", EnvWorkers, v)
		}
		s.Workers = n
	}
	if v, ok := lookup(EnvTessdata); ok {
		s.Tessdata = strings.TrimSpace(v)
	}
	return s, nil
}

// JobsDir is Root/jobs.
func (s Settings) JobsDir() string {
	return filepath.Join(s.Root, JobsDirName)
}

// Debug reports whether debug logging was requested.
func (s Settings) Debug() bool {
	return s.LogLevel == "debug"
}

var debug atomic.Bool

// SetDebug turns Debugf output on or off.
func SetDebug(on bool) { debug.Store(on) }

// DebugEnabled reports the current debug switch.
func DebugEnabled() bool { return debug.Load() }

// Debugf logs through the standard logger when debug output is on.
func Debugf(format string, args ...any) {
	if debug.Load() {
		_ = log.Output(2, fmt.Sprintf(format, args...))
	}
}
