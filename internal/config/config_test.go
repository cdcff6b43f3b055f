package config

import (
	"bytes"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	s, err := fromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("fromLookup failed: %v", err)
	}
	if s.Root != "." {
		t.Errorf("Root: got %q, want %q", s.Root, ".")
	}
	if s.Workers != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers: got %d, want %d", s.Workers, runtime.GOMAXPROCS(0))
	}
	if s.Debug() {
		t.Error("Debug should default to off")
	}
	if s.JobsDir() != "jobs" {
		t.Errorf("JobsDir: got %q, want %q", s.JobsDir(), "jobs")
	}
}

func TestFromLookup_Values(t *testing.T) {
	s, err := fromLookup(lookupFrom(map[string]string{
		EnvDir:      "/srv/pathfinder/",
		EnvLogLevel: " DEBUG ",
		EnvWorkers:  "3",
		EnvTessdata: "/opt/tessdata",
	}))
	if err != nil {
		t.Fatalf("fromLookup failed: %v", err)
	}
	if s.Root != "/srv/pathfinder" {
		t.Errorf("Root: got %q", s.Root)
	}
	if !s.Debug() {
		t.Error("Debug: got false, want true")
	}
	if s.Workers != 3 {
		t.Errorf("Workers: got %d, want 3", s.Workers)
	}
	if s.Tessdata != "/opt/tessdata" {
		t.Errorf("Tessdata: got %q", s.Tessdata)
	}
	if s.JobsDir() != filepath.Join("/srv/pathfinder", "jobs") {
		t.Errorf("JobsDir: got %q", s.JobsDir())
	}
}

func TestFromLookup_BadWorkers(t *testing.T) {
	for _, v := range []string{"0", "-2", "many"} {
		if _, err := fromLookup(lookupFrom(map[string]string{EnvWorkers: v})); err == nil {
			t.Errorf("%s=%q should fail", EnvWorkers, v)
		}
	}
}

func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		SetDebug(false)
	}()

	SetDebug(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Debugf wrote while disabled: %q", buf.String())
	}

	SetDebug(true)
	if !DebugEnabled() {
		t.Fatal("DebugEnabled: got false after SetDebug(true)")
	}
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("Debugf output: got %q", buf.String())
	}
}
