package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Verbose != 4 {
		t.Errorf("expected default verbosity 4, got %d", cfg.Verbose)
	}
	if cfg.Number != 1 {
		t.Errorf("expected default number 1, got %d", cfg.Number)
	}
	if cfg.MemAvail != types.Unbounded {
		t.Errorf("expected default memavail to be unbounded")
	}
}

func TestParse_CLIOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peerslave.conf")
	if err := os.WriteFile(path, []byte("hostname = from-file\nmemavail = 1024\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Parse([]string{"--config", path, "--hostname", "from-cli"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Hostname != "from-cli" {
		t.Errorf("expected CLI flag to win, got %q", cfg.Hostname)
	}
	if cfg.MemAvail != 1024 {
		t.Errorf("expected memavail 1024 from config file, got %d", cfg.MemAvail)
	}
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]uint64{
		"inf": types.Unbounded,
		"INF": types.Unbounded,
		"42":  42,
	}
	for raw, want := range cases {
		got, err := parseQuantity(raw)
		if err != nil {
			t.Fatalf("parseQuantity(%q): %v", raw, err)
		}
		if got != want {
			t.Errorf("parseQuantity(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" alice, bob ,, carol")
	want := []string{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
