package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bimakw/tokendata/internal/config"
)

func testConfig(root string) *config.Config {
	return &config.Config{
		RPC: config.RPCConfig{
			ChainID:        1,
			BatchSize:      50,
			MaxRetries:     6,
			BackoffInitial: 500 * time.Millisecond,
			BackoffMax:     8 * time.Second,
		},
		Pools: config.PoolsConfig{
			Networks: []string{"eth:1", "base:8453"},
			MaxPools: 1000,
			PerPage:  20,
		},
		Output: config.OutputConfig{
			Root:     root,
			ChainIDs: []int64{1, 8453},
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd(newApp(testConfig(t.TempDir())))

	for _, name := range []string{"normalize", "fetch", "top-pools", "publish"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

func TestFlagsDefaultToConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.RPC.BatchSize = 25
	cfg.Pools.DelayEvery = 3

	root := newRootCmd(newApp(cfg))

	fetch, _, _ := root.Find([]string{"fetch"})
	if got := fetch.Flags().Lookup("batch-size").DefValue; got != "25" {
		t.Errorf("expected batch-size default 25, got %s", got)
	}
	if usage := fetch.Flags().Lookup("batch-size").Usage; !strings.Contains(usage, "addresses") {
		t.Errorf("batch-size should count addresses, got %q", usage)
	}
	if got := fetch.Flags().Lookup("backoff-initial").DefValue; got != "500ms" {
		t.Errorf("expected backoff-initial default 500ms, got %s", got)
	}

	pools, _, _ := root.Find([]string{"top-pools"})
	if got := pools.Flags().Lookup("delay-every").DefValue; got != "3" {
		t.Errorf("expected delay-every default 3, got %s", got)
	}
}

func TestNormalizeCmd(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "1", "address_to_metadata.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"0xABC":{"name":"Foo"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, newApp(testConfig(root)), "normalize", "--chains", "1", "--log-level", "error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Normalized "+path) {
		t.Errorf("unexpected output %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"0xabc"`) {
		t.Errorf("expected lowercase key, got %s", data)
	}
}

func TestFetchCmd_Errors(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "addresses.txt")
	if err := os.WriteFile(input, []byte(" \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file flag", []string{"fetch", "--rpc", "http://127.0.0.1:1"}, "file"},
		{"missing rpc url", []string{"fetch", "--file", input}, "rpc"},
		{"empty address list", []string{"fetch", "--file", input, "--rpc", "http://127.0.0.1:1"}, "no addresses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, newApp(testConfig(root)), append(tt.args, "--log-level", "error")...)
			if err == nil || !strings.Contains(strings.ToLower(err.Error()), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTopPoolsCmd_RequiresAPIKey(t *testing.T) {
	_, err := execute(t, newApp(testConfig(t.TempDir())), "top-pools", "--log-level", "error")
	if err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestTopPoolsCmd_InvalidNetworks(t *testing.T) {
	_, err := execute(t, newApp(testConfig(t.TempDir())), "top-pools", "key", "--networks", "eth", "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "slug:chainID") {
		t.Errorf("expected network parse error, got %v", err)
	}
}
