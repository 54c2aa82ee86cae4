package main

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestParseAddress(t *testing.T) {
	got, err := parseAddress("0.3.1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{1, 3, 0}) {
		t.Errorf("parseAddress() = %v", got)
	}
	if _, err := parseAddress("0.x.1"); err == nil {
		t.Error("expected error for non numeric coordinate")
	}
}

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := newApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatal(err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(app, set, nil)
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	content := `
node:
  node_id: gw-file
  levels: 2
  group_size: 4
  address: [1, 2]
mesh:
  rpc_addr: "127.0.0.1:7400"
services:
  participate: [3, 5]
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c := newContext(t, "--config", path, "--address", "3.0", "--seed", "10.0.0.1:7946", "--log-level", "debug")
	cfg, loader, err := loadConfig(c)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if loader.FilePath() != path {
		t.Errorf("FilePath() = %q", loader.FilePath())
	}
	if cfg.Node.NodeID != "gw-file" {
		t.Errorf("node_id = %q", cfg.Node.NodeID)
	}
	if !reflect.DeepEqual(cfg.Node.Address, []int{0, 3}) {
		t.Errorf("flag should override address, got %v", cfg.Node.Address)
	}
	if !reflect.DeepEqual(cfg.Mesh.Seeds, []string{"10.0.0.1:7946"}) {
		t.Errorf("seeds = %v", cfg.Mesh.Seeds)
	}
	if !reflect.DeepEqual(cfg.Services.Participate, []uint32{3, 5}) {
		t.Errorf("participate = %v", cfg.Services.Participate)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	// Defaults carry no address, so verification fails.
	c := newContext(t)
	if _, _, err := loadConfig(c); err == nil {
		t.Error("loadConfig() without an address succeeded")
	}
}
