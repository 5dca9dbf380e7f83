package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/picdex/internal/config"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
)

func redisConfig() config.Config {
	cfg := config.Config{
		Database:    config.DatabaseConfig{Driver: config.DriverRedis, Addrs: []string{"localhost:6379"}},
		LocalSearch: config.LocalSearchConfig{Directory: "./images"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"dir", "ext", "workers"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
	if err := cmd.Flags().Parse([]string{"--dir", "/data", "--ext", ".jpg,png", "--workers", "8"}); err != nil {
		t.Fatal(err)
	}
	exts, _ := cmd.Flags().GetStringSlice("ext")
	if !slices.Equal(exts, []string{".jpg", "png"}) {
		t.Errorf("ext = %v", exts)
	}
}

func TestResolve_DefaultsFromConfig(t *testing.T) {
	p, err := resolve(options{}, redisConfig())
	if err != nil {
		t.Fatal(err)
	}
	if p.dir != "./images" || p.workers != 4 || p.batchSize != 10 {
		t.Errorf("unexpected params: %+v", p)
	}
	if !slices.Contains(p.exts, ".png") {
		t.Errorf("exts = %v, want configured defaults", p.exts)
	}
}

func TestResolve_FlagsOverride(t *testing.T) {
	p, err := resolve(options{dir: "/data", exts: []string{"JPG", ".png"}, workers: 2}, redisConfig())
	if err != nil {
		t.Fatal(err)
	}
	if p.dir != "/data" || p.workers != 2 {
		t.Errorf("unexpected params: %+v", p)
	}
	if !slices.Equal(p.exts, []string{".jpg", ".png"}) {
		t.Errorf("exts = %v, want normalized", p.exts)
	}
}

func TestResolve_Errors(t *testing.T) {
	local := redisConfig()
	local.Database.Driver = config.DriverLocal
	if _, err := resolve(options{}, local); err == nil {
		t.Error("local driver must be rejected")
	}
	if _, err := resolve(options{workers: -1}, redisConfig()); err == nil {
		t.Error("negative workers must be rejected")
	}
	noDir := redisConfig()
	noDir.LocalSearch.Directory = ""
	if _, err := resolve(options{}, noDir); err == nil {
		t.Error("missing directory must be rejected")
	}
}

func TestPrintReport(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	printReport(cmd, indexeruc.ScanReport{Found: 12, Indexed: 11, Failed: 1})
	for _, want := range []string{"Found:    12", "Indexed:  11", "Existing: 0", "Failed:   1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}
