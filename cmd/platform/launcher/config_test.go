package launcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/urfave/cli.v1"

	"github.com/dashpay/platform-sub039/flags"
	"github.com/dashpay/platform-sub039/integration"
)

// runConfigFromArgs runs MakeAllConfigs inside a synthetic app carrying the
// launcher's global flags.
func runConfigFromArgs(t *testing.T, args []string) (Config, error) {
	t.Helper()

	a := cli.NewApp()
	a.HideHelp = true
	a.HideVersion = true
	a.Flags = append(a.Flags, flags.CommonFlags()...)
	a.Flags = append(a.Flags, flags.NodeFlags()...)
	a.Flags = append(a.Flags, flags.NetworkFlags()...)

	var (
		got    Config
		cfgErr error
	)
	a.Action = func(c *cli.Context) error {
		got, cfgErr = MakeAllConfigs(c)
		return nil
	}
	if err := a.Run(append([]string{"platform"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got, cfgErr
}

func mustConfig(t *testing.T, args ...string) Config {
	t.Helper()
	cfg, err := runConfigFromArgs(t, args)
	if err != nil {
		t.Fatalf("MakeAllConfigs: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestMakeAllConfigs_flagOverrides feeds representative flag combinations
// through a synthetic app and checks the fields each one should change.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg Config)
	}{
		{
			name: "datadir and identity",
			args: []string{"--datadir", filepath.Join(dir, "node"), "--identity", "mn-1"},
			want: func(t *testing.T, cfg Config) {
				if cfg.Node.DataDir != filepath.Join(dir, "node") {
					t.Fatalf("DataDir = %q, want %q", cfg.Node.DataDir, filepath.Join(dir, "node"))
				}
				if cfg.StatePath() != filepath.Join(dir, "node", "state") {
					t.Fatalf("StatePath = %q", cfg.StatePath())
				}
				if cfg.Node.Name != "mn-1" {
					t.Fatalf("Name = %q, want mn-1", cfg.Node.Name)
				}
				if _, err := os.Stat(cfg.Node.DataDir); err != nil {
					t.Fatalf("datadir not created: %v", err)
				}
			},
		},
		{
			name: "logging",
			args: []string{"--datadir", dir, "--log.format", "json", "--log.verbosity", "5", "--log.color"},
			want: func(t *testing.T, cfg Config) {
				l := cfg.Node.Logging
				if l.Format != "json" || l.Verbosity != 5 || !l.Color {
					t.Fatalf("Logging = %+v", l)
				}
			},
		},
		{
			name: "metrics",
			args: []string{"--datadir", dir, "--metrics", "--metrics.addr", "0.0.0.0", "--metrics.port", "9100"},
			want: func(t *testing.T, cfg Config) {
				m := cfg.Metrics
				if !m.Enabled || m.Addr != "0.0.0.0" || m.Port != 9100 {
					t.Fatalf("Metrics = %+v", m)
				}
			},
		},
		{
			name: "fakenet selects the fake network",
			args: []string{"--datadir", dir, "--network", "main", "--fakenet", "3/4"},
			want: func(t *testing.T, cfg Config) {
				if cfg.Network.Name != "fake" || cfg.Network.FakeNet != "3/4" {
					t.Fatalf("Network = %+v", cfg.Network)
				}
			},
		},
		{
			name: "storage and execution",
			args: []string{"--datadir", dir, "--cache", "99", "--handles", "33", "--datadir.state", filepath.Join(dir, "db"),
				"--parallelism", "8", "--verify-conservation"},
			want: func(t *testing.T, cfg Config) {
				if cfg.Store.CacheMB != 99 || cfg.Store.Handles != 33 {
					t.Fatalf("Store = %+v", cfg.Store)
				}
				if cfg.StatePath() != filepath.Join(dir, "db") {
					t.Fatalf("StatePath = %q", cfg.StatePath())
				}
				if cfg.Execution.Parallelism != 8 || !cfg.Execution.VerifyConservation {
					t.Fatalf("Execution = %+v", cfg.Execution)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.want(t, mustConfig(t, test.args...))
		})
	}
}

func TestMakeAllConfigs_defaults(t *testing.T) {
	cfg := mustConfig(t, "--datadir", t.TempDir())
	def := integration.DefaultPreset()

	if cfg.Store.Preset != def.Name || cfg.Store.CacheMB != def.CacheMB || cfg.Store.Handles != def.Handles {
		t.Fatalf("Store = %+v, want default preset %+v", cfg.Store, def)
	}
	if cfg.Network.Name != "fake" {
		t.Fatalf("Network = %q, want fake", cfg.Network.Name)
	}
	if cfg.Node.Logging.Verbosity != 4 || cfg.Node.Logging.Format != "text" {
		t.Fatalf("Logging = %+v", cfg.Node.Logging)
	}
}

func TestMakeAllConfigs_presetThenFileThenFlags(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "node.toml", `
[Store]
Preset = "lite"
Handles = 10

[Metrics]
Port = 7070
`)
	cfg := mustConfig(t, "--datadir", dir, "--config", file, "--cache", "20")
	lite := integration.LitePreset()

	if cfg.Store.Preset != "lite" {
		t.Fatalf("Preset = %q, want lite from the file", cfg.Store.Preset)
	}
	// preset < file < flags
	if !cfg.Metrics.Enabled || !cfg.Execution.VerifyConservation || cfg.Execution.Parallelism != lite.Parallelism {
		t.Fatalf("lite switches not applied: %+v %+v", cfg.Metrics, cfg.Execution)
	}
	if cfg.Store.Handles != 10 {
		t.Fatalf("Handles = %d, file should override the preset", cfg.Store.Handles)
	}
	if cfg.Metrics.Port != 7070 {
		t.Fatalf("Port = %d, want 7070 from the file", cfg.Metrics.Port)
	}
	if cfg.Store.CacheMB != 20 {
		t.Fatalf("CacheMB = %d, flag should win", cfg.Store.CacheMB)
	}
}

func TestMakeAllConfigs_presetFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "node.toml", "[Store]\nPreset = \"lite\"\n")

	cfg := mustConfig(t, "--datadir", dir, "--config", file, "--preset", "archive")
	if cfg.Store.Preset != "archive" || cfg.Store.CacheMB != integration.ArchivePreset().CacheMB {
		t.Fatalf("Store = %+v, want archive", cfg.Store)
	}
}

func TestMakeAllConfigs_rejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	if _, err := runConfigFromArgs(t, []string{"--datadir", dir, "--preset", "turbo"}); err == nil {
		t.Fatal("expected an error for an unknown preset")
	}

	file := writeFile(t, dir, "bad.toml", "[Store]\nCompression = true\n")
	_, err := runConfigFromArgs(t, []string{"--datadir", dir, "--config", file})
	if err == nil || !strings.Contains(err.Error(), "Compression") {
		t.Fatalf("err = %v, want unknown field Compression", err)
	}
}

func TestWriteConfig_roundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := mustConfig(t, "--datadir", dir, "--preset", "validator", "--identity", "mn-7")

	var buf bytes.Buffer
	if err := WriteConfig(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	file := writeFile(t, dir, "dump.toml", buf.String())

	again := mustConfig(t, "--config", file)
	if again != cfg {
		t.Fatalf("reloaded config\n%+v\nwant\n%+v", again, cfg)
	}
}
