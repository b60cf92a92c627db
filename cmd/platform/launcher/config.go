package launcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/dashpay/platform-sub039/integration"
)

// Config aggregates everything the launcher needs.
type Config struct {
	Node      NodeConfig
	Network   NetworkConfig
	Store     StoreConfig
	Metrics   MetricsConfig
	Execution ExecutionConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string `toml:",omitempty"`
}

type NetworkConfig struct {
	Name    string
	Genesis string `toml:",omitempty"`
	FakeNet string `toml:",omitempty"`
}

type StoreConfig struct {
	// Path defaults to <datadir>/state.
	Path    string `toml:",omitempty"`
	Preset  string
	CacheMB int
	Handles int
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
	Port    int
}

type ExecutionConfig struct {
	Parallelism        int
	VerifyConservation bool
}

// StatePath is where the state database lives.
func (c Config) StatePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Node.DataDir, "state")
}

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
			Logging: LoggingConfig{
				Verbosity: d.Logging.Verbosity,
				Format:    d.Logging.Format,
				Color:     d.Logging.Color,
			},
		},
		Network: NetworkConfig{
			Name:    d.Network.Name,
			FakeNet: d.Network.FakeNet,
		},
		Store: StoreConfig{
			Preset:  d.Storage.Preset,
			CacheMB: d.Storage.CacheMB,
			Handles: d.Storage.Handles,
		},
		Metrics: MetricsConfig{
			Enabled: d.Metrics.Enable,
			Addr:    d.Metrics.HTTPAddr,
			Port:    d.Metrics.HTTPPort,
		},
		Execution: ExecutionConfig{
			Parallelism:        d.Execution.Parallelism,
			VerifyConservation: d.Execution.VerifyConservation,
		},
	}
}

// MakeAllConfigs merges, in order: defaults, the preset, the config file and
// CLI flags. The file is read twice so that it can name the preset and still
// override the preset's values.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	file := ctx.GlobalString("config")
	if file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}
	name := cfg.Store.Preset
	if ctx.GlobalIsSet("preset") {
		name = ctx.GlobalString("preset")
	}
	preset, err := integration.GetPresetByName(name)
	if err != nil {
		return cfg, err
	}
	applyPreset(&cfg, preset)
	if file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown field %s", path, undecoded[0])
	}
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	return nil
}

// WriteConfig writes cfg in the format loadConfigFile reads.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func applyPreset(cfg *Config, preset integration.PresetConfig) {
	cur := integration.PresetConfig{
		Name:               cfg.Store.Preset,
		CacheMB:            cfg.Store.CacheMB,
		Handles:            cfg.Store.Handles,
		EnableMetrics:      cfg.Metrics.Enabled,
		VerifyConservation: cfg.Execution.VerifyConservation,
		Parallelism:        cfg.Execution.Parallelism,
	}
	integration.ApplyPreset(&cur, preset)
	cfg.Store.Preset = cur.Name
	cfg.Store.CacheMB = cur.CacheMB
	cfg.Store.Handles = cur.Handles
	cfg.Metrics.Enabled = cur.EnableMetrics
	cfg.Execution.VerifyConservation = cur.VerifyConservation
	cfg.Execution.Parallelism = cur.Parallelism
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Node.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Node.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("sentry.dsn") {
		cfg.Node.Logging.SentryDSN = ctx.GlobalString("sentry.dsn")
	}

	if ctx.GlobalIsSet("metrics") {
		cfg.Metrics.Enabled = ctx.GlobalBool("metrics")
	}
	if ctx.GlobalIsSet("metrics.addr") {
		cfg.Metrics.Addr = ctx.GlobalString("metrics.addr")
	}
	if ctx.GlobalIsSet("metrics.port") {
		cfg.Metrics.Port = ctx.GlobalInt("metrics.port")
	}

	if ctx.GlobalIsSet("network") {
		cfg.Network.Name = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("genesis") {
		cfg.Network.Genesis = resolvePath(ctx.GlobalString("genesis"))
	}
	if ctx.GlobalIsSet("fakenet") {
		cfg.Network.FakeNet = ctx.GlobalString("fakenet")
		cfg.Network.Name = "fake"
	}

	if ctx.GlobalIsSet("cache") {
		cfg.Store.CacheMB = ctx.GlobalInt("cache")
	}
	if ctx.GlobalIsSet("handles") {
		cfg.Store.Handles = ctx.GlobalInt("handles")
	}
	if ctx.GlobalIsSet("datadir.state") {
		cfg.Store.Path = resolvePath(ctx.GlobalString("datadir.state"))
	}
	if ctx.GlobalIsSet("parallelism") {
		cfg.Execution.Parallelism = ctx.GlobalInt("parallelism")
	}
	if ctx.GlobalIsSet("verify-conservation") {
		cfg.Execution.VerifyConservation = ctx.GlobalBool("verify-conservation")
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if p == "" {
		return p
	}
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
