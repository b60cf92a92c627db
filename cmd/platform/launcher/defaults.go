package launcher

import "github.com/dashpay/platform-sub039/integration"

// Defaults bundles the baseline values the launcher starts from before the
// preset, the config file and flags override them.
type Defaults struct {
	Node      NodeDefaults
	Network   NetworkDefaults
	Storage   StorageDefaults
	Metrics   MetricsDefaults
	Logging   LoggingDefaults
	Execution ExecutionDefaults
}

type NodeDefaults struct {
	DataDir string // root of the state database and node metadata
	Name    string // shown in logs to tell instances apart
}

type NetworkDefaults struct {
	Name string // rules preset: main, test or fake
	// FakeNet is "<identities>/<masternodes>" for generated genesis files.
	FakeNet string
}

type StorageDefaults struct {
	Preset  string // integration preset applied before file and flags
	CacheMB int
	Handles int
}

type MetricsDefaults struct {
	Enable   bool
	HTTPAddr string
	HTTPPort int
}

type LoggingDefaults struct {
	Verbosity int    // logrus level: 0=panic .. 5=debug, 6=trace
	Format    string // text or json
	Color     bool
}

type ExecutionDefaults struct {
	Parallelism        int
	VerifyConservation bool
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	preset := integration.DefaultPreset()
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.platform",
			Name:    "platform",
		},
		Network: NetworkDefaults{
			Name:    "fake",
			FakeNet: "",
		},
		Storage: StorageDefaults{
			Preset:  preset.Name,
			CacheMB: preset.CacheMB,
			Handles: preset.Handles,
		},
		Metrics: MetricsDefaults{
			Enable:   preset.EnableMetrics,
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
		},
		Logging: LoggingDefaults{
			Verbosity: 4,
			Format:    "text",
		},
		Execution: ExecutionDefaults{
			Parallelism:        preset.Parallelism,
			VerifyConservation: preset.VerifyConservation,
		},
	}
}
