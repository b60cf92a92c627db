// Package integration provides node presets. A preset bundles the store
// cache, the file handle budget and the observability switches into a named
// profile so operators pick one name instead of tuning each knob:
//
//	preset := integration.LitePreset()      // development and CI
//	preset := integration.ValidatorPreset() // masternodes in the active quorum
//	preset := integration.ArchivePreset()   // explorers serving proofs
//
// The launcher applies the preset first; the config file and CLI flags
// override it.
package integration

import (
	"fmt"
	"sort"

	"github.com/dashpay/platform-sub039/state"
)

// PresetConfig captures what differs between profiles. Network and chain
// settings are never part of a preset.
type PresetConfig struct {
	Name    string
	CacheMB int // LevelDB block cache
	Handles int // LevelDB open file budget
	// EnableMetrics serves Prometheus metrics.
	EnableMetrics bool
	// VerifyConservation re-sums all credits after every block. It reads the
	// whole balance tree, so it is meant for development only.
	VerifyConservation bool
	// Parallelism bounds structure pre-validation; 0 means GOMAXPROCS.
	Parallelism int
}

// DBConfig converts the preset to store settings.
func (p PresetConfig) DBConfig() state.DBConfig {
	return state.DBConfig{Cache: p.CacheMB, Handles: p.Handles}
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:    "default",
		CacheMB: 512,
		Handles: 256,
	}
}

// LitePreset fits laptops and CI. It turns on the conservation check and
// metrics to catch accounting bugs early.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.CacheMB = 64
	cfg.Handles = 64
	cfg.EnableMetrics = true
	cfg.VerifyConservation = true
	cfg.Parallelism = 2
	return cfg
}

// ValidatorPreset is for masternodes expected to keep up with block time.
func ValidatorPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "validator"
	cfg.CacheMB = 2048
	cfg.Handles = 1024
	cfg.EnableMetrics = true
	return cfg
}

// ArchivePreset favours read throughput for Query and proof serving.
func ArchivePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "archive"
	cfg.CacheMB = 8192
	cfg.Handles = 2048
	cfg.EnableMetrics = true
	return cfg
}

var presets = map[string]func() PresetConfig{
	"default":   DefaultPreset,
	"lite":      LitePreset,
	"validator": ValidatorPreset,
	"archive":   ArchivePreset,
}

// PresetNames lists the known presets in order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPresetByName backs the --preset flag.
func GetPresetByName(name string) (PresetConfig, error) {
	preset, ok := presets[name]
	if !ok {
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: %v)", name, PresetNames())
	}
	return preset(), nil
}

// ApplyPreset merges preset into target. Zero sizes in preset keep the
// target's values; switches are always taken from preset.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	if preset.Parallelism > 0 {
		target.Parallelism = preset.Parallelism
	}
	target.EnableMetrics = preset.EnableMetrics
	target.VerifyConservation = preset.VerifyConservation
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
