package integration

import (
	"strings"
	"testing"
)

// TestDefaultPreset_hasReasonableDefaults guards the baseline: a change here
// changes every node that does not pick a preset.
func TestDefaultPreset_hasReasonableDefaults(t *testing.T) {
	cfg := DefaultPreset()

	if cfg.Name != "default" {
		t.Fatalf("Name = %q, want 'default'", cfg.Name)
	}
	if cfg.CacheMB <= 0 || cfg.CacheMB > 10000 {
		t.Fatalf("CacheMB = %d, want value between 1 and 10000", cfg.CacheMB)
	}
	if cfg.Handles <= 0 {
		t.Fatalf("Handles = %d, want positive", cfg.Handles)
	}
	// the full credit re-sum is a development aid only
	if cfg.VerifyConservation {
		t.Fatal("VerifyConservation should be off by default")
	}
}

func TestLitePreset_overridesDefaults(t *testing.T) {
	def, lite := DefaultPreset(), LitePreset()

	if lite.Name != "lite" {
		t.Fatalf("Name = %q, want 'lite'", lite.Name)
	}
	if lite.CacheMB >= def.CacheMB {
		t.Fatalf("CacheMB = %d, want less than default %d", lite.CacheMB, def.CacheMB)
	}
	if !lite.VerifyConservation || !lite.EnableMetrics {
		t.Fatal("lite preset should verify conservation and serve metrics")
	}
}

func TestValidatorPreset_scalesUp(t *testing.T) {
	def, v := DefaultPreset(), ValidatorPreset()

	if v.CacheMB <= def.CacheMB || v.Handles <= def.Handles {
		t.Fatalf("validator preset %+v should exceed default %+v", v, def)
	}
	if v.VerifyConservation {
		t.Fatal("validator preset must not re-sum credits every block")
	}
}

func TestPresets_haveDistinctValues(t *testing.T) {
	seen := map[int]string{}
	for _, name := range PresetNames() {
		cfg, err := GetPresetByName(name)
		if err != nil {
			t.Fatalf("GetPresetByName(%q): %v", name, err)
		}
		if cfg.Name != name {
			t.Fatalf("preset %q reports Name %q", name, cfg.Name)
		}
		if other, dup := seen[cfg.CacheMB]; dup {
			t.Fatalf("presets %q and %q share CacheMB %d", other, name, cfg.CacheMB)
		}
		seen[cfg.CacheMB] = name
	}
}

func TestGetPresetByName_invalidPreset(t *testing.T) {
	_, err := GetPresetByName("turbo")
	if err == nil {
		t.Fatal("expected an error for an unknown preset")
	}
	if !strings.Contains(err.Error(), "turbo") {
		t.Fatalf("error %q should name the preset", err)
	}
}

func TestApplyPreset_partialOverride(t *testing.T) {
	target := ValidatorPreset()
	ApplyPreset(&target, PresetConfig{CacheMB: 100, EnableMetrics: false})

	if target.CacheMB != 100 {
		t.Fatalf("CacheMB = %d, want 100", target.CacheMB)
	}
	if target.Handles != ValidatorPreset().Handles {
		t.Fatalf("Handles = %d, zero override should keep %d", target.Handles, ValidatorPreset().Handles)
	}
	if target.EnableMetrics {
		t.Fatal("switches are always taken from the preset")
	}
	if target.Name != "validator" {
		t.Fatalf("Name = %q, empty override should keep it", target.Name)
	}
}

func TestPresetDBConfig(t *testing.T) {
	db := ArchivePreset().DBConfig()
	if db.Cache != 8192 || db.Handles != 2048 {
		t.Fatalf("DBConfig = %+v", db)
	}
}
