package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "isobustpd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForUnsetEngineFields(t *testing.T) {
	path := writeConfig(t, `
[bus]
interface = "can0"
self_address = 128
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bus.Interface != "can0" {
		t.Fatalf("unexpected interface: %q", cfg.Bus.Interface)
	}
	if cfg.UpdateMs != 10 {
		t.Fatalf("expected default update_ms of 10, got %d", cfg.UpdateMs)
	}
	eng, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if eng.MaxSessions != 4 {
		t.Fatalf("expected default MaxSessions of 4, got %d", eng.MaxSessions)
	}
}

func TestLoadAppliesEngineOverrides(t *testing.T) {
	path := writeConfig(t, `
[bus]
interface = "can0"
self_address = 128

[engine]
max_sessions = 8
frames_per_update = 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	eng, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if eng.MaxSessions != 8 {
		t.Fatalf("expected MaxSessions 8, got %d", eng.MaxSessions)
	}
	if eng.FramesPerUpdate != 3 {
		t.Fatalf("expected FramesPerUpdate 3, got %d", eng.FramesPerUpdate)
	}
	if eng.MinBamInterFrameMs != 50 {
		t.Fatalf("expected MinBamInterFrameMs to keep its default, got %d", eng.MinBamInterFrameMs)
	}
}

func TestLoadRejectsMissingInterface(t *testing.T) {
	path := writeConfig(t, `
[bus]
self_address = 128
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing bus.interface")
	}
}

func TestLoadRejectsOutOfRangeSelfAddress(t *testing.T) {
	path := writeConfig(t, `
[bus]
interface = "can0"
self_address = 512
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an out-of-range self_address")
	}
}

func TestValidateRejectsBadEngineOverride(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bus.Interface = "can0"
	cfg.Engine.ClearToSendPacketCountMax = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an out-of-range engine override")
	}
}
