package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/openisobus/isobustpd/tp"
)

// BusConfig describes the node's address and which SocketCAN interface
// to bind.
type BusConfig struct {
	Interface  string `toml:"interface"`
	SelfAddress int   `toml:"self_address"`
}

// EngineConfig mirrors tp.Config for TOML decoding; zero fields fall
// back to tp.DefaultConfig() values when Config.EngineConfig resolves
// them.
type EngineConfig struct {
	MaxSessions               int `toml:"max_sessions"`
	FramesPerUpdate           int `toml:"frames_per_update"`
	MinBamInterFrameMs        int `toml:"min_bam_inter_frame_ms"`
	ClearToSendPacketCountMax int `toml:"clear_to_send_packet_count_max"`
}

// Config is the top-level daemon configuration loaded from a TOML file.
type Config struct {
	LogLevel   string       `toml:"log_level"`
	UpdateMs   int          `toml:"update_ms"`
	Bus        BusConfig    `toml:"bus"`
	Engine     EngineConfig `toml:"engine"`
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		UpdateMs: 10,
		Bus: BusConfig{
			Interface:   "can0",
			SelfAddress: 0x80,
		},
	}
}

// Load reads and parses a TOML configuration file, applying defaults
// for anything left unset, then validates the result.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values a TOML decode can't enforce on its own.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Bus.Interface) == "" {
		return fmt.Errorf("config: bus.interface is required")
	}
	if cfg.Bus.SelfAddress < 0 || cfg.Bus.SelfAddress > 0xFD {
		return fmt.Errorf("config: bus.self_address must be in [0, 0xFD], got %d", cfg.Bus.SelfAddress)
	}
	if cfg.UpdateMs <= 0 {
		return fmt.Errorf("config: update_ms must be positive, got %d", cfg.UpdateMs)
	}
	if _, err := cfg.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// UpdateInterval returns how often the engine's Update should tick.
func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateMs) * time.Millisecond
}

// EngineConfig resolves this file's engine settings against
// tp.DefaultConfig, so a mostly-empty [engine] table still produces a
// valid tp.Config.
func (c Config) EngineConfig() (tp.Config, error) {
	out := tp.DefaultConfig()
	if c.Engine.MaxSessions != 0 {
		out.MaxSessions = c.Engine.MaxSessions
	}
	if c.Engine.FramesPerUpdate != 0 {
		out.FramesPerUpdate = c.Engine.FramesPerUpdate
	}
	if c.Engine.MinBamInterFrameMs != 0 {
		out.MinBamInterFrameMs = c.Engine.MinBamInterFrameMs
	}
	if c.Engine.ClearToSendPacketCountMax != 0 {
		out.ClearToSendPacketCountMax = c.Engine.ClearToSendPacketCountMax
	}
	if err := out.Validate(); err != nil {
		return tp.Config{}, fmt.Errorf("config: invalid [engine] section: %w", err)
	}
	return out, nil
}
