package tp

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidateRejectsZeroValue(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero-value Config should not validate")
	}
}

func TestConfigValidateRejectsOversizedCTSWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClearToSendPacketCountMax = 256
	if err := cfg.Validate(); err == nil {
		t.Fatal("ClearToSendPacketCountMax above 255 should not validate")
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	if _, err := NewEngine(Config{}, nil, nil); err == nil {
		t.Fatal("NewEngine with a zero-value Config should return an error")
	}
}
