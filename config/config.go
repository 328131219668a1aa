package config

import (
	"encoding/json"
	"os"

	db "capboot/debug"
	"capboot/util/crash"
)

const (
	CAPBOOTCONFIG = "CAPBOOTCONFIG"
)

type BootConfig struct {
	Name      string `json:"name,omitempty"`
	Image     string `json:"image,omitempty"`
	Debug     string `json:"debug,omitempty"`
	Fail      string `json:"fail,omitempty"`
	TraceHost string `json:"tracehost,omitempty"`
}

func NewBootConfig() *BootConfig {
	// Load Debug & Fail from the environment for convenience.
	return &BootConfig{
		Name:  "hello-2",
		Debug: os.Getenv(db.CAPBOOTDEBUG),
		Fail:  os.Getenv(crash.CAPBOOTFAIL),
	}
}

func (bc *BootConfig) Marshal() string {
	b, err := json.Marshal(bc)
	if err != nil {
		db.DFatalf("Error marshal bootconfig: %v", err)
	}
	return string(b)
}

// GetBootConfig overlays CAPBOOTCONFIG, if set, on the defaults.
func GetBootConfig() (*BootConfig, error) {
	bc := NewBootConfig()
	s := os.Getenv(CAPBOOTCONFIG)
	if s == "" {
		return bc, nil
	}
	if err := json.Unmarshal([]byte(s), bc); err != nil {
		return nil, err
	}
	return bc, nil
}

// SetBootConfig exports bc to processes this one starts.
func SetBootConfig(bc *BootConfig) {
	os.Setenv(CAPBOOTCONFIG, bc.Marshal())
}
