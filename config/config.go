package config

import (
	"encoding/json"
	"fmt"
	"os"

	units "github.com/docker/go-units"
	coretypes "github.com/projecteru2/core/types"

	"github.com/anvilos/ingot/types"
)

const (
	// UsablePercent caps the sum of allocated partitions at 85% of device
	// capacity; the remainder is over-provisioning headroom. Fixed on
	// purpose: the plan arithmetic is part of the core, not tunable.
	UsablePercent = 85

	mib = 1 << 20
)

// Config holds global ingot configuration.
type Config struct {
	// EFISizeMiB is the fixed EFI system partition size.
	EFISizeMiB int64 `json:"efi_size_mib"`
	// SwapSizeMiB is the fixed swap partition size.
	SwapSizeMiB int64 `json:"swap_size_mib"`
	// RootLVSize is the fixed root logical volume size as a human size
	// string ("64GiB"); home takes all remaining volume-group capacity.
	RootLVSize string `json:"root_lv_size"`

	// VGName is the LVM volume group name.
	VGName string `json:"vg_name"`
	// MapperName is the dm-crypt mapping name for the opened main partition.
	MapperName string `json:"mapper_name"`
	// StagingRoot is where the target hierarchy is assembled.
	StagingRoot string `json:"staging_root"`
	// RunDir holds per-device lock files.
	RunDir string `json:"run_dir"`

	// Target system identity.
	Hostname string `json:"hostname"`
	Timezone string `json:"timezone"`
	Locale   string `json:"locale"`
	Keymap   string `json:"keymap"`

	// Hardware requirements checked by the validator.
	RequiredCPUVendor types.CPUVendor `json:"required_cpu_vendor"`
	RequiredGPUVendor types.GPUVendor `json:"required_gpu_vendor"`

	// GateTimeoutSeconds bounds each confirmation gate; 0 waits forever.
	GateTimeoutSeconds int `json:"gate_timeout_seconds"`

	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		EFISizeMiB:        1024,
		SwapSizeMiB:       32768,
		RootLVSize:        "64GiB",
		VGName:            "vg0",
		MapperName:        "cryptlvm",
		StagingRoot:       "/mnt/ingot",
		RunDir:            "/run/ingot",
		Hostname:          "ingot",
		Timezone:          "UTC",
		Locale:            "en_US.UTF-8",
		Keymap:            "us",
		RequiredCPUVendor: types.CPUVendorIntel,
		RequiredGPUVendor: types.GPUVendorNvidia,
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return conf, nil
}

// RootLVSizeMiB parses RootLVSize into whole MiB.
func (c *Config) RootLVSizeMiB() (int64, error) {
	b, err := units.RAMInBytes(c.RootLVSize)
	if err != nil {
		return 0, fmt.Errorf("invalid root_lv_size %q: %w", c.RootLVSize, err)
	}
	if b < mib {
		return 0, fmt.Errorf("root_lv_size %q below 1MiB", c.RootLVSize)
	}
	return b / mib, nil
}

// Validate checks config invariants that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if c.EFISizeMiB <= 0 || c.SwapSizeMiB <= 0 {
		return fmt.Errorf("efi_size_mib and swap_size_mib must be positive")
	}
	if c.VGName == "" || c.MapperName == "" {
		return fmt.Errorf("vg_name and mapper_name must be set")
	}
	if c.StagingRoot == "" {
		return fmt.Errorf("staging_root must be set")
	}
	if _, err := c.RootLVSizeMiB(); err != nil {
		return err
	}
	return nil
}
