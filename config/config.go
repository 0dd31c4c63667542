// Package config holds the machine configuration: memory layout, hart
// count, cycle budget, caches and the processing element.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sarchlab/akita/v4/sim"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/timing/cache"
)

// Config describes a simulated machine.
type Config struct {
	// RAMBase is the address of the first byte of RAM and the reset pc.
	// Default: 0x8000_0000.
	RAMBase uint64 `json:"ram_base" yaml:"ram_base"`

	// RAMSize is the size of RAM in bytes. Default: 128 MiB.
	RAMSize uint64 `json:"ram_size" yaml:"ram_size"`

	// StrictAlignment makes misaligned loads and stores fault.
	StrictAlignment bool `json:"strict_alignment" yaml:"strict_alignment"`

	// MaxCycles bounds every hart. Zero means no bound.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	// Harts is the number of harts sharing the bus and the PE. Default: 1.
	Harts int `json:"harts" yaml:"harts"`

	PE     PEConfig    `json:"pe" yaml:"pe"`
	ICache CacheConfig `json:"icache" yaml:"icache"`
	DCache CacheConfig `json:"dcache" yaml:"dcache"`
}

// PEConfig configures the processing element.
type PEConfig struct {
	// Prefetch is how many leading elements pe.stream loads eagerly.
	// Default: 1.
	Prefetch int `json:"prefetch" yaml:"prefetch"`

	// FreqGHz is the PE clock. Default: 1 GHz.
	FreqGHz float64 `json:"freq_ghz" yaml:"freq_ghz"`
}

// Freq returns the PE clock as an akita frequency.
func (c PEConfig) Freq() sim.Freq {
	return sim.Freq(c.FreqGHz) * sim.GHz
}

// CacheConfig enables and sizes one L1 cache model.
type CacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	cache.Config `yaml:",inline"`
}

// DefaultConfig returns the default machine: one hart, 128 MiB of RAM at
// 0x8000_0000 and no cache models.
func DefaultConfig() *Config {
	return &Config{
		RAMBase: emu.DefaultRAMBase,
		RAMSize: emu.DefaultRAMSize,
		Harts:   1,
		PE: PEConfig{
			Prefetch: 1,
			FreqGHz:  1,
		},
		ICache: CacheConfig{Config: cache.DefaultL1IConfig()},
		DCache: CacheConfig{Config: cache.DefaultL1DConfig()},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads a Config from a JSON file, or a YAML file when path ends
// in .yaml or .yml. Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes the Config to path in the format its extension selects.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var err error

	if c.RAMSize == 0 {
		err = multierror.Append(err, errors.New("ram_size must be > 0"))
	}
	if c.RAMBase+c.RAMSize < c.RAMBase {
		err = multierror.Append(err, errors.New("ram_base + ram_size overflows the address space"))
	}
	if c.RAMBase%4 != 0 {
		err = multierror.Append(err, errors.New("ram_base must be 4-byte aligned"))
	}
	if c.Harts < 1 {
		err = multierror.Append(err, errors.New("harts must be >= 1"))
	}
	if c.PE.Prefetch < 0 {
		err = multierror.Append(err, errors.New("pe.prefetch must be >= 0"))
	}
	if c.PE.FreqGHz <= 0 {
		err = multierror.Append(err, errors.New("pe.freq_ghz must be > 0"))
	}
	if cacheErr := c.ICache.validate("icache"); cacheErr != nil {
		err = multierror.Append(err, cacheErr)
	}
	if cacheErr := c.DCache.validate("dcache"); cacheErr != nil {
		err = multierror.Append(err, cacheErr)
	}

	return err
}

func (c CacheConfig) validate(name string) error {
	if !c.Enabled {
		return nil
	}

	var err error
	if c.Size <= 0 {
		err = multierror.Append(err, fmt.Errorf("%s.size must be > 0", name))
	}
	if c.Associativity <= 0 {
		err = multierror.Append(err, fmt.Errorf("%s.associativity must be > 0", name))
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		err = multierror.Append(err, fmt.Errorf("%s.block_size must be a power of two", name))
	}
	if err == nil && c.Size%(c.Associativity*c.BlockSize) != 0 {
		err = multierror.Append(err,
			fmt.Errorf("%s.size must be a multiple of associativity * block_size", name))
	}

	return err
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
