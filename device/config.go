package device

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the hardware parameters of the modeled core. Defaults
// match the shipped RTL configuration.
type Config struct {
	// Rows is the PE array row count. Default: 16.
	Rows int `json:"rows"`

	// Cols is the PE array column count. Default: 16.
	Cols int `json:"cols"`

	// WeightBufferBytes is the weight buffer capacity. Default: 256 KiB.
	WeightBufferBytes int `json:"weight_buffer_bytes"`

	// ActHalfBytes is the size of each activation buffer half (the buffer
	// is double-buffered). Default: 128 KiB.
	ActHalfBytes int `json:"act_half_bytes"`

	// InstEntries is the instruction buffer depth in 64-bit words.
	// Default: 1024.
	InstEntries int `json:"inst_entries"`

	// ExtMemBytes is the modeled external memory size. Default: 16 MiB,
	// the full 24-bit DMA length address space.
	ExtMemBytes int `json:"ext_mem_bytes"`

	// BeatBytes is the bus beat width in bytes. Default: 8.
	BeatBytes int `json:"beat_bytes"`

	// MaxBurstLen is the maximum beats per DMA burst. Default: 16.
	MaxBurstLen int `json:"max_burst_len"`

	// ActivationLatency is the activation unit pipeline depth in cycles.
	// Default: 1.
	ActivationLatency int `json:"activation_latency"`

	// PoolLatency is the pooling unit pipeline depth. Default: 1.
	PoolLatency int `json:"pool_latency"`

	// EltwiseLatency is the element-wise unit pipeline depth. Default: 1.
	EltwiseLatency int `json:"eltwise_latency"`

	// QuantLatency is the quantizer pipeline depth. Default: 1.
	QuantLatency int `json:"quant_latency"`
}

// DefaultConfig returns a Config with the shipped RTL parameters.
func DefaultConfig() *Config {
	return &Config{
		Rows:              16,
		Cols:              16,
		WeightBufferBytes: 256 * 1024,
		ActHalfBytes:      128 * 1024,
		InstEntries:       1024,
		ExtMemBytes:       16 * 1024 * 1024,
		BeatBytes:         8,
		MaxBurstLen:       16,
		ActivationLatency: 1,
		PoolLatency:       1,
		EltwiseLatency:    1,
		QuantLatency:      1,
	}
}

// LoadConfig loads a Config from a JSON file. Missing fields keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize device config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write device config file: %w", err)
	}

	return nil
}

// Validate checks that the parameters describe a buildable core.
func (c *Config) Validate() error {
	if c.Rows < 1 || c.Rows > 255 {
		return fmt.Errorf("rows must be in 1..255")
	}
	if c.Cols < 1 || c.Cols > 255 {
		return fmt.Errorf("cols must be in 1..255")
	}
	if c.WeightBufferBytes < c.Rows*c.Cols {
		return fmt.Errorf("weight_buffer_bytes must hold at least one %dx%d tile",
			c.Rows, c.Cols)
	}
	if c.ActHalfBytes < c.Rows {
		return fmt.Errorf("act_half_bytes must hold at least one activation vector")
	}
	if c.InstEntries < 1 {
		return fmt.Errorf("inst_entries must be > 0")
	}
	if c.ExtMemBytes < 1 {
		return fmt.Errorf("ext_mem_bytes must be > 0")
	}
	if c.BeatBytes < 1 {
		return fmt.Errorf("beat_bytes must be > 0")
	}
	if c.MaxBurstLen < 1 || c.MaxBurstLen > 256 {
		return fmt.Errorf("max_burst_len must be in 1..256")
	}
	if c.ActivationLatency < 1 || c.PoolLatency < 1 ||
		c.EltwiseLatency < 1 || c.QuantLatency < 1 {
		return fmt.Errorf("pipeline latencies must be > 0")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
