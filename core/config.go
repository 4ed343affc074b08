package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ThreadPoolConfig is the file form of a ThreadPoolBuilder.
//
//	name: shaderc
//	workers: 8
//	history_capacity: 256
type ThreadPoolConfig struct {
	// Name prefixes the worker thread names. Empty selects "threadpool{id}".
	Name string `yaml:"name"`

	// Workers is the number of worker threads. Zero selects one per logical CPU.
	Workers int `yaml:"workers"`

	// HistoryCapacity bounds the execution history. Zero selects the default.
	HistoryCapacity int `yaml:"history_capacity"`
}

// Validate reports negative sizes.
func (c ThreadPoolConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: history_capacity must not be negative, got %d", ErrInvalidConfig, c.HistoryCapacity)
	}
	return nil
}

// ParseThreadPoolConfig decodes and validates a YAML document. Unknown keys
// are rejected; an empty document yields the zero config.
func ParseThreadPoolConfig(data []byte) (ThreadPoolConfig, error) {
	var cfg ThreadPoolConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return ThreadPoolConfig{}, fmt.Errorf("failed to unmarshal thread pool config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ThreadPoolConfig{}, err
	}
	return cfg, nil
}

// LoadThreadPoolConfig reads and parses the YAML file at path.
func LoadThreadPoolConfig(path string) (ThreadPoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ThreadPoolConfig{}, fmt.Errorf("failed to read thread pool config %s: %w", path, err)
	}
	return ParseThreadPoolConfig(data)
}
