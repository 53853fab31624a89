// Package config loads the run configuration from YAML.
//
// Example:
//
//	commands: commands.txt
//	output: output.txt
//	audit_db: audit.db
//	metrics: rwkv.prom
//	normalize_names: false
//	quiet: false
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Commands is the command file to run.
	Commands string `yaml:"commands"`
	// Output is the audit log, truncated at the start of each run.
	Output string `yaml:"output"`
	// AuditDB, if set, is a SQLite file that also receives every audit line.
	AuditDB string `yaml:"audit_db"`
	// Metrics, if set, is where Prometheus metrics are written after the run.
	Metrics string `yaml:"metrics"`
	// NormalizeNames applies Unicode NFC to names before hashing.
	NormalizeNames bool `yaml:"normalize_names"`
	// Quiet suppresses result lines on stdout.
	Quiet bool `yaml:"quiet"`
}

func Default() Config {
	return Config{
		Commands: "commands.txt",
		Output:   "output.txt",
	}
}

// Load reads path on top of Default(). Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Commands == "" {
		return errors.New("commands path must not be empty")
	}
	if c.Output == "" {
		return errors.New("output path must not be empty")
	}
	if c.AuditDB != "" && c.AuditDB == c.Output {
		return fmt.Errorf("audit_db and output both point at %s", c.Output)
	}
	return nil
}
