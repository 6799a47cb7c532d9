// Package config loads compiler settings from a YAML file, a .env file and
// FLATGRAPH_* environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is named.
const DefaultFile = "flatgraph.yaml"

type Config struct {
	Schema    []string `yaml:"schema"`
	Documents string   `yaml:"documents"`
	Exclude   []string `yaml:"exclude"`
	Output    string   `yaml:"output"`

	MergeInFieldsFromFragmentSpreads bool `yaml:"mergeInFieldsFromFragmentSpreads"`
	InlineRedundantTypeConditions    bool `yaml:"inlineRedundantTypeConditions"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

func Default() *Config {
	return &Config{
		Schema:                           []string{"schema.graphql"},
		Documents:                        ".",
		MergeInFieldsFromFragmentSpreads: true,
		InlineRedundantTypeConditions:    true,
		Log:                              LogConfig{Level: "info"},
		Telemetry:                        TelemetryConfig{Service: "flatgraph"},
	}
}

// Load returns the defaults overlaid with the file at path, then with the
// environment. An empty path skips the file. Variables from envFiles are
// added to the environment first; missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FLATGRAPH_SCHEMA"); ok {
		c.Schema = splitList(v)
	}
	if v, ok := lookup("FLATGRAPH_DOCUMENTS"); ok {
		c.Documents = v
	}
	if v, ok := lookup("FLATGRAPH_EXCLUDE"); ok {
		c.Exclude = splitList(v)
	}
	if v, ok := lookup("FLATGRAPH_OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := lookup("FLATGRAPH_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("FLATGRAPH_OTEL_ENDPOINT"); ok {
		c.Telemetry.Endpoint = v
	}
	if v, ok := lookup("FLATGRAPH_OTEL_SERVICE"); ok {
		c.Telemetry.Service = v
	}
	for name, dst := range map[string]*bool{
		"FLATGRAPH_MERGE_FRAGMENTS":                  &c.MergeInFieldsFromFragmentSpreads,
		"FLATGRAPH_INLINE_REDUNDANT_TYPE_CONDITIONS": &c.InlineRedundantTypeConditions,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
