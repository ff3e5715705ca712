// Package fileconfig loads simulator deployment configuration from YAML
// files. The file shape mirrors the library's Config structs so a loaded
// file maps directly onto sensorlog.Config plus fleet and generator
// settings.
package fileconfig

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sensorgrid/sensorlog"
	"github.com/sensorgrid/sensorlog/internal/simulate"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s"
// or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// File is the top-level YAML document.
type File struct {
	Database  Database  `yaml:"database"`
	Fleet     Fleet     `yaml:"fleet"`
	Generator Generator `yaml:"generator"`
	Monitor   Monitor   `yaml:"monitor"`
	Backup    Backup    `yaml:"backup"`
}

// Database configures the store.
type Database struct {
	Path             string   `yaml:"path"`
	PreserveExisting bool     `yaml:"preserve_existing"`
	BatchSize        int      `yaml:"batch_size"`
	BatchTimeout     Duration `yaml:"batch_timeout"`
	CheckpointEvery  int      `yaml:"checkpoint_every"`
}

// Fleet configures sensor identity generation.
type Fleet struct {
	NumSensors    int     `yaml:"num_sensors"`
	Seed          int64   `yaml:"seed"`
	BaseLatitude  float64 `yaml:"base_latitude"`
	BaseLongitude float64 `yaml:"base_longitude"`
	GeoSpread     float64 `yaml:"geo_spread"`
}

// Generator configures reading generation.
type Generator struct {
	Interval    Duration `yaml:"interval"`
	AnomalyRate float64  `yaml:"anomaly_rate"`
	Seed        int64    `yaml:"seed"`
}

// Monitor configures the optional HTTP monitor.
type Monitor struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Backup configures the optional backup manager.
type Backup struct {
	Enabled        bool     `yaml:"enabled"`
	Directory      string   `yaml:"directory"`
	Interval       Duration `yaml:"interval"`
	Compression    bool     `yaml:"compression"`
	RetentionCount int      `yaml:"retention_count"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML document. Unknown keys are rejected so typos in
// deployment files fail loudly rather than silently using defaults.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.Database.Path == "" {
		return nil, fmt.Errorf("parse config: database.path is required")
	}
	return &f, nil
}

// StoreConfig maps the database section onto a sensorlog.Config. Zero
// values fall through to the library defaults.
func (f *File) StoreConfig() sensorlog.Config {
	cfg := sensorlog.DefaultConfig()
	cfg.PreserveExisting = f.Database.PreserveExisting
	if f.Database.BatchSize > 0 {
		cfg.Batch.Size = f.Database.BatchSize
	}
	if f.Database.BatchTimeout > 0 {
		cfg.Batch.Timeout = f.Database.BatchTimeout.Std()
	}
	if f.Database.CheckpointEvery > 0 {
		cfg.Checkpoint.EveryNFlushes = f.Database.CheckpointEvery
	}
	return cfg
}

// FleetConfig maps the fleet section onto simulate.FleetConfig.
func (f *File) FleetConfig() simulate.FleetConfig {
	cfg := simulate.DefaultFleetConfig()
	if f.Fleet.NumSensors > 0 {
		cfg.NumSensors = f.Fleet.NumSensors
	}
	cfg.Seed = f.Fleet.Seed
	if f.Fleet.BaseLatitude != 0 || f.Fleet.BaseLongitude != 0 {
		cfg.BaseLatitude = f.Fleet.BaseLatitude
		cfg.BaseLongitude = f.Fleet.BaseLongitude
	}
	if f.Fleet.GeoSpread > 0 {
		cfg.GeoSpreadDegrees = f.Fleet.GeoSpread
	}
	return cfg
}

// GeneratorConfig maps the generator section onto simulate.GeneratorConfig.
func (f *File) GeneratorConfig() simulate.GeneratorConfig {
	cfg := simulate.DefaultGeneratorConfig()
	if f.Generator.AnomalyRate > 0 {
		cfg.AnomalyRate = f.Generator.AnomalyRate
	}
	cfg.Seed = f.Generator.Seed
	return cfg
}
