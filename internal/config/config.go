// Package config loads and saves the user configuration (config.yaml).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir = "DAYPLAN_CONFIG_DIR"
	FileName     = "config.yaml"
)

// Remote kinds.
const (
	RemoteMemory = "memory"
	RemoteDir    = "dir"
	RemoteNATS   = "nats"
)

type Config struct {
	DataDir     string       `yaml:"dataDir,omitempty" json:"dataDir,omitempty"`
	LogLevel    string       `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	Remote      RemoteConfig `yaml:"remote" json:"remote"`
	Sync        SyncConfig   `yaml:"sync" json:"sync"`
	MetricsAddr string       `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`
}

type RemoteConfig struct {
	Kind    string `yaml:"kind" json:"kind"`
	Dir     string `yaml:"dir,omitempty" json:"dir,omitempty"`
	NATSURL string `yaml:"natsURL,omitempty" json:"natsURL,omitempty"`
	Bucket  string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
}

type SyncConfig struct {
	Interval           Duration `yaml:"interval" json:"interval"`
	SaveTimeout        Duration `yaml:"saveTimeout" json:"saveTimeout"`
	MaxRetries         int      `yaml:"maxRetries" json:"maxRetries"`
	QueueSize          int      `yaml:"queueSize" json:"queueSize"`
	TombstoneRetention Duration `yaml:"tombstoneRetention" json:"tombstoneRetention"`
}

// Duration reads and writes as a Go duration string ("90s", "5m").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(time.Duration(d).String()) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file exists.
func Default(dir string) Config {
	return Config{
		DataDir:  filepath.Join(dir, "data"),
		LogLevel: "warn",
		Remote: RemoteConfig{
			Kind:   RemoteDir,
			Dir:    filepath.Join(dir, "remote"),
			Bucket: "dayplan",
		},
		Sync: SyncConfig{
			Interval:           Duration(5 * time.Minute),
			SaveTimeout:        Duration(10 * time.Second),
			MaxRetries:         3,
			QueueSize:          256,
			TombstoneRetention: Duration(30 * 24 * time.Hour),
		},
	}
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.dayplan).
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dayplan"), nil
}

func Path(dir string) string { return filepath.Join(dir, FileName) }

// Load reads dir/config.yaml. A missing file yields Default(dir); fields the
// file leaves out keep their defaults.
func Load(dir string) (Config, error) {
	cfg := Default(dir)
	b, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", Path(dir), err)
	}
	cfg.fill(dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fill restores defaults for values explicitly blanked in the file.
func (c *Config) fill(dir string) {
	def := Default(dir)
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if strings.TrimSpace(c.Remote.Kind) == "" {
		c.Remote.Kind = def.Remote.Kind
	}
	if c.Remote.Kind == RemoteDir && strings.TrimSpace(c.Remote.Dir) == "" {
		c.Remote.Dir = def.Remote.Dir
	}
	if strings.TrimSpace(c.Remote.Bucket) == "" {
		c.Remote.Bucket = def.Remote.Bucket
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = def.Sync.Interval
	}
	if c.Sync.SaveTimeout <= 0 {
		c.Sync.SaveTimeout = def.Sync.SaveTimeout
	}
	if c.Sync.QueueSize <= 0 {
		c.Sync.QueueSize = def.Sync.QueueSize
	}
	if c.Sync.TombstoneRetention <= 0 {
		c.Sync.TombstoneRetention = def.Sync.TombstoneRetention
	}
}

func (c Config) Validate() error {
	switch c.Remote.Kind {
	case RemoteMemory, RemoteDir:
	case RemoteNATS:
		if strings.TrimSpace(c.Remote.NATSURL) == "" {
			return errors.New("remote.natsURL is required for the nats remote")
		}
	default:
		return fmt.Errorf("unknown remote kind: %q (want memory, dir or nats)", c.Remote.Kind)
	}
	if c.Sync.MaxRetries < 0 {
		return errors.New("sync.maxRetries must not be negative")
	}
	return nil
}

// Save writes cfg to dir/config.yaml atomically.
func Save(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// Unique temp name so concurrent writers never interleave.
	return atomicWriteFile(dir, FileName+".*.tmp", Path(dir), b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
