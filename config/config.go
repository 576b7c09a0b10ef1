package config

import (
	"io/ioutil"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	EnvPath     = "BEE_CFG"
	DefaultPath = "bee.toml"
)

// Endpoint kinds.
const (
	KindStandalone = "standalone"
	KindCluster    = "cluster"
	KindProxy      = "proxy"
)

// Key hash methods for proxy (sharded) endpoints.
const (
	HashFnv1a64 = "fnv1a_64"
	HashXXHash  = "xxhash"
)

type Config struct {
	Source  Endpoints     `toml:"source"`
	Target  Endpoints     `toml:"target"`
	Worker  WorkerConfig  `toml:"worker"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
	Replay  ReplayConfig  `toml:"replay"`
}

// Endpoints is a group of servers. For a source the servers are RDB file paths.
type Endpoints struct {
	Servers []string `toml:"servers"`
	Kind    string   `toml:"kind"`
	Hash    string   `toml:"hash"`
	HashTag string   `toml:"hash_tag"`
	// Password is used for target connections only.
	Password string `toml:"password"`
}

type WorkerConfig struct {
	Thread int `toml:"thread"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"`
}

type ReplayConfig struct {
	// BatchSize caps the elements sent in one container command.
	BatchSize int `toml:"batch_size"`
	// SkipChecksum turns off the footer CRC check of sources.
	SkipChecksum bool `toml:"skip_checksum"`
}

// Path returns the config file to load: flag, then BEE_CFG, then bee.toml.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open config file %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

// Parse decodes TOML, fills defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "fail to parse toml")
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Worker.Thread == 0 {
		c.Worker.Thread = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Replay.BatchSize == 0 {
		c.Replay.BatchSize = 512
	}
	for _, e := range []*Endpoints{&c.Source, &c.Target} {
		if e.Kind == "" {
			e.Kind = KindStandalone
		}
		if e.Hash == "" {
			e.Hash = HashFnv1a64
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Source.Servers) == 0 {
		return errors.New("source.servers is empty")
	}
	if len(c.Target.Servers) == 0 {
		return errors.New("target.servers is empty")
	}
	if c.Worker.Thread < 1 {
		return errors.Errorf("worker.thread must be at least 1, got %d", c.Worker.Thread)
	}
	if c.Replay.BatchSize < 1 {
		return errors.Errorf("replay.batch_size must be at least 1, got %d", c.Replay.BatchSize)
	}
	if err := c.Target.validate("target"); err != nil {
		return err
	}
	return c.Source.validate("source")
}

func (e *Endpoints) validate(name string) error {
	switch e.Kind {
	case KindStandalone:
		if len(e.Servers) != 1 && name == "target" {
			return errors.Errorf("%s: standalone takes exactly one server, got %d", name, len(e.Servers))
		}
	case KindCluster, KindProxy:
	default:
		return errors.Errorf("%s: unknown kind %q", name, e.Kind)
	}
	switch e.Hash {
	case HashFnv1a64, HashXXHash:
	default:
		return errors.Errorf("%s: unknown hash %q", name, e.Hash)
	}
	if e.HashTag != "" && len(e.HashTag) != 2 {
		return errors.Errorf("%s: hash_tag must be two characters, got %q", name, e.HashTag)
	}
	return nil
}
