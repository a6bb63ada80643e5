package config

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/infiotinc/rxgqlgenc/client"
	"github.com/infiotinc/rxgqlgenc/client/executor"
)

type Config struct {
	Endpoint    Endpoint           `yaml:"endpoint"`
	Schema      StringList         `yaml:"schema"`
	CachePolicy client.CachePolicy `yaml:"cache_policy,omitempty"`
	Log         Log                `yaml:"log,omitempty"`

	// dir the schema paths are relative to
	dir string
}

type Endpoint struct {
	URL          string            `yaml:"url"`
	WsURL        string            `yaml:"ws_url,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
	RetryTimeout time.Duration     `yaml:"retry_timeout,omitempty"`
}

type Log struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// StringList accepts a single string or a list of them
type StringList []string

func (a *StringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*a = []string{single}
		return nil
	}

	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}

	*a = list

	return nil
}

// LoadConfig reads and validates the config at filename, expanding
// environment variables in it first
func LoadConfig(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config")
	}

	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "%v", filename)
	}

	cfg.dir = filepath.Dir(filename)

	return cfg, nil
}

func Parse(b []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(b)))))
	dec.SetStrict(true)

	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "unable to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}

	if len(c.Schema) == 0 {
		return errors.New("schema is required")
	}

	if c.Endpoint.Timeout < 0 {
		return errors.Errorf("endpoint.timeout must not be negative, got %v", c.Endpoint.Timeout)
	}

	if c.Log.Level != "" {
		if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
			return errors.Wrap(err, "log.level")
		}
	}

	return nil
}

// LoadSchema reads and parses the schema files
func (c *Config) LoadSchema() (*ast.Schema, error) {
	sources := make([]*ast.Source, 0, len(c.Schema))

	for _, name := range c.Schema {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open schema")
		}

		sources = append(sources, &ast.Source{Name: name, Input: string(b)})
	}

	return executor.LoadSchema(sources...)
}

// Logger builds the zap logger described by the log section
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}

	if c.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Log.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}

	return zc.Build()
}
