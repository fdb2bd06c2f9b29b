package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sink backends.
const (
	SinkKuzu   = "kuzu"
	SinkAGE    = "age"
	SinkMemory = "memory"
)

// Config holds settings loaded from treegraph.yml and the environment.
type Config struct {
	Sink      string `yaml:"sink,omitempty" validate:"required,oneof=kuzu age memory"`
	Namespace string `yaml:"namespace,omitempty" validate:"required,namespace"`
	Language  string `yaml:"language,omitempty" validate:"required,language"`
	DBPath    string `yaml:"dbPath,omitempty"`
	DSN       string `yaml:"dsn,omitempty" validate:"required_if=Sink age"`
	Verbose   bool   `yaml:"verbose,omitempty"`
}

// Default returns the configuration used when nothing is set: an in-memory
// Kuzu database, the "index" namespace and TypeScript input.
func Default() *Config {
	return &Config{
		Sink:      SinkKuzu,
		Namespace: graph.DefaultNamespace,
		Language:  string(syntax.LangTypeScript),
	}
}

// Load reads treegraph.yml or treegraph.yaml from dir, fills unset fields
// with defaults and applies TREEGRAPH_* environment overrides. A missing
// file is not an error. The result is not validated; call Validate once
// command-line flags have been applied.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"treegraph.yml", "treegraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", name, err)
		}
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		cfg.merge(&file)
		break
	}
	cfg.applyEnv()
	return cfg, nil
}

// merge copies the fields set in other over c.
func (c *Config) merge(other *Config) {
	if other.Sink != "" {
		c.Sink = other.Sink
	}
	if other.Namespace != "" {
		c.Namespace = other.Namespace
	}
	if other.Language != "" {
		c.Language = other.Language
	}
	if other.DBPath != "" {
		c.DBPath = other.DBPath
	}
	if other.DSN != "" {
		c.DSN = other.DSN
	}
	c.Verbose = c.Verbose || other.Verbose
}

func (c *Config) applyEnv() {
	c.Sink = GetEnvString("TREEGRAPH_SINK", c.Sink)
	c.Namespace = GetEnvString("TREEGRAPH_NAMESPACE", c.Namespace)
	c.Language = GetEnvString("TREEGRAPH_LANGUAGE", c.Language)
	c.DBPath = GetEnvString("TREEGRAPH_DB", c.DBPath)
	c.DSN = GetEnvString("TREEGRAPH_DSN", c.DSN)
	c.Verbose = GetEnvBool("TREEGRAPH_VERBOSE", c.Verbose)
}

// configValidate is the validator instance for Config, with the namespace
// and language rules registered.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("namespace", func(fl validator.FieldLevel) bool {
		return graph.ValidateNamespace(fl.Field().String()) == nil
	})
	_ = configValidate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		_, err := syntax.ParseLanguage(fl.Field().String())
		return err == nil
	})
}

// Validate checks the configuration. The age sink needs a DSN.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ParsedLanguage returns the configured language as a syntax.Language.
func (c *Config) ParsedLanguage() (syntax.Language, error) {
	return syntax.ParseLanguage(c.Language)
}
