// Package config loads the schemasync.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schemasync/pkg/emit"
)

// DefaultFile is read when no --config flag is given and it exists in the
// working directory.
const DefaultFile = "schemasync.yaml"

// Formats accepted by the format setting.
const (
	FormatAuto       = "auto"
	FormatJSONSchema = "jsonschema"
	FormatOpenAPI    = "openapi"
	FormatGoStruct   = "gostruct"
)

// Config is the project configuration.
type Config struct {
	Sources  []string       `yaml:"sources"`
	Format   string         `yaml:"format"`
	Models   []string       `yaml:"models,omitempty"`
	Targets  TargetsConfig  `yaml:"targets"`
	Banner   string         `yaml:"banner,omitempty"`
	Strict   bool           `yaml:"strict"`
	Prune    bool           `yaml:"prune"`
	Workers  int            `yaml:"workers,omitempty"`
	HTTP     HTTPConfig     `yaml:"http"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
	GoStruct GoStructConfig `yaml:"gostruct"`
}

// TargetsConfig places the generated files.
type TargetsConfig struct {
	Types      TargetConfig `yaml:"types"`
	Validators TargetConfig `yaml:"validators"`
	// ZodImport is the module specifier zod is imported from.
	ZodImport string `yaml:"zodImport,omitempty"`
}

// TargetConfig is one output directory and its file name template.
type TargetConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file,omitempty"`
}

// HTTPConfig enables URL sources.
type HTTPConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// OpenAPIConfig tunes the OpenAPI adapter.
type OpenAPIConfig struct {
	Validate bool `yaml:"validate"`
}

// GoStructConfig tunes the Go struct adapter.
type GoStructConfig struct {
	ValidateTag string `yaml:"validateTag,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format: FormatAuto,
		Targets: TargetsConfig{
			Types:      TargetConfig{Dir: "generated/types", File: emit.DefaultTypesFile},
			Validators: TargetConfig{Dir: "generated/validators", File: emit.DefaultValidatorsFile},
			ZodImport:  "zod",
		},
		HTTP:     HTTPConfig{Timeout: 30 * time.Second},
		OpenAPI:  OpenAPIConfig{Validate: true},
		GoStruct: GoStructConfig{ValidateTag: "validate"},
	}
}

// LoadFromFile reads path over the defaults. Unknown keys are errors.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile
// yields the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg, err := LoadFromFile(DefaultFile)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("sources: at least one source is required"))
	}
	for i, source := range c.Sources {
		if strings.TrimSpace(source) == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: must not be empty", i))
		}
	}
	switch c.Format {
	case FormatAuto, FormatJSONSchema, FormatOpenAPI, FormatGoStruct:
	default:
		errs = append(errs, fmt.Errorf("format: %q is not one of auto, jsonschema, openapi, gostruct", c.Format))
	}
	if strings.TrimSpace(c.Targets.Types.Dir) == "" {
		errs = append(errs, errors.New("targets.types.dir: is required"))
	}
	if strings.TrimSpace(c.Targets.Validators.Dir) == "" {
		errs = append(errs, errors.New("targets.validators.dir: is required"))
	}
	if c.Targets.Types.Dir == c.Targets.Validators.Dir && c.typesFile() == c.validatorsFile() {
		errs = append(errs, errors.New("targets: types and validators would write the same files"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative, got %d", c.Workers))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http.timeout: must not be negative, got %s", c.HTTP.Timeout))
	}
	for i, model := range c.Models {
		if strings.TrimSpace(model) == "" {
			errs = append(errs, fmt.Errorf("models[%d]: must not be empty", i))
		}
	}
	return errors.Join(errs...)
}

// Layout compiles the target settings into an emit.Layout.
func (c *Config) Layout() (*emit.Layout, error) {
	return emit.NewLayout(map[string]emit.TargetLayout{
		emit.TargetTypes:      {Dir: c.Targets.Types.Dir, FileTemplate: c.typesFile()},
		emit.TargetValidators: {Dir: c.Targets.Validators.Dir, FileTemplate: c.validatorsFile()},
	}, c.Banner)
}

func (c *Config) typesFile() string {
	if c.Targets.Types.File == "" {
		return emit.DefaultTypesFile
	}
	return c.Targets.Types.File
}

func (c *Config) validatorsFile() string {
	if c.Targets.Validators.File == "" {
		return emit.DefaultValidatorsFile
	}
	return c.Targets.Validators.File
}
