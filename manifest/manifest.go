// Package manifest loads service binding declarations from a configuration
// file and applies them to a ServiceRegistry.
//
// A manifest names services; a Catalog maps those names to interface keys
// and implementations, so the file only controls lifetimes, scopes and
// dependencies:
//
//	services:
//	  - name: logger
//	  - name: user-store
//	    lifetime: scoped
//	    dependencies: [logger]
//
// Files may be YAML, JSON or TOML. The default scope can be overridden with
// the REGISTRY_DEFAULT_SCOPE environment variable, optionally loaded from a
// .env file.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/junioryono/registry"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "REGISTRY"

var (
	// ErrNoManifest is returned by Load when no manifest file was given.
	ErrNoManifest = errors.New("manifest: no manifest file configured")

	// ErrUnknownService is returned by Apply for names missing from the catalog.
	ErrUnknownService = errors.New("manifest: unknown service")
)

// Manifest is a list of binding declarations.
type Manifest struct {
	// DefaultScope applies to services that declare no scope.
	DefaultScope string `mapstructure:"default_scope" json:"default_scope"`

	Services []Service `mapstructure:"services" json:"services" validate:"dive"`
}

// Service declares one binding.
type Service struct {
	Name         string   `mapstructure:"name" json:"name" validate:"required"`
	Lifetime     string   `mapstructure:"lifetime" json:"lifetime" validate:"omitempty,lifetime"`
	Scope        string   `mapstructure:"scope" json:"scope"`
	Dependencies []string `mapstructure:"dependencies" json:"dependencies" validate:"dive,required"`
	Default      bool     `mapstructure:"default" json:"default"`
}

// Entry binds a manifest name to an interface key and implementation.
type Entry struct {
	Key            reflect.Type
	Implementation any
}

// Catalog maps manifest names to entries.
type Catalog map[string]Entry

// For builds an Entry keyed by T.
func For[T any](impl any) Entry {
	return Entry{Key: registry.TypeOf[T](), Implementation: impl}
}

// Config holds loader inputs.
type Config struct {
	File    string // manifest file; falls back to REGISTRY_MANIFEST
	EnvFile string // optional .env file loaded before reading the environment
}

// Option configures Load.
type Option func(*Config)

// WithFile sets the manifest file path.
func WithFile(path string) Option {
	return func(c *Config) { c.File = path }
}

// WithEnvFile sets a .env file to load before reading the environment.
func WithEnvFile(path string) Option {
	return func(c *Config) { c.EnvFile = path }
}

// Load reads and validates a manifest file.
func Load(opts ...Option) (*Manifest, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			return nil, fmt.Errorf("manifest: load env file %s: %w", cfg.EnvFile, err)
		}
	}

	v := newViper()
	if cfg.File == "" {
		cfg.File = v.GetString("manifest")
	}
	if cfg.File == "" {
		return nil, ErrNoManifest
	}

	v.SetConfigFile(cfg.File)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", cfg.File, err)
	}

	return decode(v)
}

// Parse reads a manifest from r. format is a viper config type such as
// "yaml", "json" or "toml".
func Parse(r io.Reader, format string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", format, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("manifest")
	_ = v.BindEnv("default_scope")
	return v
}

func decode(v *viper.Viper) (*Manifest, error) {
	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("lifetime", func(fl validator.FieldLevel) bool {
			_, err := registry.ParseLifetime(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks field constraints and that service names are unique and
// dependencies refer to declared services.
func (m *Manifest) Validate() error {
	if err := getValidator().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("manifest: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("manifest: invalid: %w", err)
	}

	names := make(map[string]bool, len(m.Services))
	for _, s := range m.Services {
		if names[s.Name] {
			return fmt.Errorf("manifest: service %q declared twice", s.Name)
		}
		names[s.Name] = true
	}
	for _, s := range m.Services {
		for _, dep := range s.Dependencies {
			if !names[dep] {
				return fmt.Errorf("manifest: service %q depends on undeclared service %q", s.Name, dep)
			}
		}
	}
	return nil
}

// Apply registers every declared service with reg, in file order.
// It stops at the first failure; bindings registered before it remain.
func (m *Manifest) Apply(reg *registry.ServiceRegistry, catalog Catalog) error {
	for _, s := range m.Services {
		entry, ok := catalog[s.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownService, s.Name)
		}

		opts, err := m.options(s, catalog)
		if err != nil {
			return err
		}

		if err := reg.RegisterService(entry.Key, entry.Implementation, opts...); err != nil {
			return fmt.Errorf("manifest: register %q: %w", s.Name, err)
		}
	}
	return nil
}

func (m *Manifest) options(s Service, catalog Catalog) ([]registry.ServiceOption, error) {
	var opts []registry.ServiceOption

	if s.Lifetime != "" {
		lifetime, err := registry.ParseLifetime(s.Lifetime)
		if err != nil {
			return nil, fmt.Errorf("manifest: service %q: %w", s.Name, err)
		}
		opts = append(opts, registry.WithLifetime(lifetime))
	}

	scope := s.Scope
	if scope == "" {
		scope = m.DefaultScope
	}
	if scope != "" {
		opts = append(opts, registry.InScope(registry.Scope(scope)))
	}

	for _, dep := range s.Dependencies {
		entry, ok := catalog[dep]
		if !ok {
			return nil, fmt.Errorf("%w: %q (dependency of %q)", ErrUnknownService, dep, s.Name)
		}
		opts = append(opts, registry.DependsOn(entry.Key))
	}

	if s.Default {
		opts = append(opts, registry.AsDefault())
	}
	return opts, nil
}
