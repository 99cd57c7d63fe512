package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Option tweaks how Load parses the environment.
type Option func(*loadOptions)

type loadOptions struct {
	prefix   string
	dotenv   []string
	environ  map[string]string
	required bool
}

// WithPrefix makes every variable name prefixed, e.g. "WORKER_".
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// WithDotenv overrides the dotenv files loaded before parsing. Missing files are ignored.
func WithDotenv(files ...string) Option {
	return func(o *loadOptions) { o.dotenv = files }
}

// WithEnviron parses from the given map instead of the process environment.
func WithEnviron(environ map[string]string) Option {
	return func(o *loadOptions) { o.environ = environ }
}

// WithRequiredIfNoDefault treats fields without envDefault as required.
func WithRequiredIfNoDefault() Option {
	return func(o *loadOptions) { o.required = true }
}

// Load parses environment variables into v using `env` struct tags.
// Dotenv files are loaded at most once per process and never override
// variables that are already set.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{dotenv: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}

	if o.environ == nil {
		dotenvOnce.Do(func() { loadDotenv(o.dotenv) })
	}

	envOpts := env.Options{
		Prefix:                o.prefix,
		Environment:           o.environ,
		RequiredIfNoDef:       o.required,
		UseFieldNameByDefault: false,
	}
	if err := env.ParseWithOptions(v, envOpts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load that panics. Intended for main packages.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}

func loadDotenv(files []string) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		_ = godotenv.Load(existing...)
	}
}
