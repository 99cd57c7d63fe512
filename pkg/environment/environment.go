package environment

import (
	"errors"
	"fmt"
	"strings"
)

// Environment represents application environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

var ErrUnknownEnvironment = errors.New("unknown environment")

var aliases = map[string]Environment{
	"development": Development,
	"dev":         Development,
	"local":       Development,
	"staging":     Staging,
	"stage":       Staging,
	"production":  Production,
	"prod":        Production,
}

// Parse normalises s to one of the known environments.
func Parse(s string) (Environment, error) {
	env, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
	}
	return env, nil
}

// UnmarshalText lets config loaders decode APP_ENV directly.
func (e *Environment) UnmarshalText(text []byte) error {
	env, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = env
	return nil
}

func (e Environment) String() string { return string(e) }

func (e Environment) IsProduction() bool { return e == Production }
