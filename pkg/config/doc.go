// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags; a local .env file is
// read once through godotenv before the first parse.
//
//	type Config struct {
//	    Addr string        `env:"HTTP_ADDR" envDefault:":8080"`
//	    TTL  time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
