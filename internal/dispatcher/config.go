package dispatcher

import "time"

type Config struct {
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	CallTimeout    time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
}
