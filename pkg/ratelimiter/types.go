package ratelimiter

import "time"

// Result is the outcome of a rate limit check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the tokens were granted.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed results.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Config describes a token bucket.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"100"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// ttl is how long an idle bucket takes to fill up again, plus one interval.
func (c Config) ttl() time.Duration {
	intervals := (c.Capacity + c.RefillRate - 1) / c.RefillRate
	return time.Duration(intervals+1) * c.RefillInterval
}
