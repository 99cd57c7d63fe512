// Package ratelimiter implements token bucket rate limiting with an
// in-memory store for single instances, a Redis store for shared
// buckets, and net/http middleware.
//
//	store := ratelimiter.NewRedisStore(rdb)
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimiter.Middleware(limiter, keyFunc))
//
// A bucket starts full. Each refill interval adds RefillRate tokens up
// to Capacity. Denied requests do not drain the bucket.
package ratelimiter
