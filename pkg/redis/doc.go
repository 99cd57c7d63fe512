// Package redis connects to Redis with retries and exposes a readiness check.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ready := redis.Healthcheck(client)
//
// Config is populated from REDIS_* environment variables.
package redis
