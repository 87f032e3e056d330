// Package redis connects to Redis with go-redis/v9.
//
// Connect retries the initial ping according to Config, and Healthcheck
// adapts a client to a func(context.Context) error probe.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
