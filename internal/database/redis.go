package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients splits traffic over two connections to the same server.
// Store holds sessions, refresh tokens, caches and the mail queue; PubSub is
// kept free for the long-lived websocket subscriptions.
type RedisClients struct {
	Store  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clients := &RedisClients{}
	for _, c := range []struct {
		name string
		dst  **redis.Client
	}{
		{"store", &clients.Store},
		{"pubsub", &clients.PubSub},
	} {
		o := *opt
		client := redis.NewClient(&o)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			clients.Close()
			return nil, fmt.Errorf("failed to ping Redis (%s): %w", c.name, err)
		}
		*c.dst = client
	}
	return clients, nil
}

func (r *RedisClients) Close() {
	for _, c := range []*redis.Client{r.Store, r.PubSub} {
		if c != nil {
			c.Close()
		}
	}
}
