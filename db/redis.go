package db

import (
	"context"
	"fmt"
	"time"

	"tunedeck/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the global Redis client.
var RedisClient *redis.Client

// ConnectRedis initializes the Redis connection.
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Close()
}

func revokedJtiKey(jti string) string {
	return fmt.Sprintf("revoked_jti:%s", jti)
}

// DenylistJti marks an access token's jti as revoked until the token would
// have expired anyway. Called on logout.
func DenylistJti(ctx context.Context, jti string, ttl time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if ttl <= 0 {
		return nil // token already expired, nothing to deny
	}

	if err := RedisClient.Set(ctx, revokedJtiKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to denylist jti %s: %w", jti, err)
	}
	return nil
}

// IsJtiDenylisted reports whether the jti was revoked. A Redis outage fails
// open (token accepted) so auth does not depend on cache availability.
func IsJtiDenylisted(ctx context.Context, jti string) bool {
	if RedisClient == nil {
		return false
	}

	n, err := RedisClient.Exists(ctx, revokedJtiKey(jti)).Result()
	if err != nil {
		return false
	}
	return n > 0
}
