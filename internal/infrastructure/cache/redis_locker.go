// Package cache implementa el lease por lote de los cron FE.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
)

const defaultKeyPrefix = "fe:lease:"

// libera solo si el lease sigue siendo nuestro
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var _ einvoice.Locker = (*RedisLocker)(nil)

// RedisLocker lease con SET NX PX compartido entre réplicas.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLocker conecta y verifica con PING.
func NewRedisLocker(cfg config.RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return NewRedisLockerWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisLockerWithClient usa un cliente existente (tests).
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

// TryLock implementa einvoice.Locker.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if ttl <= 0 {
		return nil, false, errors.New("redis: ttl del lease debe ser positivo")
	}
	full := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis: lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{full}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis: liberar lease %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

// Close cierra el cliente.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
