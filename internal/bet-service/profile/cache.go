package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betwise-platform/internal/bet-service/repo"
)

// Cache guarda a visão de perfil no Redis com TTL curto, chaveada por
// usuário. Toda mutação de carteira/perfil chama Invalidate; nada de mapa
// global de perfis em memória de processo.
type Cache struct {
	r   *redis.Client
	ttl time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{r: r, ttl: ttl}
}

func key(userID string) string { return "profile:" + userID }

// Get retorna a visão cacheada, se houver.
func (c *Cache) Get(ctx context.Context, userID string) (*repo.Profile, bool, error) {
	b, err := c.r.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p repo.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// Set grava a visão com o TTL do cache.
func (c *Cache) Set(ctx context.Context, p *repo.Profile) error {
	b, _ := json.Marshal(p)
	return c.r.Set(ctx, key(p.ID), b, c.ttl).Err()
}

// Invalidate descarta a entrada do usuário após mutação.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	return c.r.Del(ctx, key(userID)).Err()
}
