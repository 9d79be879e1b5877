package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenUnknown indicates the bearer token maps to no actor.
var ErrTokenUnknown = errors.New("identity: unknown token")

// Store resolves bearer tokens to actors from Redis. The auth service owns
// the keys; this store only reads them.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Resolve returns the actor associated with token.
func (s *Store) Resolve(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrTokenUnknown
	}
	payload, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, ErrTokenUnknown
		}
		return Actor{}, err
	}
	var actor Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return Actor{}, err
	}
	return actor, nil
}

// Put stores an actor under token. Used by seeding and tests; the issuing
// service writes the same shape.
func (s *Store) Put(ctx context.Context, token string, actor Actor) error {
	payload, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(token), payload, s.ttl).Err()
}

func redisKey(token string) string {
	return "identity:token:" + token
}
