package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("no session")

// Store resolves bearer tokens to customer ids. Sessions are written by the
// auth layer elsewhere; this service only reads them.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func key(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Customer returns the customer id bound to token, or ErrNoSession when the
// token is unknown or expired.
func (s *Store) Customer(ctx context.Context, token string) (string, error) {
	v, err := s.rdb.Get(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Put stores a session, used by the integration harness to seed logins.
func (s *Store) Put(ctx context.Context, token, customerID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key(token), customerID, ttl).Err()
}
