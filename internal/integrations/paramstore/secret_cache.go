package paramstore

import (
	"context"
	"sync"
	"time"
)

// secretLookupTimeout bounds one fetch. The fetch is detached from the
// caller's cancellation so an abandoned request cannot fail it.
const secretLookupTimeout = 10 * time.Second

// SecretCache resolves one secret on first use and keeps it for the life of
// the process. Only a successful lookup is kept; after a failure the next
// Get tries again.
type SecretCache struct {
	getter Getter
	name   string

	mu     sync.Mutex
	value  string
	loaded bool
}

func NewSecretCache(g Getter, name string) *SecretCache {
	return &SecretCache{getter: g, name: name}
}

func (s *SecretCache) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.value, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), secretLookupTimeout)
	defer cancel()
	v, err := Secret(ctx, s.getter, s.name)
	if err != nil {
		return "", err
	}
	s.value, s.loaded = v, true
	return v, nil
}
