package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts between requests.
type Store interface {
	Load(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps carts in process memory. Entries expire after TTL of inactivity.
type MemoryStore struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	carts map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{TTL: ttl, carts: make(map[string]memoryEntry)}
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns a copy of the stored cart.
func (s *MemoryStore) Load(_ context.Context, id string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.carts, id)
		return Cart{}, ErrNotFound
	}
	var c Cart
	if err := json.Unmarshal(entry.data, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save stores the cart and refreshes its expiry.
func (s *MemoryStore) Save(_ context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts == nil {
		s.carts = make(map[string]memoryEntry)
	}
	entry := memoryEntry{data: data}
	if s.TTL > 0 {
		entry.expiresAt = s.now().Add(s.TTL)
	}
	s.carts[c.ID] = entry
	return nil
}

// Delete removes the cart.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
	return nil
}

// RedisStore keeps carts as JSON documents under "<prefix><id>" with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "cart:"}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Load unmarshals the stored cart. A missing key is ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.client == nil {
		return Cart{}, errors.New("cart: redis store not configured")
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save serialises the cart and stores it with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, c Cart) error {
	if s == nil || s.client == nil {
		return errors.New("cart: redis store not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(c.ID), data, s.ttl).Err()
}

// Delete removes the stored cart.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("cart: redis store not configured")
	}
	return s.client.Del(ctx, s.key(id)).Err()
}
