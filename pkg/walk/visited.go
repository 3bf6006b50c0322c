package walk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// State is the walk state of one address.
type State string

const (
	StateUnseen  State = ""
	StateQueued  State = "queued"
	StateVisited State = "visited"
)

// VisitedSet records which addresses a run has queued or processed. Enqueue
// must be atomic: when several workers discover the same neighbor, exactly
// one of them sees true.
type VisitedSet interface {
	Enqueue(ctx context.Context, address string) (bool, error)
	MarkVisited(ctx context.Context, address string) error
	State(ctx context.Context, address string) (State, error)
	Len(ctx context.Context) (int, error)
}

// MemorySet is an in-process VisitedSet.
type MemorySet struct {
	mu    sync.Mutex
	state map[string]State
}

// NewMemorySet creates an empty in-process set.
func NewMemorySet() *MemorySet {
	return &MemorySet{state: make(map[string]State)}
}

func (s *MemorySet) Enqueue(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[address]; ok {
		return false, nil
	}
	s.state[address] = StateQueued
	return true, nil
}

func (s *MemorySet) MarkVisited(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[address] = StateVisited
	return nil
}

func (s *MemorySet) State(_ context.Context, address string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[address], nil
}

func (s *MemorySet) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state), nil
}

// RedisSet keeps the visited set in one Redis hash per run, so several
// edgecheck processes can share a walk.
type RedisSet struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSet creates a set stored under "edgecheck:walk:<runID>". A positive
// ttl expires the hash that long after the last write.
func NewRedisSet(client *redis.Client, runID string, ttl time.Duration) *RedisSet {
	return &RedisSet{client: client, key: "edgecheck:walk:" + runID, ttl: ttl}
}

// Key returns the Redis key backing the set.
func (s *RedisSet) Key() string {
	return s.key
}

func (s *RedisSet) Enqueue(ctx context.Context, address string) (bool, error) {
	added, err := s.client.HSetNX(ctx, s.key, address, string(StateQueued)).Result()
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", address, err)
	}
	return added, s.touch(ctx)
}

func (s *RedisSet) MarkVisited(ctx context.Context, address string) error {
	if err := s.client.HSet(ctx, s.key, address, string(StateVisited)).Err(); err != nil {
		return fmt.Errorf("mark %s visited: %w", address, err)
	}
	return s.touch(ctx)
}

func (s *RedisSet) State(ctx context.Context, address string) (State, error) {
	v, err := s.client.HGet(ctx, s.key, address).Result()
	if err == redis.Nil {
		return StateUnseen, nil
	}
	if err != nil {
		return StateUnseen, err
	}
	return State(v), nil
}

func (s *RedisSet) Len(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	return int(n), err
}

func (s *RedisSet) touch(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.client.Expire(ctx, s.key, s.ttl).Err()
}
