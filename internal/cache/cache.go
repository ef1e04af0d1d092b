// Package cache implements the concurrent top-of-book store.
//
// The map is sharded by FNV-1a hash of the market key so that readers and
// writers of different keys proceed independently; there is no global lock.
// Values are copied in and out — callers never hold a reference into a
// shard, so a reader can never observe a torn write.
package cache

import (
	"hash/fnv"
	"sync"

	"github.com/simrat12/prediction-engine/internal/domain"
)

const defaultShards = 16

type shard struct {
	mu sync.RWMutex
	m  map[domain.MarketKey]domain.MarketState
}

// Cache is a sharded concurrent map from MarketKey to MarketState.
type Cache struct {
	shards    []*shard
	numShards uint32
}

// New creates a cache with the given shard count. Values <= 0 fall back to
// the default of 16.
func New(numShards int) *Cache {
	if numShards <= 0 {
		numShards = defaultShards
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{m: make(map[domain.MarketKey]domain.MarketState)}
	}
	return &Cache{shards: shards, numShards: uint32(numShards)}
}

func (c *Cache) shardFor(key domain.MarketKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.Venue))
	h.Write([]byte{0})
	h.Write([]byte(key.TokenID))
	return c.shards[h.Sum32()%c.numShards]
}

// UpsertMerge inserts a fresh state or merges the partial into the existing
// one, atomically with respect to Get on the same key. Only non-nil fields
// of the partial overwrite; LastUpdate always takes the partial's stamp.
// It returns the post-merge snapshot.
func (c *Cache) UpsertMerge(key domain.MarketKey, partial domain.MarketState) domain.MarketState {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.m[key]
	if partial.BestBid != nil {
		cur.BestBid = copyOf(partial.BestBid)
	}
	if partial.BestAsk != nil {
		cur.BestAsk = copyOf(partial.BestAsk)
	}
	if partial.Volume24h != nil {
		cur.Volume24h = copyOf(partial.Volume24h)
	}
	cur.LastUpdate = partial.LastUpdate
	s.m[key] = cur
	return snapshot(cur)
}

// Get returns a value snapshot of the state for key. The boolean is false
// when the key has never been written.
func (c *Cache) Get(key domain.MarketKey) (domain.MarketState, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.m[key]
	if !ok {
		return domain.MarketState{}, false
	}
	return snapshot(cur), true
}

// Len returns the number of keys across all shards.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// SnapshotAll copies out every entry. Diagnostics only; it takes each shard
// lock in turn and makes no cross-shard consistency claim.
func (c *Cache) SnapshotAll() []domain.KeyedState {
	out := make([]domain.KeyedState, 0, c.Len())
	for _, s := range c.shards {
		s.mu.RLock()
		for k, v := range s.m {
			out = append(out, domain.KeyedState{Key: k, State: snapshot(v)})
		}
		s.mu.RUnlock()
	}
	return out
}

// snapshot deep-copies the pointer fields so callers cannot alias shard
// memory.
func snapshot(s domain.MarketState) domain.MarketState {
	s.BestBid = copyOf(s.BestBid)
	s.BestAsk = copyOf(s.BestAsk)
	s.Volume24h = copyOf(s.Volume24h)
	return s
}

func copyOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
