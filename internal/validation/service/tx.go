package service

import (
	"context"
	"hash/fnv"
	"sync"

	"stilltrue/internal/validation"
	id "stilltrue/pkg/domain"
)

// Tx runs fn against a claim-scoped transactional view of the workflow
// store. All writes of one Open/Submit call go through a single RunInClaimTx
// so the open-request check, the response write, and the close decision
// commit or fail together.
type Tx interface {
	RunInClaimTx(ctx context.Context, claimID id.ClaimID, fn func(validation.Store) error) error
}

const txShardCount = 64

// ShardedMemoryTx serializes workflow transactions per claim with a sharded
// mutex. Paired with MemoryStore; the postgres runner lives with the wiring
// in cmd/server where the *sql.DB is available.
type ShardedMemoryTx struct {
	store  validation.Store
	shards [txShardCount]sync.Mutex
}

func NewShardedMemoryTx(store validation.Store) *ShardedMemoryTx {
	return &ShardedMemoryTx{store: store}
}

func (t *ShardedMemoryTx) RunInClaimTx(_ context.Context, claimID id.ClaimID, fn func(validation.Store) error) error {
	shard := &t.shards[shardFor(claimID)]
	shard.Lock()
	defer shard.Unlock()
	return fn(t.store)
}

func shardFor(claimID id.ClaimID) uint32 {
	h := fnv.New32a()
	h.Write([]byte(claimID.String()))
	return h.Sum32() % txShardCount
}
