package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
)

// StoreTx provides a transactional boundary for mutations scoped to one event.
// Implementations may wrap a database transaction or, in-memory, a per-event lock.
type StoreTx interface {
	RunInTx(ctx context.Context, eventID id.EventID, fn func(ctx context.Context, store Store) error) error
}

// numEventShards spreads per-event locks so unrelated events rarely contend.
const numEventShards = 128

// DefaultTxTimeout bounds a transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes transactions per event using sharded mutexes.
// Two transactions on the same event never overlap; transactions on different
// events only contend when they hash to the same shard.
type ShardedTx struct {
	shards  [numEventShards]sync.Mutex
	store   Store
	timeout time.Duration
}

func NewShardedTx(store Store) *ShardedTx {
	return &ShardedTx{store: store, timeout: DefaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, eventID id.EventID, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(eventID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

func shardFor(eventID id.EventID) int {
	h := fnv.New32a()
	_, _ = h.Write(eventID[:])
	return int(h.Sum32() % numEventShards)
}
