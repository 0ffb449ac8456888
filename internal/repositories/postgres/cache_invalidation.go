package postgres

import (
	"context"
	"slices"
	"sync"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
)

// bankInvalidator drops a bank's cache entries. A deferred invalidator queues
// the drops until flush, which WithTransaction calls after commit; a rolled
// back transaction never flushes.
type bankInvalidator struct {
	cacheManager *cache.CacheManager
	deferred     bool

	mu      sync.Mutex
	pending []uint
}

func newBankInvalidator(cacheManager *cache.CacheManager) *bankInvalidator {
	return &bankInvalidator{cacheManager: cacheManager}
}

func newDeferredBankInvalidator(cacheManager *cache.CacheManager) *bankInvalidator {
	return &bankInvalidator{cacheManager: cacheManager, deferred: true}
}

func (b *bankInvalidator) invalidate(ctx context.Context, bankIDs ...uint) {
	if !b.deferred {
		for _, bankID := range bankIDs {
			cache.InvalidateBankCache(ctx, b.cacheManager, bankID)
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bankID := range bankIDs {
		if !slices.Contains(b.pending, bankID) {
			b.pending = append(b.pending, bankID)
		}
	}
}

// flush runs the queued drops even if ctx was cancelled after the commit
func (b *bankInvalidator) flush(ctx context.Context) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for _, bankID := range pending {
		cache.InvalidateBankCache(ctx, b.cacheManager, bankID)
	}
}
