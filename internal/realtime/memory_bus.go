package realtime

import (
	"context"
	"sync"
)

type subscription struct {
	id    int
	table string
	fn    func(Change)
}

// MemoryBus delivers changes in-process, synchronously, in publish order.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(ctx context.Context, change Change) error {
	b.mu.RLock()
	targets := make([]func(Change), 0, len(b.subs))
	for _, s := range b.subs {
		if matchesTable(s.table, change.Table) {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()
	for _, fn := range targets {
		fn(change)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, table string, fn func(Change)) error {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, table: table, fn: fn})
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	return nil
}
