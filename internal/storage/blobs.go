package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
)

// MemoryBlobs keeps CV files in memory. Used when no object store is
// configured.
type MemoryBlobs struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryBlobs constructs an empty blob store.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{files: make(map[string][]byte)}
}

func (b *MemoryBlobs) PutCV(ctx context.Context, objectKey string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[objectKey] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBlobs) GetCV(ctx context.Context, objectKey string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.files[objectKey]
	if !ok {
		return nil, fmt.Errorf("cv %s: %w", objectKey, apperr.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

var _ Documents = (*MemoryBlobs)(nil)
