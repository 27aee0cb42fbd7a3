package hybridstorage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process KeyValueStore with optional quotas.
type MemoryStore struct {
	mu            sync.Mutex
	data          map[string]string
	MaxValueBytes int
	MaxTotalBytes int
}

// NewMemoryStore 빈 메모리 저장소 생성 (0 = 무제한)
func NewMemoryStore(maxValueBytes, maxTotalBytes int) *MemoryStore {
	return &MemoryStore{
		data:          make(map[string]string),
		MaxValueBytes: maxValueBytes,
		MaxTotalBytes: maxTotalBytes,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MaxValueBytes > 0 && len(value) > m.MaxValueBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrQuotaExceeded, key, len(value))
	}
	if m.MaxTotalBytes > 0 {
		total := len(value)
		for k, v := range m.data {
			if k != key {
				total += len(v)
			}
		}
		if total > m.MaxTotalBytes {
			return fmt.Errorf("%w: total %d bytes", ErrQuotaExceeded, total)
		}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
