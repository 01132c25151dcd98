package index

import (
	"sync"

	"github.com/memorai/memoraid/internal/model"
)

// TypeIndex partitions ids by exact memory type.
type TypeIndex struct {
	mu     sync.RWMutex
	byType map[model.MemoryType]map[string]struct{}
}

// NewTypeIndex constructs an empty type index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{byType: make(map[model.MemoryType]map[string]struct{})}
}

// Add indexes id under typ.
func (t *TypeIndex) Add(id string, typ model.MemoryType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byType[typ]
	if !ok {
		set = make(map[string]struct{})
		t.byType[typ] = set
	}
	set[id] = struct{}{}
}

// Remove removes id from typ's set.
func (t *TypeIndex) Remove(id string, typ model.MemoryType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byType[typ]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.byType, typ)
	}
}

// IDs returns a snapshot of the ids carrying typ.
func (t *TypeIndex) IDs(typ model.MemoryType) map[string]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneSet(t.byType[typ])
}

// Count returns the number of ids carrying typ.
func (t *TypeIndex) Count(typ model.MemoryType) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byType[typ])
}

// Counts returns the per-type breakdown for every known type.
func (t *TypeIndex) Counts() map[model.MemoryType]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make(map[model.MemoryType]int, len(t.byType))
	for typ, set := range t.byType {
		result[typ] = len(set)
	}
	return result
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
