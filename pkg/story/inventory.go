package story

import "sync"

// Inventory is the item collaborator used by item conditions and grants.
type Inventory interface {
	AddItem(id string, count int)
	HasItem(id string) bool
}

// MapInventory is an in-memory Inventory.
type MapInventory struct {
	mu    sync.Mutex
	items map[string]int
}

var _ Inventory = (*MapInventory)(nil)

func NewMapInventory() *MapInventory {
	return &MapInventory{items: make(map[string]int)}
}

func (m *MapInventory) AddItem(id string, count int) {
	if id == "" || count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] += count
}

func (m *MapInventory) HasItem(id string) bool {
	return m.Count(id) > 0
}

func (m *MapInventory) Count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

// Clear empties the inventory.
func (m *MapInventory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]int)
}

// Items returns a copy of every held item and its count.
func (m *MapInventory) Items() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

// SetItems replaces the inventory contents. Non-positive counts are dropped.
func (m *MapInventory) SetItems(items map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]int, len(items))
	for k, v := range items {
		if k != "" && v > 0 {
			m.items[k] = v
		}
	}
}
