package store

import (
	"sync"
)

// MemStore is an in-memory implementation of Store, used by package tests
// of store, cron and api the way the teacher swaps its db.Proxy
// for a fake in unit tests rather than hitting a real database.
type MemStore struct {
	mu     sync.Mutex
	ints   map[string]int64
	strs   map[string]string
	lists  map[string][][]byte
	sets   map[string]map[string]struct{}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		ints:  make(map[string]int64),
		strs:  make(map[string]string),
		lists: make(map[string][][]byte),
		sets:  make(map[string]map[string]struct{}),
	}
}

func (m *MemStore) GetInt(namespace, key, field string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.ints[compositeKey(namespace, key, field)]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *MemStore) SetInt(namespace, key, field string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ints[compositeKey(namespace, key, field)] = value
	return nil
}

func (m *MemStore) GetString(namespace, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.strs[compositeKey(namespace, key, field)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemStore) SetString(namespace, key, field string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strs[compositeKey(namespace, key, field)] = value
	return nil
}

func (m *MemStore) GetList(namespace, key, field string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]byte(nil), m.lists[compositeKey(namespace, key, field)]...), nil
}

func (m *MemStore) SetList(namespace, key, field string, values [][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[compositeKey(namespace, key, field)] = append([][]byte(nil), values...)
	return nil
}

func (m *MemStore) AppendList(namespace, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := compositeKey(namespace, key, field)
	m.lists[k] = append(m.lists[k], value)
	return nil
}

func (m *MemStore) GetSet(namespace, key, field string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.sets[compositeKey(namespace, key, field)]
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out, nil
}

func (m *MemStore) AddToSet(namespace, key, field string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := compositeKey(namespace, key, field)
	if m.sets[k] == nil {
		m.sets[k] = make(map[string]struct{})
	}
	m.sets[k][member] = struct{}{}
	return nil
}

func (m *MemStore) RemoveFromSet(namespace, key, field string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := compositeKey(namespace, key, field)
	delete(m.sets[k], member)
	return nil
}

func (m *MemStore) Delete(namespace, key, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := compositeKey(namespace, key, field)
	delete(m.ints, k)
	delete(m.strs, k)
	delete(m.lists, k)
	delete(m.sets, k)
	return nil
}

// packInt32LE / unpackInt32LE implement spec.md §6's "turn scores are
// packed little-endian 32-bit integers" requirement at the byte level, for
// callers (reliability, cron) that store a slot's per-turn score.
func packInt32LE(v int32) []byte {
	b := make([]byte, 4)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return b
}

func unpackInt32LE(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}

// PackInt32LE packs a turn score (or any 32-bit signed field) the way
// spec.md §6 requires before it is appended to a turn:<n>:scores list.
func PackInt32LE(v int32) []byte { return packInt32LE(v) }

// UnpackInt32LE is the inverse of PackInt32LE.
func UnpackInt32LE(b []byte) int32 { return unpackInt32LE(b) }

// PackInt16LE / UnpackInt16LE implement the companion "turn status packed
// little-endian 16-bit integers" requirement.
func PackInt16LE(v int16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func UnpackInt16LE(b []byte) int16 {
	return int16(b[0]) | int16(b[1])<<8
}
