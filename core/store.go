package core

// Remote-store adapter (C5): an asynchronous, untyped key→value[] service.
// PacketStore is the contract both the engine and its tests depend on;
// MemoryPacketStore is an in-process implementation adapted from the
// teacher's diskLRU cache in core/storage.go, used here as the default
// local backend and the engine's test double. Every call dispatches its
// callback from its own goroutine: at-most-one callback per call,
// eventual delivery, no ordering guarantee across distinct calls (§4.5).

import (
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// LoadCallback receives every value stored under a name, or a failure code.
type LoadCallback func(values [][]byte, code ResultCode)

// StoreCallback receives the outcome of a store attempt.
type StoreCallback func(code ResultCode)

// DeleteCallback receives the outcome of a delete attempt.
type DeleteCallback func(code ResultCode)

// KeyUniqueCallback receives whether no value is stored at name.
type KeyUniqueCallback func(unique bool)

// PacketStore is the four-operation remote store contract of §4.5.
type PacketStore interface {
	LoadPacket(name []byte, cb LoadCallback)
	StorePacket(name, value []byte, kind PacketKind, policy StorePolicy, msid string, cb StoreCallback)
	DeletePacket(name []byte, values [][]byte, kind PacketKind, cb DeleteCallback)
	KeyUnique(name []byte, cb KeyUniqueCallback)
}

func keyOf(name []byte) string { return hex.EncodeToString(name) }

// MemoryPacketStore is a thread-safe, in-process PacketStore, fronted by
// an LRU read cache the way the teacher's Storage fronts its IPFS gateway
// with a disk LRU (core/storage.go).
type MemoryPacketStore struct {
	mu     sync.Mutex
	values map[string][][]byte
	cache  *lru.Cache[string, [][]byte]
	logger *log.Logger
}

// NewMemoryPacketStore builds an empty store with an LRU cache of the
// given size fronting reads.
func NewMemoryPacketStore(cacheSize int, logger *log.Logger) *MemoryPacketStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, _ := lru.New[string, [][]byte](cacheSize)
	return &MemoryPacketStore{
		values: make(map[string][][]byte),
		cache:  cache,
		logger: logger,
	}
}

func (m *MemoryPacketStore) LoadPacket(name []byte, cb LoadCallback) {
	key := keyOf(name)
	go func() {
		if cached, ok := m.cache.Get(key); ok {
			cb(copyValues(cached), ResultSuccess)
			return
		}
		m.mu.Lock()
		values, ok := m.values[key]
		m.mu.Unlock()
		if !ok || len(values) == 0 {
			cb(nil, ResultGeneralError)
			return
		}
		m.cache.Add(key, values)
		cb(copyValues(values), ResultSuccess)
	}()
}

func (m *MemoryPacketStore) StorePacket(name, value []byte, kind PacketKind, policy StorePolicy, msid string, cb StoreCallback) {
	key := keyOf(name)
	go func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		existing, exists := m.values[key]

		switch policy {
		case PolicyDoNothingReturnFailure:
			if exists && len(existing) > 0 {
				cb(ResultNack)
				return
			}
			m.values[key] = [][]byte{value}
		case PolicyAppend:
			m.values[key] = append(existing, value)
		case PolicyOverwrite:
			m.values[key] = [][]byte{value}
		default:
			cb(ResultGeneralError)
			return
		}
		m.cache.Remove(key)
		m.logger.Debugf("store: %s packet %s stored (policy=%d)", kind, key[:8], policy)
		cb(ResultSuccess)
	}()
}

func (m *MemoryPacketStore) DeletePacket(name []byte, values [][]byte, kind PacketKind, cb DeleteCallback) {
	key := keyOf(name)
	go func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if len(values) == 0 {
			delete(m.values, key)
		} else {
			remaining := m.values[key][:0]
			for _, v := range m.values[key] {
				if !containsValue(values, v) {
					remaining = append(remaining, v)
				}
			}
			if len(remaining) == 0 {
				delete(m.values, key)
			} else {
				m.values[key] = remaining
			}
		}
		m.cache.Remove(key)
		m.logger.Debugf("store: %s packet %s deleted", kind, key[:8])
		cb(ResultSuccess)
	}()
}

func (m *MemoryPacketStore) KeyUnique(name []byte, cb KeyUniqueCallback) {
	key := keyOf(name)
	go func() {
		m.mu.Lock()
		values, exists := m.values[key]
		m.mu.Unlock()
		cb(!exists || len(values) == 0)
	}()
}

func copyValues(values [][]byte) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[i] = cp
	}
	return out
}

func containsValue(haystack [][]byte, needle []byte) bool {
	for _, v := range haystack {
		if string(v) == string(needle) {
			return true
		}
	}
	return false
}
