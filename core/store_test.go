package core

import (
	"sync"
	"testing"
	"time"
)

func awaitStore(t *testing.T, f func(cb StoreCallback)) ResultCode {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(1)
	var code ResultCode
	f(func(c ResultCode) { code = c; wg.Done() })
	waitOrTimeout(t, &wg)
	return code
}

func awaitLoad(t *testing.T, f func(cb LoadCallback)) ([][]byte, ResultCode) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(1)
	var values [][]byte
	var code ResultCode
	f(func(v [][]byte, c ResultCode) { values, code = v, c; wg.Done() })
	waitOrTimeout(t, &wg)
	return values, code
}

func awaitUnique(t *testing.T, f func(cb KeyUniqueCallback)) bool {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(1)
	var unique bool
	f(func(u bool) { unique = u; wg.Done() })
	waitOrTimeout(t, &wg)
	return unique
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store callback")
	}
}

func TestMemoryPacketStoreDoNothingPolicy(t *testing.T) {
	store := NewMemoryPacketStore(8, nil)
	name := []byte("name-1")

	code := awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v1"), KindMID, PolicyDoNothingReturnFailure, "", cb)
	})
	if code != ResultSuccess {
		t.Fatalf("first store: got %s", code)
	}

	code = awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v2"), KindMID, PolicyDoNothingReturnFailure, "", cb)
	})
	if code != ResultNack {
		t.Fatalf("second store under do-nothing policy: got %s, want %s", code, ResultNack)
	}
}

func TestMemoryPacketStoreAppendAndOverwrite(t *testing.T) {
	store := NewMemoryPacketStore(8, nil)
	name := []byte("name-2")

	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v1"), KindTMID, PolicyAppend, "", cb)
	})
	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v2"), KindTMID, PolicyAppend, "", cb)
	})
	values, code := awaitLoad(t, func(cb LoadCallback) { store.LoadPacket(name, cb) })
	if code != ResultSuccess || len(values) != 2 {
		t.Fatalf("append: got %d values, code %s", len(values), code)
	}

	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v3"), KindTMID, PolicyOverwrite, "", cb)
	})
	values, code = awaitLoad(t, func(cb LoadCallback) { store.LoadPacket(name, cb) })
	if code != ResultSuccess || len(values) != 1 || string(values[0]) != "v3" {
		t.Fatalf("overwrite: got %v, code %s", values, code)
	}
}

func TestMemoryPacketStoreLoadPopulatesAndInvalidatesCache(t *testing.T) {
	store := NewMemoryPacketStore(8, nil)
	name := []byte("name-4")
	key := keyOf(name)

	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v1"), KindMID, PolicyDoNothingReturnFailure, "", cb)
	})
	if _, ok := store.cache.Get(key); ok {
		t.Fatal("cache should not hold an entry before the first load")
	}

	values, code := awaitLoad(t, func(cb LoadCallback) { store.LoadPacket(name, cb) })
	if code != ResultSuccess || len(values) != 1 || string(values[0]) != "v1" {
		t.Fatalf("first load: got %v, code %s", values, code)
	}
	cached, ok := store.cache.Get(key)
	if !ok || len(cached) != 1 || string(cached[0]) != "v1" {
		t.Fatalf("expected load to populate the cache, got %v, ok=%v", cached, ok)
	}

	// A second load must be served from the now-populated cache and still
	// reflect the current value.
	values, code = awaitLoad(t, func(cb LoadCallback) { store.LoadPacket(name, cb) })
	if code != ResultSuccess || len(values) != 1 || string(values[0]) != "v1" {
		t.Fatalf("cached load: got %v, code %s", values, code)
	}

	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v2"), KindMID, PolicyOverwrite, "", cb)
	})
	if _, ok := store.cache.Get(key); ok {
		t.Fatal("expected store to invalidate the cached entry")
	}
	values, code = awaitLoad(t, func(cb LoadCallback) { store.LoadPacket(name, cb) })
	if code != ResultSuccess || len(values) != 1 || string(values[0]) != "v2" {
		t.Fatalf("load after overwrite: got %v, code %s", values, code)
	}
}

func TestMemoryPacketStoreKeyUniqueAndDelete(t *testing.T) {
	store := NewMemoryPacketStore(8, nil)
	name := []byte("name-3")

	if !awaitUnique(t, func(cb KeyUniqueCallback) { store.KeyUnique(name, cb) }) {
		t.Fatal("expected name to be unique before any store")
	}

	awaitStore(t, func(cb StoreCallback) {
		store.StorePacket(name, []byte("v1"), KindMID, PolicyDoNothingReturnFailure, "", cb)
	})
	if awaitUnique(t, func(cb KeyUniqueCallback) { store.KeyUnique(name, cb) }) {
		t.Fatal("expected name to no longer be unique after a store")
	}

	code := awaitStore(t, func(cb StoreCallback) {
		store.DeletePacket(name, nil, KindMID, func(c ResultCode) { cb(c) })
	})
	if code != ResultSuccess {
		t.Fatalf("delete: got %s", code)
	}
	if !awaitUnique(t, func(cb KeyUniqueCallback) { store.KeyUnique(name, cb) }) {
		t.Fatal("expected name to be unique again after delete")
	}
}
