package core

import (
	"testing"
	"time"

	"authvault/internal/testutil"
)

func TestNewGatewayPacketStoreRequiresURL(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	if _, err := NewGatewayPacketStore(GatewayConfig{CacheDir: sb.Root}); err == nil {
		t.Fatalf("expected error for missing gateway URL")
	}
}

func TestNewGatewayPacketStoreWiresDiskCache(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	store, err := NewGatewayPacketStore(GatewayConfig{
		GatewayURL:       "http://127.0.0.1:5001",
		CacheDir:         sb.Path("cache"),
		CacheSizeEntries: 4,
		Timeout:          time.Second,
	})
	if err != nil {
		t.Fatalf("NewGatewayPacketStore: %v", err)
	}
	if store.cache == nil {
		t.Fatalf("expected disk cache to be initialized")
	}
	if store.cache.dir != sb.Path("cache") {
		t.Fatalf("cache dir mismatch: got %q want %q", store.cache.dir, sb.Path("cache"))
	}
}
