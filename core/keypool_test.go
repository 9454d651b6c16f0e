package core

import (
	"context"
	"testing"
	"time"
)

func TestKeyPairPoolGetAndClose(t *testing.T) {
	pool, err := NewKeyPairPool(2, 4, nil)
	if err != nil {
		t.Fatalf("NewKeyPairPool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if key == nil {
		t.Fatal("Get returned a nil key")
	}

	pool.Close()
	pool.Close() // must be idempotent
}

func TestNewKeyPairPoolRejectsInvalidConfig(t *testing.T) {
	if _, err := NewKeyPairPool(0, 4, nil); err == nil {
		t.Fatal("expected an error for zero workerCount")
	}
	if _, err := NewKeyPairPool(2, 0, nil); err == nil {
		t.Fatal("expected an error for zero bufferSize")
	}
}
