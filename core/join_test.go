package core

import (
	"context"
	"testing"
	"time"
)

func TestRendezvousCollectsAllArrivals(t *testing.T) {
	r := newRendezvous[int](3)
	go r.Arrive(1)
	go r.Arrive(2)
	go r.Arrive(3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := r.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Wait: got %d results, want 3", len(got))
	}
	sum := 0
	for _, v := range got {
		sum += v
	}
	if sum != 6 {
		t.Fatalf("Wait: sum = %d, want 6", sum)
	}
}

func TestRendezvousTimesOutOnShortArrival(t *testing.T) {
	r := newRendezvous[int](2)
	go r.Arrive(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Wait(ctx)
	if err == nil {
		t.Fatal("Wait: expected a timeout error for a missing arrival")
	}
}
