package core

// Completion combinator for callback rendezvous (Design Notes §9): the
// MID/SMID load join in GetUserInfo, the TMID-mid/TMID-smid join, and the
// key_unique(MID)/key_unique(SMID) join in CreateUserSysPackets are all
// two-promise rendezvous. Implemented as a channel receive of the
// expected cardinality rather than an open-coded mutex+bool pair.

import "context"

// rendezvous collects exactly n arrivals, each carrying a typed result,
// which Wait hands back once all n are in. Arrive is safe to call
// concurrently from any number of callback goroutines.
type rendezvous[T any] struct {
	results chan T
	n       int
}

func newRendezvous[T any](n int) *rendezvous[T] {
	return &rendezvous[T]{results: make(chan T, n), n: n}
}

// Arrive records one callback's result. Safe to call from any goroutine;
// never blocks because the channel is buffered to the full cardinality.
func (r *rendezvous[T]) Arrive(v T) {
	r.results <- v
}

// Wait blocks until all n arrivals have been recorded or ctx is done,
// returning the collected results in arrival order.
func (r *rendezvous[T]) Wait(ctx context.Context) ([]T, error) {
	out := make([]T, 0, r.n)
	for i := 0; i < r.n; i++ {
		select {
		case v := <-r.results:
			out = append(out, v)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}
