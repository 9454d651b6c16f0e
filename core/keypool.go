package core

// Key-pair pool (C2): pre-generates RSA key-pairs on a bounded set of
// worker goroutines so RSA key-gen — the dominant latency in account
// creation — never stalls the orchestration state machine in
// auth_engine.go. Shutdown cancels in-flight generators and drains
// workers cleanly, following the same sync.Once-guarded Close pattern as
// the teacher's ConnPool (core/connection_pool.go).

import (
	"context"
	"crypto/rsa"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// KeyPairPool maintains up to bufferSize ready RSA key-pairs, replenished
// by workerCount background goroutines.
type KeyPairPool struct {
	ready     chan *rsa.PrivateKey
	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	logger    *log.Logger
}

// NewKeyPairPool starts workerCount generator goroutines feeding a channel
// buffered to bufferSize. Both must be positive.
func NewKeyPairPool(workerCount, bufferSize int, logger *log.Logger) (*KeyPairPool, error) {
	if workerCount <= 0 || bufferSize <= 0 {
		return nil, errInvalidPoolConfig
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	p := &KeyPairPool{
		ready:  make(chan *rsa.PrivateKey, bufferSize),
		cancel: cancel,
		group:  group,
		logger: logger,
	}

	for i := 0; i < workerCount; i++ {
		group.Go(func() error {
			return p.generateLoop(gctx)
		})
	}

	logger.Infof("keypool: started %d workers, buffer %d", workerCount, bufferSize)
	return p, nil
}

func (p *KeyPairPool) generateLoop(ctx context.Context) error {
	for {
		key, err := GenerateRSAKeyPair()
		if err != nil {
			p.logger.Errorf("keypool: generate: %v", err)
			continue
		}
		select {
		case p.ready <- key:
		case <-ctx.Done():
			return nil
		}
	}
}

// Get blocks until a key-pair is available or ctx is cancelled.
func (p *KeyPairPool) Get(ctx context.Context) (*rsa.PrivateKey, error) {
	select {
	case key, ok := <-p.ready:
		if !ok {
			return nil, errPoolClosed
		}
		return key, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels all generator goroutines and drains the pool.
func (p *KeyPairPool) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		_ = p.group.Wait()
		close(p.ready)
		p.logger.Info("keypool: closed")
	})
}
