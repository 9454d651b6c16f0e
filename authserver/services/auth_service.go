package services

import (
	"sync"

	"github.com/google/uuid"

	"authvault/core"
	"authvault/pkg/config"
)

// AuthService wraps per-client core.Engine instances behind the HTTP API,
// keyed by an opaque session token since core.SessionStore is deliberately
// not a singleton (core/session.go) and HTTP requests are stateless.
type AuthService struct {
	store core.PacketStore
	pool  *core.KeyPairPool
	cfg   *config.Config

	mu       sync.RWMutex
	sessions map[string]*core.Engine
}

// NewService wires a shared store and key-pair pool for every session the
// HTTP layer creates.
func NewService(cfg *config.Config) (*AuthService, error) {
	var store core.PacketStore
	if cfg.Store.Backend == "gateway" {
		gw, err := core.NewGatewayPacketStore(core.GatewayConfig{
			GatewayURL:       cfg.Store.GatewayURL,
			CacheDir:         cfg.Store.CacheDir,
			CacheSizeEntries: cfg.Store.CacheSizeEntries,
			Timeout:          cfg.Store.Timeout,
		})
		if err != nil {
			return nil, err
		}
		store = gw
	} else {
		store = core.NewMemoryPacketStore(cfg.Store.CacheSizeEntries, nil)
	}

	pool, err := core.NewKeyPairPool(cfg.Engine.MaxCryptoThreadCount, cfg.Engine.CryptoKeyBufferCount, nil)
	if err != nil {
		return nil, err
	}
	return &AuthService{store: store, pool: pool, cfg: cfg, sessions: make(map[string]*core.Engine)}, nil
}

// NewSession creates a fresh Engine bound to this service's store and pool,
// registers it under a new token, and returns both.
func (s *AuthService) NewSession() (string, *core.Engine) {
	token := uuid.NewString()
	engine := core.NewEngine(s.store, s.pool, core.NewSessionStore(), nil, s.cfg.Engine.FlowTimeout)
	s.mu.Lock()
	s.sessions[token] = engine
	s.mu.Unlock()
	return token, engine
}

// Session looks up a previously registered Engine by token.
func (s *AuthService) Session(token string) (*core.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.sessions[token]
	return engine, ok
}

// EndSession discards a session's Engine.
func (s *AuthService) EndSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Close releases the service's key-pair pool.
func (s *AuthService) Close() { s.pool.Close() }
