package core

// GatewayPacketStore is a PacketStore backed by an IPFS gateway, adapted
// from the teacher's core.Storage (core/storage.go): packet values are
// content-addressed as CIDv1 blobs pinned through the gateway's HTTP API,
// fronted by the same kind of on-disk LRU cache, logged through
// go.uber.org/zap the way storage.go's Pin/Retrieve do. A small in-memory
// revision index maps each packet *name* (its §3 hash, not a content
// hash) to the ordered list of CIDs currently stored under it, since
// MID/SMID overwrite and TMID append semantics have no IPFS-native
// analogue over immutable content addresses.

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"go.uber.org/zap"
)

// GatewayConfig configures a GatewayPacketStore.
type GatewayConfig struct {
	GatewayURL       string
	CacheDir         string
	CacheSizeEntries int
	Timeout          time.Duration
}

type diskLRU struct {
	mu    sync.Mutex
	dir   string
	max   int
	index map[string]*diskEntry
	order []*diskEntry
}

type diskEntry struct {
	path string
	at   time.Time
}

func newDiskLRU(dir string, maxEntries int) (*diskLRU, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskLRU{dir: dir, max: maxEntries, index: make(map[string]*diskEntry)}, nil
}

func (l *diskLRU) put(cidStr string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[cidStr]; ok {
		return nil
	}
	if len(l.index) >= l.max && len(l.order) > 0 {
		oldest := l.order[0]
		_ = os.Remove(oldest.path)
		delete(l.index, filepath.Base(oldest.path))
		l.order = l.order[1:]
	}
	p := filepath.Join(l.dir, cidStr)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	ent := &diskEntry{path: p, at: time.Now()}
	l.index[cidStr] = ent
	l.order = append(l.order, ent)
	return nil
}

func (l *diskLRU) get(cidStr string) ([]byte, bool) {
	l.mu.Lock()
	ent, ok := l.index[cidStr]
	if ok {
		// Move the entry to the most-recently-used end of order.
		for i, e := range l.order {
			if e == ent {
				copy(l.order[i:], l.order[i+1:])
				l.order[len(l.order)-1] = ent
				break
			}
		}
		ent.at = time.Now()
	}
	l.mu.Unlock()
	if !ok {
		return nil, false
	}
	b, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// GatewayPacketStore implements PacketStore against an IPFS gateway.
type GatewayPacketStore struct {
	cfg    GatewayConfig
	client *http.Client
	cache  *diskLRU

	mu    sync.Mutex
	index map[string][]string // packet name (hex) -> ordered CIDs
}

// NewGatewayPacketStore wires a gateway-backed store.
func NewGatewayPacketStore(cfg GatewayConfig) (*GatewayPacketStore, error) {
	if cfg.GatewayURL == "" {
		return nil, errors.New("store: gateway URL required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cache, err := newDiskLRU(cfg.CacheDir, cfg.CacheSizeEntries)
	if err != nil {
		return nil, fmt.Errorf("store: cache: %w", err)
	}
	zap.L().Sugar().Infof("store: gateway %s cache %s", cfg.GatewayURL, cfg.CacheDir)
	return &GatewayPacketStore{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		index:  make(map[string][]string),
	}, nil
}

func (g *GatewayPacketStore) pin(ctx context.Context, data []byte) (string, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	cidStr := cid.NewCidV1(cid.Raw, sum).String()
	if _, ok := g.cache.get(cidStr); ok {
		return cidStr, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.GatewayURL+"/api/v0/add?pin=true", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("store: gateway pin %d: %s", resp.StatusCode, string(b))
	}
	var meta struct{ Hash string }
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("store: decode pin response: %w", err)
	}
	_ = g.cache.put(cidStr, data)
	return cidStr, nil
}

func (g *GatewayPacketStore) fetch(ctx context.Context, cidStr string) ([]byte, error) {
	if b, ok := g.cache.get(cidStr); ok {
		return b, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.GatewayURL+"/ipfs/"+cidStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 128))
		return nil, fmt.Errorf("store: gateway fetch %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = g.cache.put(cidStr, data)
	return data, nil
}

func (g *GatewayPacketStore) LoadPacket(name []byte, cb LoadCallback) {
	key := hex.EncodeToString(name)
	go func() {
		g.mu.Lock()
		cids := append([]string(nil), g.index[key]...)
		g.mu.Unlock()
		if len(cids) == 0 {
			cb(nil, ResultGeneralError)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.Timeout)
		defer cancel()
		values := make([][]byte, 0, len(cids))
		for _, c := range cids {
			data, err := g.fetch(ctx, c)
			if err != nil {
				zap.L().Sugar().Errorf("store: fetch %s: %v", c, err)
				cb(nil, ResultGeneralError)
				return
			}
			values = append(values, data)
		}
		cb(values, ResultSuccess)
	}()
}

func (g *GatewayPacketStore) StorePacket(name, value []byte, kind PacketKind, policy StorePolicy, msid string, cb StoreCallback) {
	key := hex.EncodeToString(name)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.Timeout)
		defer cancel()

		g.mu.Lock()
		existing := g.index[key]
		g.mu.Unlock()

		if policy == PolicyDoNothingReturnFailure && len(existing) > 0 {
			cb(ResultNack)
			return
		}

		cidStr, err := g.pin(ctx, value)
		if err != nil {
			zap.L().Sugar().Errorf("store: pin %s: %v", kind, err)
			cb(ResultGeneralError)
			return
		}

		g.mu.Lock()
		switch policy {
		case PolicyAppend:
			g.index[key] = append(g.index[key], cidStr)
		default: // overwrite or first write under do-nothing
			g.index[key] = []string{cidStr}
		}
		g.mu.Unlock()

		cb(ResultSuccess)
	}()
}

func (g *GatewayPacketStore) DeletePacket(name []byte, values [][]byte, kind PacketKind, cb DeleteCallback) {
	key := hex.EncodeToString(name)
	go func() {
		if len(values) == 0 {
			g.mu.Lock()
			delete(g.index, key)
			g.mu.Unlock()
			cb(ResultSuccess)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.Timeout)
		defer cancel()

		g.mu.Lock()
		cids := append([]string(nil), g.index[key]...)
		g.mu.Unlock()

		remaining := make([]string, 0, len(cids))
		for _, c := range cids {
			data, err := g.fetch(ctx, c)
			if err == nil && containsValue(values, data) {
				continue
			}
			remaining = append(remaining, c)
		}

		g.mu.Lock()
		if len(remaining) == 0 {
			delete(g.index, key)
		} else {
			g.index[key] = remaining
		}
		g.mu.Unlock()
		cb(ResultSuccess)
	}()
}

func (g *GatewayPacketStore) KeyUnique(name []byte, cb KeyUniqueCallback) {
	key := hex.EncodeToString(name)
	go func() {
		g.mu.Lock()
		n := len(g.index[key])
		g.mu.Unlock()
		cb(n == 0)
	}()
}
