package core

// Session store (C4): per-client mutable state. Per Design Notes §9, this
// is a value returned by NewSessionStore — never a process-wide singleton
// — so independent test harnesses (and independent logged-in clients) can
// hold their own session concurrently. Every method is individually
// atomic with respect to other SessionStore operations; no compound
// transaction spans a lock acquisition (§5).

import (
	"crypto/rsa"
	"sync"
)

// KeyRecord is an identity key record held per packet kind (§3). Held as
// live *rsa keys rather than a serialized form: the session store never
// crosses a process boundary, so there is nothing to gain from encoding
// keys before they are needed on the wire inside a packet value.
type KeyRecord struct {
	ID                 string
	PrivateKey         *rsa.PrivateKey
	PublicKey          *rsa.PublicKey
	PublicKeyDER       []byte
	PublicKeySignature []byte
}

// PrivateShare is the minimal bookkeeping row for an MSID-backed share.
type PrivateShare struct {
	MSIDName string
	Members  []string
}

// SessionStore holds everything the engine needs to remember between
// async steps of a single client's flows.
type SessionStore struct {
	mu sync.RWMutex

	username string
	pin      string
	password string

	keys map[PacketKind]*KeyRecord

	midRid uint32
	smidRid uint32

	tmidContent     []byte // ciphertext reachable from MID.rid
	smidTmidContent []byte // ciphertext reachable from SMID.rid

	shares map[string]*PrivateShare
}

// NewSessionStore returns a freshly zeroed session.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		keys:   make(map[PacketKind]*KeyRecord),
		shares: make(map[string]*PrivateShare),
	}
}

// Reset clears all fields, required between user sessions (§4.4),
// including inside test harnesses that reuse a SessionStore across cases.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.pin = ""
	s.password = ""
	s.keys = make(map[PacketKind]*KeyRecord)
	s.midRid = 0
	s.smidRid = 0
	s.tmidContent = nil
	s.smidTmidContent = nil
	s.shares = make(map[string]*PrivateShare)
}

// AddKey rejects if a record of that kind already exists (§4.4, invariant 3).
func (s *SessionStore) AddKey(kind PacketKind, rec KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[kind]; exists {
		return errKeyExists
	}
	s.keys[kind] = &rec
	return nil
}

// RemoveKey is idempotent.
func (s *SessionStore) RemoveKey(kind PacketKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, kind)
}

// Key returns a copy of the key record for kind, if any.
func (s *SessionStore) Key(kind PacketKind) (KeyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.keys[kind]
	if !ok {
		return KeyRecord{}, false
	}
	return *rec, true
}

// RequireKey is Key for call sites that must treat a missing record as a
// hard failure rather than silently signing with a zero-value key.
func (s *SessionStore) RequireKey(kind PacketKind) (KeyRecord, error) {
	rec, ok := s.Key(kind)
	if !ok {
		return KeyRecord{}, errKeyNotFound
	}
	return rec, nil
}

func (s *SessionStore) SetUsername(u string) { s.mu.Lock(); s.username = u; s.mu.Unlock() }
func (s *SessionStore) SetPin(p string)       { s.mu.Lock(); s.pin = p; s.mu.Unlock() }
func (s *SessionStore) SetPassword(p string)  { s.mu.Lock(); s.password = p; s.mu.Unlock() }

func (s *SessionStore) Username() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.username }
func (s *SessionStore) Pin() string      { s.mu.RLock(); defer s.mu.RUnlock(); return s.pin }
func (s *SessionStore) Password() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.password }

func (s *SessionStore) SetMidRid(r uint32)  { s.mu.Lock(); s.midRid = r; s.mu.Unlock() }
func (s *SessionStore) SetSmidRid(r uint32) { s.mu.Lock(); s.smidRid = r; s.mu.Unlock() }
func (s *SessionStore) MidRid() uint32      { s.mu.RLock(); defer s.mu.RUnlock(); return s.midRid }
func (s *SessionStore) SmidRid() uint32     { s.mu.RLock(); defer s.mu.RUnlock(); return s.smidRid }

func (s *SessionStore) SetTmidContent(b []byte) { s.mu.Lock(); s.tmidContent = b; s.mu.Unlock() }
func (s *SessionStore) TmidContent() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmidContent
}

func (s *SessionStore) SetSmidTmidContent(b []byte) {
	s.mu.Lock()
	s.smidTmidContent = b
	s.mu.Unlock()
}
func (s *SessionStore) SmidTmidContent() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.smidTmidContent
}

// Forbidden returns the {mid_rid, smid_rid} set a fresh rid sample must
// avoid colliding with (§4.3).
func (s *SessionStore) Forbidden() map[uint32]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[uint32]bool{s.midRid: true, s.smidRid: true}
}

// PutShare records a newly created private share.
func (s *SessionStore) PutShare(share *PrivateShare) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[share.MSIDName] = share
}

// RemoveShare discards bookkeeping for a destroyed share.
func (s *SessionStore) RemoveShare(msidName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shares, msidName)
}

// snapshot captures the old identity's rid/content/credentials so
// changeIdentifier can keep issuing deletes and witnesses against them
// after it has stored the new identity's packets (§4.6.6 step 1, §3
// invariant 5). changeIdentifier only commits the new
// values on its success path, so a mid-flow failure never touches the
// session at all and there is nothing to roll back.
type sessionSnapshot struct {
	midRid          uint32
	smidRid         uint32
	tmidContent     []byte
	smidTmidContent []byte
	username        string
	pin             string
}

func (s *SessionStore) snapshot() sessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionSnapshot{
		midRid:          s.midRid,
		smidRid:         s.smidRid,
		tmidContent:     s.tmidContent,
		smidTmidContent: s.smidTmidContent,
		username:        s.username,
		pin:             s.pin,
	}
}
