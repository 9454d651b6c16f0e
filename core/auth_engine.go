package core

// Authentication engine (C6): orchestrates the nine user-visible flows
// over the packet factory (C3), session store (C4) and remote-store
// adapter (C5), enforcing §3's invariants. Every public method is
// synchronous to its caller — it drives one or more asynchronous C5
// calls to completion via the join combinator (join.go) or a single
// blocking channel receive, then returns a terminal ResultCode, mirroring
// the "blocks on a condition variable" contract of §5.

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultFlowTimeout = 30 * time.Second

// Engine drives the authentication flows for a single client session.
type Engine struct {
	store   PacketStore
	pool    *KeyPairPool
	session *SessionStore
	logger  *log.Logger
	timeout time.Duration
}

// NewEngine wires an Engine. A nil logger falls back to logrus's standard
// logger; a zero timeout falls back to defaultFlowTimeout.
func NewEngine(store PacketStore, pool *KeyPairPool, session *SessionStore, logger *log.Logger, timeout time.Duration) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if timeout <= 0 {
		timeout = defaultFlowTimeout
	}
	return &Engine{store: store, pool: pool, session: session, logger: logger, timeout: timeout}
}

// Session exposes the engine's session store, mainly for tests that want
// to inspect post-flow state directly.
func (e *Engine) Session() *SessionStore { return e.session }

// Reset clears the session, required between user sessions (§4.4).
func (e *Engine) Reset() { e.session.Reset() }

func (e *Engine) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

// --- synchronous wrappers over the callback-based C5 contract --------------
//
// A single C5 call is awaited with a plain buffered channel; these are not
// the two-promise joins Design Notes §9 calls out (those use join.go's
// rendezvous) because a single call has no concurrent arrival to
// coordinate.

func (e *Engine) syncLoad(ctx context.Context, name []byte) ([][]byte, ResultCode) {
	type loadResult struct {
		values [][]byte
		code   ResultCode
	}
	ch := make(chan loadResult, 1)
	e.store.LoadPacket(name, func(values [][]byte, code ResultCode) {
		ch <- loadResult{values, code}
	})
	select {
	case r := <-ch:
		return r.values, r.code
	case <-ctx.Done():
		return nil, ResultAuthenticationError
	}
}

func (e *Engine) syncStore(ctx context.Context, name, value []byte, kind PacketKind, policy StorePolicy, msid string) ResultCode {
	ch := make(chan ResultCode, 1)
	e.store.StorePacket(name, value, kind, policy, msid, func(code ResultCode) { ch <- code })
	select {
	case code := <-ch:
		return code
	case <-ctx.Done():
		return ResultAuthenticationError
	}
}

func (e *Engine) syncDelete(ctx context.Context, name []byte, values [][]byte, kind PacketKind) ResultCode {
	ch := make(chan ResultCode, 1)
	e.store.DeletePacket(name, values, kind, func(code ResultCode) { ch <- code })
	select {
	case code := <-ch:
		return code
	case <-ctx.Done():
		return ResultAuthenticationError
	}
}

func (e *Engine) syncKeyUnique(ctx context.Context, name []byte) bool {
	ch := make(chan bool, 1)
	e.store.KeyUnique(name, func(unique bool) { ch <- unique })
	select {
	case unique := <-ch:
		return unique
	case <-ctx.Done():
		return false
	}
}

// --- DataMap envelope --------------------------------------------------
//
// DataMap content is opaque and out of scope (§1); the engine only needs
// to tell "decrypted under the right password" from "decrypted under the
// wrong one", since AES-CTR never itself errors on a bad key. A thin
// checksum envelope gives GetUserData something to parse-check.

func wrapDataMap(raw []byte) []byte {
	sum := HashBytes(raw)
	return append(sum, raw...)
}

func unwrapDataMap(enc []byte) ([]byte, bool) {
	if len(enc) < 64 {
		return nil, false
	}
	sum, payload := enc[:64], enc[64:]
	if !bytes.Equal(sum, HashBytes(payload)) {
		return nil, false
	}
	return payload, true
}

// --- 4.6.1 GetUserInfo ---------------------------------------------------

type midOutcome struct {
	kind    PacketKind
	rid     uint32
	ok      bool
	content []byte
}

// GetUserInfo fans out MID/SMID loads, then loads whichever TMIDs they
// point to. Session username/PIN are committed regardless of outcome.
func (e *Engine) GetUserInfo(username, pin string) ResultCode {
	defer func() {
		e.session.SetUsername(username)
		e.session.SetPin(pin)
	}()

	ctx, cancel := e.ctx()
	defer cancel()

	join := newRendezvous[midOutcome](2)
	fetch := func(kind PacketKind) {
		name := locatorName(kind, username, pin)
		values, code := e.syncLoad(ctx, name)
		if code != ResultSuccess || len(values) == 0 {
			join.Arrive(midOutcome{kind: kind})
			return
		}
		res, err := Factory(kind).GetData(values[0], CreateParams{Username: username, PIN: pin})
		if err != nil {
			join.Arrive(midOutcome{kind: kind})
			return
		}
		join.Arrive(midOutcome{kind: kind, rid: res.Rid, ok: true})
	}
	go fetch(KindMID)
	go fetch(KindSMID)

	outcomes, err := join.Wait(ctx)
	if err != nil {
		return ResultAuthenticationError
	}

	var midOK, smidOK bool
	for _, o := range outcomes {
		if !o.ok {
			continue
		}
		switch o.kind {
		case KindMID:
			midOK = true
			e.session.SetMidRid(o.rid)
		case KindSMID:
			smidOK = true
			e.session.SetSmidRid(o.rid)
		}
	}
	if !midOK && !smidOK {
		return ResultUserDoesntExist
	}

	type tmidFetch struct {
		kind PacketKind
		rid  uint32
	}
	var fetches []tmidFetch
	if midOK {
		fetches = append(fetches, tmidFetch{kind: KindMID, rid: e.session.MidRid()})
	}
	if smidOK {
		fetches = append(fetches, tmidFetch{kind: KindSMID, rid: e.session.SmidRid()})
	}

	tjoin := newRendezvous[midOutcome](len(fetches))
	for _, f := range fetches {
		go func(f tmidFetch) {
			values, code := e.syncLoad(ctx, tmidName(username, pin, f.rid))
			if code != ResultSuccess || len(values) == 0 {
				tjoin.Arrive(midOutcome{kind: f.kind, rid: f.rid})
				return
			}
			tjoin.Arrive(midOutcome{kind: f.kind, rid: f.rid, ok: true, content: values[0]})
		}(f)
	}
	outcomes, err = tjoin.Wait(ctx)
	if err != nil {
		return ResultAuthenticationError
	}
	found := false
	for _, o := range outcomes {
		if !o.ok {
			continue
		}
		found = true
		switch o.kind {
		case KindMID:
			e.session.SetTmidContent(o.content)
		case KindSMID:
			e.session.SetSmidTmidContent(o.content)
		}
	}
	if !found {
		return ResultAuthenticationError
	}
	return ResultUserExists
}

// --- 4.6.2 GetUserData ----------------------------------------------------

// GetUserData decodes the session's current TMID content under password.
// A parse failure (wrong password) and an authentication failure are
// deliberately indistinguishable, both surfacing as ResultPasswordFailure.
func (e *Engine) GetUserData(password string) (ResultCode, []byte) {
	if e.session.Username() == "" {
		e.logger.WithError(errNoSessionLogin).Debug("auth: GetUserData called before GetUserInfo/CreateUserSysPackets")
		return ResultAuthenticationError, nil
	}
	params := CreateParams{
		Username: e.session.Username(),
		PIN:      e.session.Pin(),
		Password: password,
		Rid:      e.session.MidRid(),
	}
	res, err := Factory(KindTMID).GetData(e.session.TmidContent(), params)
	if err != nil {
		return ResultPasswordFailure, nil
	}
	payload, ok := unwrapDataMap(res.EncData)
	if !ok {
		return ResultPasswordFailure, nil
	}
	e.session.SetPassword(password)
	return ResultSuccess, payload
}

// --- 4.6.3 CreateUserSysPackets -------------------------------------------

// CreateUserSysPackets builds the ANMAID→MAID→PMID, ANMID→MID,
// ANSMID→SMID, ANTMID chain in that deterministic order.
func (e *Engine) CreateUserSysPackets(username, pin string) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	midName := locatorName(KindMID, username, pin)
	smidName := locatorName(KindSMID, username, pin)

	join := newRendezvous[bool](2)
	go func() { join.Arrive(e.syncKeyUnique(ctx, midName)) }()
	go func() { join.Arrive(e.syncKeyUnique(ctx, smidName)) }()
	uniques, err := join.Wait(ctx)
	if err != nil {
		return ResultAuthenticationError
	}
	for _, u := range uniques {
		if !u {
			return ResultUserExists
		}
	}

	stored := 0

	// ANMAID (self-signed)
	anmaidRec, code := e.createSignatureLink(ctx, KindANMAID, nil)
	if code != ResultSuccess {
		return code
	}
	stored++

	// MAID, signed by ANMAID
	maidRec, code := e.createSignatureLink(ctx, KindMAID, anmaidRec.PrivateKey)
	if code != ResultSuccess {
		return code
	}
	stored++

	// PMID, signed by MAID
	_, code = e.createSignatureLink(ctx, KindPMID, maidRec.PrivateKey)
	if code != ResultSuccess {
		return code
	}
	stored++

	// ANMID (self-signed)
	anmidRec, code := e.createSignatureLink(ctx, KindANMID, nil)
	if code != ResultSuccess {
		return code
	}
	stored++

	// MID, signed by ANMID
	midRes, err := Factory(KindMID).Create(ctx, CreateParams{
		Username: username, PIN: pin, SignerPrivateKey: anmidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		e.session.RemoveKey(KindANMID)
		return ResultAuthenticationError
	}
	if e.syncStore(ctx, midRes.Name, midRes.EncRid, KindMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		e.session.RemoveKey(KindANMID)
		return ResultAuthenticationError
	}
	e.session.SetMidRid(midRes.Rid)
	stored++

	// ANSMID (self-signed)
	ansmidRec, code := e.createSignatureLink(ctx, KindANSMID, nil)
	if code != ResultSuccess {
		return code
	}
	stored++

	// SMID, rid = MID.rid (fresh account, no rotation yet)
	smidRes, err := Factory(KindSMID).Create(ctx, CreateParams{
		Username: username, PIN: pin, Rid: e.session.MidRid(), SignerPrivateKey: ansmidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		e.session.RemoveKey(KindANSMID)
		return ResultAuthenticationError
	}
	if e.syncStore(ctx, smidRes.Name, smidRes.EncRid, KindSMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		e.session.RemoveKey(KindANSMID)
		return ResultAuthenticationError
	}
	e.session.SetSmidRid(smidRes.Rid)
	stored++

	// ANTMID (self-signed, terminal)
	_, code = e.createSignatureLink(ctx, KindANTMID, nil)
	if code != ResultSuccess {
		return code
	}
	stored++

	if stored != NoOfSystemPackets-1 {
		e.logger.Debugf("auth: system packet chain stored %d links (configured threshold %d)", stored, NoOfSystemPackets)
	}
	return ResultSuccess
}

// createSignatureLink creates kind (signed by signer, or self-signed if
// signer is nil), regenerating on a key_unique collision, stores the
// public key, and either commits the key record to the session or rolls
// it back on a store failure (§4.6.3 point 4).
func (e *Engine) createSignatureLink(ctx context.Context, kind PacketKind, signer *rsa.PrivateKey) (KeyRecord, ResultCode) {
	const maxRegenerate = 8
	var result *PacketResult
	for attempt := 0; attempt < maxRegenerate; attempt++ {
		res, err := Factory(kind).Create(ctx, CreateParams{SignerPrivateKey: signer}, e.pool)
		if err != nil {
			return KeyRecord{}, ResultAuthenticationError
		}
		if e.syncKeyUnique(ctx, res.Name) {
			result = res
			break
		}
	}
	if result == nil {
		return KeyRecord{}, ResultAuthenticationError
	}

	rec := KeyRecord{
		ID:                 fmt.Sprintf("%x", result.Name),
		PrivateKey:         result.PrivateKey,
		PublicKey:          result.PublicKey,
		PublicKeyDER:       result.SerializedPacket,
		PublicKeySignature: result.Signature,
	}
	if err := e.session.AddKey(kind, rec); err != nil {
		return KeyRecord{}, ResultAuthenticationError
	}
	if e.syncStore(ctx, result.Name, result.SerializedPacket, kind, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		e.session.RemoveKey(kind)
		return KeyRecord{}, ResultAuthenticationError
	}
	return rec, ResultSuccess
}

// --- 4.6.4 CreateTmidPacket ------------------------------------------------

// CreateTmidPacket persists the first TMID for the current MID.rid.
func (e *Engine) CreateTmidPacket(username, pin, password string, serDM []byte) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	rid := e.session.MidRid()
	antmidRec, err := e.session.RequireKey(KindANTMID)
	if err != nil {
		return ResultAuthenticationError
	}

	res, err := Factory(KindTMID).Create(ctx, CreateParams{
		Username: username, PIN: pin, Password: password, Rid: rid,
		Data: wrapDataMap(serDM), SignerPrivateKey: antmidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		return ResultAuthenticationError
	}

	if e.syncStore(ctx, res.Name, res.EncData, KindTMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}

	e.session.SetUsername(username)
	e.session.SetPin(pin)
	e.session.SetPassword(password)
	e.session.SetTmidContent(res.EncData)
	e.session.SetSmidTmidContent(res.EncData)
	return ResultSuccess
}

// --- 4.6.5 SaveSession -----------------------------------------------------

// SaveSession rotates MID/SMID/TMID: a new MID.rid is drawn, the old
// MID/TMID become the new SMID/SMID-TMID, and a fresh TMID is stored
// before the MID pointer is advanced, so an interrupted rotation leaves
// the previous session reachable (§4.6.5).
func (e *Engine) SaveSession(serDM []byte) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	username, pin, password := e.session.Username(), e.session.Pin(), e.session.Password()
	if username == "" {
		return ResultAuthenticationError
	}

	midRid, smidRid := e.session.MidRid(), e.session.SmidRid()

	if midRid != smidRid {
		ansmidRec, err := e.session.RequireKey(KindANSMID)
		if err != nil {
			return ResultAuthenticationError
		}
		smidRes, err := Factory(KindSMID).Create(ctx, CreateParams{
			Username: username, PIN: pin, Rid: midRid, SignerPrivateKey: ansmidRec.PrivateKey,
		}, e.pool)
		if err != nil {
			return ResultAuthenticationError
		}
		if e.syncStore(ctx, smidRes.Name, smidRes.EncRid, KindSMID, PolicyOverwrite, "") != ResultSuccess {
			return ResultAuthenticationError
		}

		oldTmidName := tmidName(username, pin, smidRid)
		e.syncDelete(ctx, oldTmidName, [][]byte{e.session.SmidTmidContent()}, KindTMID)

		e.session.SetSmidRid(midRid)
		e.session.SetSmidTmidContent(e.session.TmidContent())
	}

	newRid, err := sampleRid(map[uint32]bool{midRid: true, smidRid: true})
	if err != nil {
		return ResultAuthenticationError
	}

	antmidRec, err := e.session.RequireKey(KindANTMID)
	if err != nil {
		return ResultAuthenticationError
	}
	tmidRes, err := Factory(KindTMID).Create(ctx, CreateParams{
		Username: username, PIN: pin, Password: password, Rid: newRid,
		Data: wrapDataMap(serDM), SignerPrivateKey: antmidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		return ResultAuthenticationError
	}
	if e.syncStore(ctx, tmidRes.Name, tmidRes.EncData, KindTMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}
	e.session.SetTmidContent(tmidRes.EncData)

	anmidRec, err := e.session.RequireKey(KindANMID)
	if err != nil {
		return ResultAuthenticationError
	}
	midRes, err := Factory(KindMID).Create(ctx, CreateParams{
		Username: username, PIN: pin, Rid: newRid, SignerPrivateKey: anmidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		return ResultAuthenticationError
	}
	if e.syncStore(ctx, midRes.Name, midRes.EncRid, KindMID, PolicyOverwrite, "") != ResultSuccess {
		return ResultAuthenticationError
	}
	e.session.SetMidRid(newRid)
	return ResultSuccess
}

// --- 4.6.6 ChangeUsername / ChangePin -------------------------------------

func (e *Engine) ChangeUsername(serDM []byte, newUsername string) ResultCode {
	return e.changeIdentifier(serDM, newUsername, e.session.Pin())
}

func (e *Engine) ChangePin(serDM []byte, newPin string) ResultCode {
	return e.changeIdentifier(serDM, e.session.Username(), newPin)
}

// changeIdentifier implements §4.6.6's shared shape for both flows: the
// old identity's snapshot is kept so a failure midway never loses the
// caller's ability to retry against the untouched old MID/SMID/TMID trio.
func (e *Engine) changeIdentifier(serDM []byte, newUsername, newPin string) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	oldUsername, oldPin := e.session.Username(), e.session.Pin()
	snap := e.session.snapshot()

	newMidName := locatorName(KindMID, newUsername, newPin)
	newSmidName := locatorName(KindSMID, newUsername, newPin)

	join := newRendezvous[bool](2)
	go func() { join.Arrive(e.syncKeyUnique(ctx, newMidName)) }()
	go func() { join.Arrive(e.syncKeyUnique(ctx, newSmidName)) }()
	uniques, err := join.Wait(ctx)
	if err != nil {
		return ResultAuthenticationError
	}
	for _, u := range uniques {
		if !u {
			return ResultUserExists
		}
	}

	anmidRec, err := e.session.RequireKey(KindANMID)
	if err != nil {
		return ResultAuthenticationError
	}
	ansmidRec, err := e.session.RequireKey(KindANSMID)
	if err != nil {
		return ResultAuthenticationError
	}
	antmidRec, err := e.session.RequireKey(KindANTMID)
	if err != nil {
		return ResultAuthenticationError
	}

	newMidRid, err := sampleRid(nil)
	if err != nil {
		return ResultAuthenticationError
	}
	midRes, err := Factory(KindMID).Create(ctx, CreateParams{
		Username: newUsername, PIN: newPin, Rid: newMidRid, SignerPrivateKey: anmidRec.PrivateKey,
	}, e.pool)
	if err != nil || e.syncStore(ctx, midRes.Name, midRes.EncRid, KindMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}

	newSmidRid, err := sampleRid(map[uint32]bool{snap.midRid: true, snap.smidRid: true, newMidRid: true})
	if err != nil {
		return ResultAuthenticationError
	}
	smidRes, err := Factory(KindSMID).Create(ctx, CreateParams{
		Username: newUsername, PIN: newPin, Rid: newSmidRid, SignerPrivateKey: ansmidRec.PrivateKey,
	}, e.pool)
	if err != nil || e.syncStore(ctx, smidRes.Name, smidRes.EncRid, KindSMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}

	password := e.session.Password()

	newMidTmid, err := Factory(KindTMID).Create(ctx, CreateParams{
		Username: newUsername, PIN: newPin, Password: password, Rid: newMidRid,
		Data: wrapDataMap(serDM), SignerPrivateKey: antmidRec.PrivateKey,
	}, e.pool)
	if err != nil || e.syncStore(ctx, newMidTmid.Name, newMidTmid.EncData, KindTMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}

	oldTmidValue := e.session.TmidContent()
	oldDecoded, err := Factory(KindTMID).GetData(oldTmidValue, CreateParams{
		Username: oldUsername, PIN: oldPin, Password: password, Rid: snap.midRid,
	})
	if err != nil {
		return ResultAuthenticationError
	}
	// oldDecoded.EncData is already the wrap-checksummed envelope (the same
	// bytes CreateTmidPacket/SaveSession stored), so it is reused verbatim
	// rather than wrapped a second time.
	newSmidTmid, err := Factory(KindTMID).Create(ctx, CreateParams{
		Username: newUsername, PIN: newPin, Password: password, Rid: newSmidRid,
		Data: oldDecoded.EncData, SignerPrivateKey: antmidRec.PrivateKey,
	}, e.pool)
	if err != nil || e.syncStore(ctx, newSmidTmid.Name, newSmidTmid.EncData, KindTMID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError
	}

	oldMidName := locatorName(KindMID, oldUsername, oldPin)
	oldSmidName := locatorName(KindSMID, oldUsername, oldPin)
	if oldMidWitness, err := EncryptRid(snap.midRid, oldUsername, oldPin); err == nil {
		e.syncDelete(ctx, oldMidName, [][]byte{oldMidWitness}, KindMID)
	}
	if oldSmidWitness, err := EncryptRid(snap.smidRid, oldUsername, oldPin); err == nil {
		e.syncDelete(ctx, oldSmidName, [][]byte{oldSmidWitness}, KindSMID)
	}
	e.syncDelete(ctx, tmidName(oldUsername, oldPin, snap.midRid), [][]byte{oldTmidValue}, KindTMID)
	if snap.midRid != snap.smidRid {
		e.syncDelete(ctx, tmidName(oldUsername, oldPin, snap.smidRid), [][]byte{snap.smidTmidContent}, KindTMID)
	}

	e.session.SetUsername(newUsername)
	e.session.SetPin(newPin)
	e.session.SetMidRid(newMidRid)
	e.session.SetSmidRid(newSmidRid)
	e.session.SetTmidContent(newMidTmid.EncData)
	e.session.SetSmidTmidContent(newSmidTmid.EncData)
	return ResultSuccess
}

// --- 4.6.7 ChangePassword --------------------------------------------------

// ChangePassword commits newPassword then delegates to SaveSession,
// restoring the old password on failure.
func (e *Engine) ChangePassword(serDM []byte, newPassword string) ResultCode {
	oldPassword := e.session.Password()
	e.session.SetPassword(newPassword)
	code := e.SaveSession(serDM)
	if code != ResultSuccess {
		e.session.SetPassword(oldPassword)
	}
	return code
}

// --- 4.6.8 CreatePublicName ------------------------------------------------

func (e *Engine) CreatePublicName(publicUsername string) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	mpidName := HashBytes([]byte(publicUsername))
	if !e.syncKeyUnique(ctx, mpidName) {
		return ResultPublicUsernameExists
	}

	anmpidRec, code := e.createSignatureLink(ctx, KindANMPID, nil)
	if code != ResultSuccess {
		return code
	}

	mpidRes, err := Factory(KindMPID).Create(ctx, CreateParams{
		PublicUsername: publicUsername, SignerPrivateKey: anmpidRec.PrivateKey,
	}, e.pool)
	if err != nil {
		e.session.RemoveKey(KindANMPID)
		return ResultAuthenticationError
	}
	if e.syncStore(ctx, mpidRes.Name, mpidRes.SerializedPacket, KindMPID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		e.session.RemoveKey(KindANMPID)
		return ResultAuthenticationError
	}

	mpidRec := KeyRecord{
		ID: publicUsername, PrivateKey: mpidRes.PrivateKey,
		PublicKey: mpidRes.PublicKey, PublicKeyDER: mpidRes.SerializedPacket, PublicKeySignature: mpidRes.Signature,
	}
	_ = e.session.AddKey(KindMPID, mpidRec)
	return ResultSuccess
}

// --- CreatePrivateShare (MSID) ----------------------------------------
//
// Private shares are a SPEC_FULL supplement over the original's
// authentication.cc flows: an MSID packet names a share the way MID/SMID
// name an account, so members resolve it the same way a client resolves
// its own identity. Grounded on the original's CreateMSIDPacket.

// CreatePrivateShare creates a fresh MSID identity for a share owned
// jointly by members, storing its public key and recording the share in
// the session for later teardown via RemovePrivateShare.
func (e *Engine) CreatePrivateShare(members []string) (ResultCode, string) {
	ctx, cancel := e.ctx()
	defer cancel()

	const maxRegenerate = 8
	var result *PacketResult
	for attempt := 0; attempt < maxRegenerate; attempt++ {
		res, err := Factory(KindMSID).Create(ctx, CreateParams{}, e.pool)
		if err != nil {
			return ResultAuthenticationError, ""
		}
		if e.syncKeyUnique(ctx, res.Name) {
			result = res
			break
		}
	}
	if result == nil {
		return ResultAuthenticationError, ""
	}

	if e.syncStore(ctx, result.Name, result.SerializedPacket, KindMSID, PolicyDoNothingReturnFailure, "") != ResultSuccess {
		return ResultAuthenticationError, ""
	}

	msidName := fmt.Sprintf("%x", result.Name)
	e.session.PutShare(&PrivateShare{MSIDName: msidName, Members: append([]string(nil), members...)})
	return ResultSuccess, msidName
}

// RemovePrivateShare tears down a share's MSID packet and its bookkeeping.
func (e *Engine) RemovePrivateShare(msidName string) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	name, err := hex.DecodeString(msidName)
	if err != nil {
		return ResultAuthenticationError
	}
	if e.syncDelete(ctx, name, nil, KindMSID) != ResultSuccess {
		return ResultAuthenticationError
	}
	e.session.RemoveShare(msidName)
	return ResultSuccess
}

// --- 4.6.9 RemoveMe ----------------------------------------------------

// KeyAtlasRow names one identity key row to tear down, mirroring the
// original's key atlas enumeration.
type KeyAtlasRow struct {
	Kind PacketKind
	ID   string
}

// RemoveMe is a best-effort teardown of the packets named by rows, plus the
// session packets that depend on each row's kind.
// MID/SMID/TMID are addressed by (username, PIN, rid) rather than by the
// atlas row's ID, since their names are never stored verbatim in the
// session's key map; every other kind's ID is the hex-encoded packet name
// KeyRecord.ID carries (signature kinds) or the public username itself
// (MPID), matching Factory's naming rule for that kind.
func (e *Engine) RemoveMe(rows []KeyAtlasRow) ResultCode {
	ctx, cancel := e.ctx()
	defer cancel()

	username, pin := e.session.Username(), e.session.Pin()
	midRid, smidRid := e.session.MidRid(), e.session.SmidRid()

	for _, row := range rows {
		switch row.Kind {
		case KindANMID:
			e.syncDelete(ctx, locatorName(KindMID, username, pin), nil, KindMID)
		case KindANSMID:
			e.syncDelete(ctx, locatorName(KindSMID, username, pin), nil, KindSMID)
		case KindANTMID:
			e.syncDelete(ctx, tmidName(username, pin, midRid), nil, KindTMID)
			if smidRid != midRid {
				e.syncDelete(ctx, tmidName(username, pin, smidRid), nil, KindTMID)
			}
		case KindANMPID:
			if mpidRec, ok := e.session.Key(KindMPID); ok {
				e.syncDelete(ctx, HashBytes([]byte(mpidRec.ID)), nil, KindMPID)
			}
		case KindMAID:
			if pmidRec, ok := e.session.Key(KindPMID); ok {
				if name, err := hex.DecodeString(pmidRec.ID); err == nil {
					e.syncDelete(ctx, name, nil, KindPMID)
				}
			}
		}
		if row.Kind == KindMPID {
			e.syncDelete(ctx, HashBytes([]byte(row.ID)), nil, KindMPID)
		} else if name, err := hex.DecodeString(row.ID); err == nil {
			e.syncDelete(ctx, name, nil, row.Kind)
		} else {
			e.syncDelete(ctx, []byte(row.ID), nil, row.Kind)
		}
	}
	e.session.Reset()
	return ResultSuccess
}
