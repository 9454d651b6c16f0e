package core

// Packet factory typed parameter records (C3), replacing the teacher-
// era "typeless packet parameter bag" (Design Notes §9) with one record
// per operation.

import "crypto/rsa"

// NameParams derives a packet's content-addressed name. Rid is only
// meaningful for TMID; zero means "not applicable".
type NameParams struct {
	Username string
	PIN      string
	Rid      uint32

	// PublicUsername names an MPID packet.
	PublicUsername string

	// PublicKey + Signature name a signature/identity packet (§3
	// invariant 4): name = H(public_key || signature).
	PublicKeyDER []byte
	Signature    []byte
}

// CreateParams supplies everything Create needs for any kind. Only the
// fields relevant to the target kind are read.
type CreateParams struct {
	Username string
	PIN      string
	Password string

	// Forbidden rids a freshly sampled MID/SMID rid must avoid (§4.3).
	Forbidden map[uint32]bool
	// Rid pins the rid to use instead of sampling (TMID; SMID rotation).
	Rid uint32

	// SignerPrivateKey signs the packet per the fixed signerOf mapping
	// (self for ANx kinds, ANMID/ANSMID/ANTMID for MID/SMID/TMID, MAID
	// for PMID, ANMPID for MPID).
	SignerPrivateKey *rsa.PrivateKey

	// Data is the serialized DataMap for TMID.
	Data []byte

	// PublicUsername names an MPID being created.
	PublicUsername string
}

// PacketResult is the union return value of Create/GetData across kinds;
// callers read only the fields meaningful to the kind they asked for.
type PacketResult struct {
	Name       []byte
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	Signature  []byte

	// SerializedPacket is the DER-encoded public key for signature kinds
	// (the value StorePacket persists).
	SerializedPacket []byte

	// EncRid is the encrypted rid for MID/SMID (the value StorePacket
	// persists); Rid is the plaintext rid the caller must remember in
	// the session store.
	EncRid []byte
	Rid    uint32

	// EncData is the encrypted DataMap for TMID (the value StorePacket
	// persists).
	EncData []byte
}

// isSignatureKind reports whether kind carries RSA key material and is
// created by signatureOps rather than a bespoke rule.
func isSignatureKind(kind PacketKind) bool {
	switch kind {
	case KindANMID, KindANSMID, KindANTMID, KindANMAID, KindANMPID,
		KindMAID, KindPMID, KindMPID:
		return true
	default:
		return false
	}
}
