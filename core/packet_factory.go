package core

// Packet factory operations (C3): packet_name, create, get_data for every
// kind in the closed enumeration, dispatched through a small table of
// closures (Design Notes §9 "polymorphism over packet kinds") rather than
// a type hierarchy.

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)


// PacketOps is the per-kind operation set returned by Factory.
type PacketOps struct {
	Name    func(NameParams) ([]byte, error)
	Create  func(context.Context, CreateParams, *KeyPairPool) (*PacketResult, error)
	GetData func(value []byte, params CreateParams) (*PacketResult, error)
}

// Factory returns the operation set for kind.
func Factory(kind PacketKind) PacketOps {
	if isSignatureKind(kind) {
		return signatureOps(kind)
	}
	switch kind {
	case KindMID:
		return locatorOps(KindMID)
	case KindSMID:
		return locatorOps(KindSMID)
	case KindTMID:
		return tmidOps()
	case KindMSID:
		return msidOps()
	default:
		return PacketOps{}
	}
}

// --- MID/SMID (locator) ---------------------------------------------------

// locatorName implements §3's MID/SMID naming rule: H(H(tag || username) ||
// H(PIN)). The tag distinguishes MID from SMID while keeping both pure,
// deterministic functions of (username, PIN).
func locatorName(kind PacketKind, username, pin string) []byte {
	inner := HashBytes(append([]byte(kind.String()), []byte(username)...))
	outer := append(inner, HashBytes([]byte(pin))...)
	return HashBytes(outer)
}

func locatorOps(kind PacketKind) PacketOps {
	return PacketOps{
		Name: func(p NameParams) ([]byte, error) {
			return locatorName(kind, p.Username, p.PIN), nil
		},
		Create: func(_ context.Context, p CreateParams, _ *KeyPairPool) (*PacketResult, error) {
			rid := p.Rid
			if rid == 0 {
				r, err := sampleRid(p.Forbidden)
				if err != nil {
					return nil, err
				}
				rid = r
			}
			name := locatorName(kind, p.Username, p.PIN)
			encRid, err := EncryptRid(rid, p.Username, p.PIN)
			if err != nil {
				return nil, fmt.Errorf("%s: encrypt rid: %w", kind, err)
			}
			res := &PacketResult{Name: name, EncRid: encRid, Rid: rid}
			if p.SignerPrivateKey != nil {
				sig, err := SignRSA(encRid, p.SignerPrivateKey)
				if err != nil {
					return nil, fmt.Errorf("%s: sign: %w", kind, err)
				}
				res.Signature = sig
			}
			return res, nil
		},
		GetData: func(value []byte, p CreateParams) (*PacketResult, error) {
			rid, err := DecryptRid(value, p.Username, p.PIN)
			if err != nil {
				return nil, fmt.Errorf("%s: decrypt rid: %w", kind, err)
			}
			return &PacketResult{Rid: rid}, nil
		},
	}
}

// sampleRid draws a uniform rid in [1, 2^32-1] that is not in forbidden
// (§4.3: zero is reserved as "unknown"; caller-supplied current MID/SMID
// rids must not be reissued).
func sampleRid(forbidden map[uint32]bool) (uint32, error) {
	for attempt := 0; attempt < 1<<20; attempt++ {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("sampleRid: %w", err)
		}
		rid := binary.BigEndian.Uint32(buf[:])
		if rid == 0 {
			continue
		}
		if forbidden != nil && forbidden[rid] {
			continue
		}
		return rid, nil
	}
	return 0, errRidExhausted
}

// --- TMID ------------------------------------------------------------------

func tmidName(username, pin string, rid uint32) []byte {
	buf := make([]byte, 0, len(username)+len(pin)+4)
	buf = append(buf, username...)
	buf = append(buf, pin...)
	var ridBytes [4]byte
	binary.BigEndian.PutUint32(ridBytes[:], rid)
	buf = append(buf, ridBytes[:]...)
	return HashBytes(buf)
}

func tmidOps() PacketOps {
	return PacketOps{
		Name: func(p NameParams) ([]byte, error) {
			return tmidName(p.Username, p.PIN, p.Rid), nil
		},
		Create: func(_ context.Context, p CreateParams, _ *KeyPairPool) (*PacketResult, error) {
			name := tmidName(p.Username, p.PIN, p.Rid)
			password := SecurePassword(p.Username, p.PIN, p.Password, fmt.Sprint(p.Rid))
			encData, err := EncryptAES256(p.Data, password)
			if err != nil {
				return nil, fmt.Errorf("TMID: encrypt: %w", err)
			}
			res := &PacketResult{Name: name, EncData: encData, Rid: p.Rid}
			if p.SignerPrivateKey != nil {
				sig, err := SignRSA(encData, p.SignerPrivateKey)
				if err != nil {
					return nil, fmt.Errorf("TMID: sign: %w", err)
				}
				res.Signature = sig
			}
			return res, nil
		},
		GetData: func(value []byte, p CreateParams) (*PacketResult, error) {
			password := SecurePassword(p.Username, p.PIN, p.Password, fmt.Sprint(p.Rid))
			plain, err := DecryptAES256(value, password)
			if err != nil {
				return nil, fmt.Errorf("TMID: decrypt: %w", err)
			}
			return &PacketResult{EncData: plain}, nil
		},
	}
}

// --- Signature kinds (ANx, MAID, PMID, MPID) --------------------------------

func signatureOps(kind PacketKind) PacketOps {
	return PacketOps{
		Name: func(p NameParams) ([]byte, error) {
			if kind == KindMPID {
				return HashBytes([]byte(p.PublicUsername)), nil
			}
			return HashBytes(append(append([]byte{}, p.PublicKeyDER...), p.Signature...)), nil
		},
		Create: func(ctx context.Context, p CreateParams, pool *KeyPairPool) (*PacketResult, error) {
			priv, err := pool.Get(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: key pool: %w", kind, err)
			}
			pub := &priv.PublicKey
			der, err := MarshalPublicKey(pub)
			if err != nil {
				return nil, fmt.Errorf("%s: marshal pub: %w", kind, err)
			}

			signer := p.SignerPrivateKey
			if signer == nil {
				signer = priv // ANx kinds self-sign
			}
			sig, err := SignRSA(der, signer)
			if err != nil {
				return nil, fmt.Errorf("%s: sign: %w", kind, err)
			}

			var name []byte
			if kind == KindMPID {
				name = HashBytes([]byte(p.PublicUsername))
			} else {
				name = HashBytes(append(append([]byte{}, der...), sig...))
			}

			return &PacketResult{
				Name:             name,
				PrivateKey:       priv,
				PublicKey:        pub,
				Signature:        sig,
				SerializedPacket: der,
			}, nil
		},
		GetData: func(value []byte, _ CreateParams) (*PacketResult, error) {
			pub, err := parsePublicKey(value)
			if err != nil {
				return nil, err
			}
			return &PacketResult{PublicKey: pub, SerializedPacket: value}, nil
		},
	}
}

func parsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := parsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// --- MSID (per-share identity) ---------------------------------------------

func msidOps() PacketOps {
	return PacketOps{
		Name: func(NameParams) ([]byte, error) {
			id := uuid.New()
			return HashBytes(id[:]), nil
		},
		Create: func(ctx context.Context, p CreateParams, pool *KeyPairPool) (*PacketResult, error) {
			priv, err := pool.Get(ctx)
			if err != nil {
				return nil, fmt.Errorf("MSID: key pool: %w", err)
			}
			id := uuid.New()
			name := HashBytes(id[:])
			pub := &priv.PublicKey
			der, err := MarshalPublicKey(pub)
			if err != nil {
				return nil, fmt.Errorf("MSID: marshal pub: %w", err)
			}
			return &PacketResult{Name: name, PrivateKey: priv, PublicKey: pub, SerializedPacket: der}, nil
		},
		GetData: func(value []byte, _ CreateParams) (*PacketResult, error) {
			pub, err := parsePublicKey(value)
			if err != nil {
				return nil, err
			}
			return &PacketResult{PublicKey: pub, SerializedPacket: value}, nil
		},
	}
}
