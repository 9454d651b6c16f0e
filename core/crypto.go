package core

// Cryptographic primitives for the authentication engine (C1).
//
// Hashing is fixed at SHA-512, symmetric encryption at AES-256, and
// password stretching at PBKDF2-HMAC-SHA512 — all deterministic across
// platforms, matching the "identical across platforms" requirement on
// SecurePassword.

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	rsaKeyBits        = 2048
	pbkdf2Iterations  = 10_000
	secureKeyLen      = 32
)

// Hash returns the SHA-512 digest of b.
func Hash(b []byte) [64]byte {
	return sha512.Sum512(b)
}

// HashBytes is the slice-returning convenience form of Hash, used
// throughout packet naming where a fixed-size array is awkward to thread.
func HashBytes(b []byte) []byte {
	h := Hash(b)
	return h[:]
}

// SecurePassword deterministically stretches (username, PIN[, extra...])
// into a 32-byte key suitable for AES-256. The salt is the hash of the
// username so two users with the same PIN never share a derived key.
func SecurePassword(username, pin string, extra ...string) []byte {
	material := username + "|" + pin
	for _, e := range extra {
		material += "|" + e
	}
	salt := HashBytes([]byte(username))
	return pbkdf2.Key([]byte(material), salt, pbkdf2Iterations, secureKeyLen, sha512.New)
}

// EncryptAES256 encrypts plaintext under a key derived from password using
// AES-256-CTR. The IV is derived deterministically from the password hash
// so the ciphertext is a pure function of (plaintext, password) — required
// so MID/SMID rid-encryption and TMID DataMap-encryption round-trip without
// separately transmitting an IV.
func EncryptAES256(plaintext, password []byte) ([]byte, error) {
	key := stretchKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	iv := ivFromPassword(password)
	out := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(out, plaintext)
	return out, nil
}

// DecryptAES256 is the inverse of EncryptAES256.
func DecryptAES256(ciphertext, password []byte) ([]byte, error) {
	key := stretchKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	iv := ivFromPassword(password)
	out := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(out, ciphertext)
	return out, nil
}

func stretchKey(password []byte) []byte {
	if len(password) == secureKeyLen {
		return password
	}
	h := Hash(password)
	return h[:secureKeyLen]
}

func ivFromPassword(password []byte) []byte {
	h := Hash(password)
	return h[secureKeyLen : secureKeyLen+aes.BlockSize]
}

// EncryptRid symmetric-encrypts a 32-bit rid under SecurePassword(username, pin).
func EncryptRid(rid uint32, username, pin string) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, rid)
	return EncryptAES256(buf, SecurePassword(username, pin))
}

// DecryptRid is the inverse of EncryptRid.
func DecryptRid(ciphertext []byte, username, pin string) (uint32, error) {
	plain, err := DecryptAES256(ciphertext, SecurePassword(username, pin))
	if err != nil {
		return 0, err
	}
	if len(plain) != 4 {
		return 0, errors.New("crypto: decrypted rid has unexpected length")
	}
	return binary.BigEndian.Uint32(plain), nil
}

// GenerateRSAKeyPair creates a fresh RSA key-pair. Dominant latency source
// in account creation; callers should draw from the KeyPairPool rather
// than call this directly on a hot path.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, rsaKeyBits)
}

// SignRSA signs the SHA-512 digest of msg with PKCS#1v1.5.
func SignRSA(msg []byte, priv *rsa.PrivateKey) ([]byte, error) {
	digest := Hash(msg)
	return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA512, digest[:])
}

// VerifyRSA verifies sig against the SHA-512 digest of msg.
func VerifyRSA(msg, sig []byte, pub *rsa.PublicKey) error {
	digest := Hash(msg)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA512, digest[:], sig)
}

// MarshalPublicKey returns the DER encoding of pub, the canonical
// byte-representation used when hashing for a packet name (§3 invariant 4).
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// parsePKIXPublicKey is the inverse of MarshalPublicKey, narrowed to RSA.
func parsePKIXPublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSAPublicKey
	}
	return pub, nil
}
