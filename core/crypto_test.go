package core

import "testing"

func TestSecurePasswordDeterministic(t *testing.T) {
	a := SecurePassword("alice", "1234", "extra")
	b := SecurePassword("alice", "1234", "extra")
	if string(a) != string(b) {
		t.Fatal("SecurePassword is not deterministic")
	}
	c := SecurePassword("alice", "1234", "other")
	if string(a) == string(c) {
		t.Fatal("SecurePassword ignored extra material")
	}
}

func TestEncryptDecryptAES256RoundTrip(t *testing.T) {
	password := SecurePassword("bob", "5678")
	plain := []byte("a serialized datamap")
	ct, err := EncryptAES256(plain, password)
	if err != nil {
		t.Fatalf("EncryptAES256: %v", err)
	}
	pt, err := DecryptAES256(ct, password)
	if err != nil {
		t.Fatalf("DecryptAES256: %v", err)
	}
	if string(pt) != string(plain) {
		t.Fatalf("round trip: got %q, want %q", pt, plain)
	}
}

func TestEncryptDecryptRidRoundTrip(t *testing.T) {
	enc, err := EncryptRid(42, "carol", "9999")
	if err != nil {
		t.Fatalf("EncryptRid: %v", err)
	}
	rid, err := DecryptRid(enc, "carol", "9999")
	if err != nil {
		t.Fatalf("DecryptRid: %v", err)
	}
	if rid != 42 {
		t.Fatalf("DecryptRid: got %d, want 42", rid)
	}
}

func TestSignVerifyRSA(t *testing.T) {
	priv, err := GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}
	msg := []byte("packet payload")
	sig, err := SignRSA(msg, priv)
	if err != nil {
		t.Fatalf("SignRSA: %v", err)
	}
	if err := VerifyRSA(msg, sig, &priv.PublicKey); err != nil {
		t.Fatalf("VerifyRSA: %v", err)
	}
	if err := VerifyRSA([]byte("tampered"), sig, &priv.PublicKey); err == nil {
		t.Fatal("VerifyRSA accepted a tampered message")
	}
}

func TestMarshalParsePublicKeyRoundTrip(t *testing.T) {
	priv, err := GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}
	der, err := MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPublicKey: %v", err)
	}
	pub, err := parsePKIXPublicKey(der)
	if err != nil {
		t.Fatalf("parsePKIXPublicKey: %v", err)
	}
	if pub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatal("parsed public key modulus mismatch")
	}
}
