package core

import (
	"context"
	"testing"
	"time"
)

func withPool(t *testing.T) (*KeyPairPool, context.Context) {
	t.Helper()
	pool, err := NewKeyPairPool(2, 4, nil)
	if err != nil {
		t.Fatalf("NewKeyPairPool: %v", err)
	}
	t.Cleanup(pool.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return pool, ctx
}

func TestLocatorOpsCreateGetDataRoundTrip(t *testing.T) {
	pool, ctx := withPool(t)
	ops := Factory(KindMID)

	res, err := ops.Create(ctx, CreateParams{Username: "alice", PIN: "1234"}, pool)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Rid == 0 {
		t.Fatal("Create produced a zero rid")
	}

	got, err := ops.GetData(res.EncRid, CreateParams{Username: "alice", PIN: "1234"})
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got.Rid != res.Rid {
		t.Fatalf("GetData rid = %d, want %d", got.Rid, res.Rid)
	}
}

func TestLocatorNameIsDeterministicAndKindSeparated(t *testing.T) {
	mid := locatorName(KindMID, "alice", "1234")
	mid2 := locatorName(KindMID, "alice", "1234")
	smid := locatorName(KindSMID, "alice", "1234")
	if string(mid) != string(mid2) {
		t.Fatal("locatorName is not deterministic")
	}
	if string(mid) == string(smid) {
		t.Fatal("MID and SMID collided on the same (username, PIN)")
	}
}

func TestTmidOpsCreateGetDataRoundTrip(t *testing.T) {
	_, ctx := withPool(t)
	ops := Factory(KindTMID)
	params := CreateParams{Username: "bob", PIN: "4321", Password: "pw", Rid: 7, Data: []byte("datamap")}

	res, err := ops.Create(ctx, params, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := ops.GetData(res.EncData, params)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(got.EncData) != "datamap" {
		t.Fatalf("GetData: got %q, want %q", got.EncData, "datamap")
	}
}

func TestSignatureOpsSelfSignVerifies(t *testing.T) {
	pool, ctx := withPool(t)
	ops := Factory(KindANMID)

	res, err := ops.Create(ctx, CreateParams{}, pool)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := VerifyRSA(res.SerializedPacket, res.Signature, res.PublicKey); err != nil {
		t.Fatalf("self-signature does not verify: %v", err)
	}
}

func TestSignatureOpsSignedByParent(t *testing.T) {
	pool, ctx := withPool(t)
	anmaid, err := Factory(KindANMAID).Create(ctx, CreateParams{}, pool)
	if err != nil {
		t.Fatalf("ANMAID Create: %v", err)
	}

	maid, err := Factory(KindMAID).Create(ctx, CreateParams{SignerPrivateKey: anmaid.PrivateKey}, pool)
	if err != nil {
		t.Fatalf("MAID Create: %v", err)
	}
	if err := VerifyRSA(maid.SerializedPacket, maid.Signature, anmaid.PublicKey); err != nil {
		t.Fatalf("MAID signature does not verify against ANMAID public key: %v", err)
	}
}

func TestSampleRidAvoidsForbiddenAndZero(t *testing.T) {
	forbidden := map[uint32]bool{0: true}
	for i := 0; i < 100; i++ {
		rid, err := sampleRid(forbidden)
		if err != nil {
			t.Fatalf("sampleRid: %v", err)
		}
		if rid == 0 {
			t.Fatal("sampleRid returned the reserved zero rid")
		}
	}
}
