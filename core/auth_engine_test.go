package core

import (
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	pool, err := NewKeyPairPool(4, 8, nil)
	if err != nil {
		t.Fatalf("NewKeyPairPool: %v", err)
	}
	t.Cleanup(pool.Close)
	store := NewMemoryPacketStore(64, nil)
	return NewEngine(store, pool, NewSessionStore(), nil, 0)
}

func TestCreateUserSysPacketsThenTmid(t *testing.T) {
	e := newTestEngine(t)

	if code := e.CreateUserSysPackets("alice", "1234"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	for _, kind := range []PacketKind{KindANMAID, KindMAID, KindPMID, KindANMID, KindANSMID, KindANTMID} {
		if _, ok := e.Session().Key(kind); !ok {
			t.Errorf("expected session to hold a %s key", kind)
		}
	}

	dataMap := []byte("serialized datamap contents")
	if code := e.CreateTmidPacket("alice", "1234", "correcthorse", dataMap); code != ResultSuccess {
		t.Fatalf("CreateTmidPacket: got %s", code)
	}

	code, got := e.GetUserData("correcthorse")
	if code != ResultSuccess {
		t.Fatalf("GetUserData: got %s", code)
	}
	if string(got) != string(dataMap) {
		t.Fatalf("GetUserData: got %q, want %q", got, dataMap)
	}
}

func TestCreateUserSysPacketsRejectsDuplicateAccount(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreateUserSysPackets("bob", "4321"); code != ResultSuccess {
		t.Fatalf("first CreateUserSysPackets: got %s", code)
	}

	other := NewEngine(e.store, e.pool, NewSessionStore(), nil, 0)
	if code := other.CreateUserSysPackets("bob", "4321"); code != ResultUserExists {
		t.Fatalf("second CreateUserSysPackets: got %s, want %s", code, ResultUserExists)
	}
}

func TestGetUserDataWrongPassword(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreateUserSysPackets("carol", "5678"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	if code := e.CreateTmidPacket("carol", "5678", "rightpassword", []byte("dm")); code != ResultSuccess {
		t.Fatalf("CreateTmidPacket: got %s", code)
	}

	if code, _ := e.GetUserData("wrongpassword"); code != ResultPasswordFailure {
		t.Fatalf("GetUserData(wrong password): got %s, want %s", code, ResultPasswordFailure)
	}
}

func TestGetUserInfoRoundTrip(t *testing.T) {
	store := NewMemoryPacketStore(64, nil)
	pool, err := NewKeyPairPool(4, 8, nil)
	if err != nil {
		t.Fatalf("NewKeyPairPool: %v", err)
	}
	t.Cleanup(pool.Close)

	writer := NewEngine(store, pool, NewSessionStore(), nil, 0)
	if code := writer.CreateUserSysPackets("dave", "1111"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	if code := writer.CreateTmidPacket("dave", "1111", "pw", []byte("dm")); code != ResultSuccess {
		t.Fatalf("CreateTmidPacket: got %s", code)
	}

	reader := NewEngine(store, pool, NewSessionStore(), nil, 0)
	if code := reader.GetUserInfo("dave", "1111"); code != ResultUserExists {
		t.Fatalf("GetUserInfo: got %s, want %s", code, ResultUserExists)
	}
	// GetUserInfo must leave the session holding the recovered TMID
	// ciphertext, or GetUserData below decrypts an empty buffer.
	code, payload := reader.GetUserData("pw")
	if code != ResultSuccess {
		t.Fatalf("GetUserData: got %s, want %s", code, ResultSuccess)
	}
	if string(payload) != "dm" {
		t.Fatalf("GetUserData payload: got %q, want %q", payload, "dm")
	}

	if code := reader.GetUserInfo("ghost", "0001"); code != ResultUserDoesntExist {
		t.Fatalf("GetUserInfo(nonexistent): got %s, want %s", code, ResultUserDoesntExist)
	}
}

func TestSaveSessionRotatesTmid(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreateUserSysPackets("erin", "2222"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	if code := e.CreateTmidPacket("erin", "2222", "pw", []byte("v1")); code != ResultSuccess {
		t.Fatalf("CreateTmidPacket: got %s", code)
	}

	firstMidRid := e.Session().MidRid()

	if code := e.SaveSession([]byte("v2")); code != ResultSuccess {
		t.Fatalf("SaveSession: got %s", code)
	}
	if e.Session().MidRid() == firstMidRid {
		t.Fatalf("SaveSession did not rotate MID rid")
	}
	if e.Session().SmidRid() != firstMidRid {
		t.Fatalf("SaveSession: SMID rid = %d, want old MID rid %d", e.Session().SmidRid(), firstMidRid)
	}

	code, got := e.GetUserData("pw")
	if code != ResultSuccess {
		t.Fatalf("GetUserData after SaveSession: got %s", code)
	}
	if string(got) != "v2" {
		t.Fatalf("GetUserData after SaveSession: got %q, want %q", got, "v2")
	}
}

func TestChangePasswordCommitsNewPassword(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreateUserSysPackets("frank", "3333"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	if code := e.CreateTmidPacket("frank", "3333", "oldpw", []byte("dm")); code != ResultSuccess {
		t.Fatalf("CreateTmidPacket: got %s", code)
	}

	if code := e.ChangePassword([]byte("dm2"), "newpw"); code != ResultSuccess {
		t.Fatalf("ChangePassword: got %s", code)
	}
	if e.Session().Password() != "newpw" {
		t.Fatalf("ChangePassword: session password = %q, want %q", e.Session().Password(), "newpw")
	}
}

func TestCreatePublicNameRejectsDuplicate(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreatePublicName("gina"); code != ResultSuccess {
		t.Fatalf("CreatePublicName: got %s", code)
	}

	other := NewEngine(e.store, e.pool, NewSessionStore(), nil, 0)
	if code := other.CreatePublicName("gina"); code != ResultPublicUsernameExists {
		t.Fatalf("CreatePublicName duplicate: got %s, want %s", code, ResultPublicUsernameExists)
	}
}

func TestCreatePrivateShareAndRemove(t *testing.T) {
	e := newTestEngine(t)
	code, msidName := e.CreatePrivateShare([]string{"alice", "bob"})
	if code != ResultSuccess {
		t.Fatalf("CreatePrivateShare: got %s", code)
	}
	if msidName == "" {
		t.Fatal("CreatePrivateShare: empty MSID name")
	}
	if code := e.RemovePrivateShare(msidName); code != ResultSuccess {
		t.Fatalf("RemovePrivateShare: got %s", code)
	}
}

func TestRemoveMeResetsSession(t *testing.T) {
	e := newTestEngine(t)
	if code := e.CreateUserSysPackets("heidi", "4444"); code != ResultSuccess {
		t.Fatalf("CreateUserSysPackets: got %s", code)
	}
	rows := []KeyAtlasRow{{Kind: KindANMID}, {Kind: KindANSMID}, {Kind: KindANTMID}}
	if code := e.RemoveMe(rows); code != ResultSuccess {
		t.Fatalf("RemoveMe: got %s", code)
	}
	if e.Session().Username() != "" {
		t.Fatalf("RemoveMe did not reset session, username = %q", e.Session().Username())
	}
}
