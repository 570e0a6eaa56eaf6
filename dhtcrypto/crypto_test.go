package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := []byte("the quick brown fox jumps over the lazy dog")
	sig, err := Sign(msg, kp.Private)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !Verify(msg, sig, kp.Public) {
		t.Fatal("Verify rejected a signature produced by Sign under the same key")
	}

	other, _ := GenerateKeyPair()
	if Verify(msg, sig, other.Public) {
		t.Fatal("Verify accepted a signature under the wrong public key")
	}

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0xff
	if Verify(tampered, sig, kp.Public) {
		t.Fatal("Verify accepted a signature over a tampered message")
	}
}

func TestSignRejectsEmptyMessage(t *testing.T) {
	kp, _ := GenerateKeyPair()
	if _, err := Sign(nil, kp.Private); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestDeriveKeyIDDeterministic(t *testing.T) {
	kp, _ := GenerateKeyPair()
	a := DeriveKeyID(kp.Public)
	b := DeriveKeyID(kp.Public)
	if a != b {
		t.Fatal("DeriveKeyID is not deterministic for the same descriptor")
	}

	other, _ := GenerateKeyPair()
	if DeriveKeyID(other.Public) == a {
		t.Fatal("DeriveKeyID collided for two distinct descriptors")
	}
}

func TestAdapterSignsUnderItsOwnIdentity(t *testing.T) {
	kp, _ := GenerateKeyPair()
	a := NewAdapter(kp)

	if a.LocalKeyID() != DeriveKeyID(kp.Public) {
		t.Fatal("Adapter.LocalKeyID does not match DeriveKeyID of its own descriptor")
	}

	msg := []byte("descriptor payload")
	sig, err := a.Sign(msg)
	if err != nil {
		t.Fatalf("Adapter.Sign: %v", err)
	}
	if !a.Verify(msg, sig, a.PublicDescriptor()) {
		t.Fatal("Adapter.Verify rejected its own signature")
	}
}
