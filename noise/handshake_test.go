package noise

import "testing"

func TestNewXXHandshake(t *testing.T) {
	_, pub1, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}
	priv1, _, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}

	initiator, err := NewXXHandshake(priv1, pub1, Initiator)
	if err != nil {
		t.Fatalf("failed to create initiator: %v", err)
	}
	if initiator.role != Initiator {
		t.Error("expected initiator role")
	}
	if initiator.IsComplete() {
		t.Error("handshake should not be complete initially")
	}
}

func TestXXHandshakeFlow(t *testing.T) {
	iPriv, iPub, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}
	rPriv, rPub, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}

	initiator, err := NewXXHandshake(iPriv, iPub, Initiator)
	if err != nil {
		t.Fatalf("create initiator: %v", err)
	}
	responder, err := NewXXHandshake(rPriv, rPub, Responder)
	if err != nil {
		t.Fatalf("create responder: %v", err)
	}

	msg1, complete, err := initiator.WriteMessage(nil)
	if err != nil {
		t.Fatalf("initiator msg1: %v", err)
	}
	if complete {
		t.Fatal("XX should not complete after message 1")
	}

	if _, _, err := responder.ReadMessage(msg1); err != nil {
		t.Fatalf("responder read msg1: %v", err)
	}
	msg2, complete, err := responder.WriteMessage([]byte("hello from responder"))
	if err != nil {
		t.Fatalf("responder msg2: %v", err)
	}
	if complete {
		t.Fatal("XX should not complete after message 2")
	}

	payload, complete, err := initiator.ReadMessage(msg2)
	if err != nil {
		t.Fatalf("initiator read msg2: %v", err)
	}
	if complete {
		t.Fatal("XX should not complete after reading message 2")
	}
	if string(payload) != "hello from responder" {
		t.Fatalf("unexpected payload: %q", payload)
	}

	msg3, complete, err := initiator.WriteMessage([]byte("hello from initiator"))
	if err != nil {
		t.Fatalf("initiator msg3: %v", err)
	}
	if !complete {
		t.Fatal("initiator should complete after message 3")
	}

	payload, complete, err = responder.ReadMessage(msg3)
	if err != nil {
		t.Fatalf("responder read msg3: %v", err)
	}
	if !complete {
		t.Fatal("responder should complete after reading message 3")
	}
	if string(payload) != "hello from initiator" {
		t.Fatalf("unexpected payload: %q", payload)
	}

	iSend, iRecv, err := initiator.CipherStates()
	if err != nil {
		t.Fatalf("initiator cipher states: %v", err)
	}
	rSend, rRecv, err := responder.CipherStates()
	if err != nil {
		t.Fatalf("responder cipher states: %v", err)
	}

	plaintext := []byte("ping")
	ciphertext := iSend.Encrypt(nil, nil, plaintext)
	decrypted, err := rRecv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted) != "ping" {
		t.Fatalf("round-trip mismatch: %q", decrypted)
	}
	_ = rSend

	remote, err := initiator.RemoteStatic()
	if err != nil {
		t.Fatalf("remote static: %v", err)
	}
	if remote != rPub {
		t.Fatal("initiator's view of responder's static key does not match")
	}
}

func TestXXHandshakeCompleteErrors(t *testing.T) {
	priv, pub, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}
	h, err := NewXXHandshake(priv, pub, Initiator)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.RemoteStatic(); err != ErrHandshakeNotComplete {
		t.Errorf("expected ErrHandshakeNotComplete, got %v", err)
	}
	if _, _, err := h.CipherStates(); err != ErrHandshakeNotComplete {
		t.Errorf("expected ErrHandshakeNotComplete, got %v", err)
	}
}

func TestGenerateStaticKeypairIsUsable(t *testing.T) {
	priv, pub, err := GenerateStaticKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if isZero(priv) || isZero(pub) {
		t.Fatal("generated keypair must not be all-zero")
	}
}
