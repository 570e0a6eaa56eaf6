package wire

import (
	"bytes"
	"testing"
)

func samplePeerNode() PeerNode {
	var id [32]byte
	for i := range id {
		id[i] = byte(i)
	}
	return PeerNode{
		ID: id,
		AddrList: []AddressEntry{
			{IP: []byte{127, 0, 0, 1}, Port: 33445, Version: 1, ReinitDate: 100, Priority: 0, ExpireAt: 200},
		},
		Version:   42,
		Signature: bytes.Repeat([]byte{0xaa}, 64),
	}
}

func TestRoundTripEveryMessageType(t *testing.T) {
	node := samplePeerNode()
	var key KeyID
	key[0] = 0xff

	val := Value{
		Key: KeyDescription{
			ID:         node.ID,
			Key:        Key{ID: key, Idx: 0, Name: []byte("address")},
			Signature:  bytes.Repeat([]byte{0xbb}, 64),
			UpdateRule: RuleSignature,
		},
		Data:      []byte("hello"),
		TTL:       123456,
		Signature: bytes.Repeat([]byte{0xcc}, 64),
	}

	cases := []any{
		Query{Node: node},
		Ping{RandomID: 0x0123456789abcdef},
		Pong{RandomID: 0x0123456789abcdef},
		FindNode{Key: key, K: 10},
		FindValue{Key: key, K: 6},
		GetSignedAddressList{},
		Store{Value: val},
		Nodes{Nodes: []PeerNode{node, node}},
		ValueFound{Value: val},
		ValueNotFound{Nodes: Nodes{Nodes: []PeerNode{node}}},
		Stored{},
	}

	for _, original := range cases {
		data, err := Marshal(original)
		if err != nil {
			t.Fatalf("Marshal(%T): %v", original, err)
		}

		_, decoded, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%T): %v", original, err)
		}

		redata, err := Marshal(decoded)
		if err != nil {
			t.Fatalf("re-Marshal(%T): %v", original, err)
		}
		if !bytes.Equal(data, redata) {
			t.Fatalf("round-trip mismatch for %T:\n  want %x\n  got  %x", original, data, redata)
		}
	}
}

func TestUnmarshalTruncatedMessageFails(t *testing.T) {
	data, err := Marshal(Ping{RandomID: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, _, err := Unmarshal(data[:len(data)-1]); err == nil {
		t.Fatal("expected an error decoding a truncated Ping")
	}
}

func TestUnmarshalUnknownTypeFails(t *testing.T) {
	if _, _, err := Unmarshal([]byte{0xff}); err == nil {
		t.Fatal("expected an error decoding an unknown message type")
	}
}

func TestBundleProducesTwoMessages(t *testing.T) {
	node := samplePeerNode()
	msgs, err := Bundle(Query{Node: node}, Ping{RandomID: 7})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in a bundle, got %d", len(msgs))
	}
	typ, _, err := Unmarshal(msgs[0])
	if err != nil || typ != MsgQuery {
		t.Fatalf("expected first bundle element to be dht.query, got %v (err %v)", typ, err)
	}
	typ, _, err = Unmarshal(msgs[1])
	if err != nil || typ != MsgPing {
		t.Fatalf("expected second bundle element to be dht.ping, got %v (err %v)", typ, err)
	}
}
