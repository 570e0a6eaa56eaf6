package wire

// EncodeNodeForSigning returns the canonical byte form of a PeerNode with
// its Signature field cleared, the buffer verify_other_node/sign operate
// over.
func EncodeNodeForSigning(n PeerNode) []byte {
	n.Signature = nil
	w := &writer{}
	n.encode(w)
	return w.buf
}

// EncodeNode returns the full wire encoding of a PeerNode, signature
// included — the form used to store a node descriptor as a Value's
// payload (as opposed to EncodeNodeForSigning's cleared-signature form).
func EncodeNode(n PeerNode) []byte {
	w := &writer{}
	n.encode(w)
	return w.buf
}

// DecodeNode parses the byte form EncodeNode produces.
func DecodeNode(data []byte) (PeerNode, error) {
	return decodePeerNode(newReader(data))
}

// EncodeKey returns the canonical byte form of a DHT key, the buffer
// hashed to produce its 32-byte storage-key hash.
func EncodeKey(k Key) []byte {
	w := &writer{}
	k.encode(w)
	return w.buf
}

// EncodeKeyDescriptionForSigning returns the canonical byte form of a
// KeyDescription with its Signature field cleared.
func EncodeKeyDescriptionForSigning(d KeyDescription) []byte {
	d.Signature = nil
	w := &writer{}
	d.encode(w)
	return w.buf
}

// EncodeValueForSigning returns the canonical byte form of a Value with
// its Signature field cleared.
func EncodeValueForSigning(v Value) []byte {
	v.Signature = nil
	w := &writer{}
	v.encode(w)
	return w.buf
}
