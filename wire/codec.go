package wire

import (
	"fmt"

	"github.com/opd-ai/kadht/limits"
)

func (a AddressEntry) encode(w *writer) {
	w.blob(a.IP)
	w.u16(a.Port)
	w.i32(a.Version)
	w.i64(a.ReinitDate)
	w.i32(a.Priority)
	w.i64(a.ExpireAt)
}

func decodeAddressEntry(r *reader) (AddressEntry, error) {
	var a AddressEntry
	var err error
	if a.IP, err = r.blob(); err != nil {
		return a, err
	}
	if a.Port, err = r.u16(); err != nil {
		return a, err
	}
	if a.Version, err = r.i32(); err != nil {
		return a, err
	}
	if a.ReinitDate, err = r.i64(); err != nil {
		return a, err
	}
	if a.Priority, err = r.i32(); err != nil {
		return a, err
	}
	if a.ExpireAt, err = r.i64(); err != nil {
		return a, err
	}
	return a, nil
}

func (n PeerNode) encode(w *writer) {
	w.fixed32(n.ID)
	w.i32(int32(len(n.AddrList)))
	for _, a := range n.AddrList {
		a.encode(w)
	}
	w.i32(n.Version)
	w.blob(n.Signature)
}

func decodePeerNode(r *reader) (PeerNode, error) {
	var n PeerNode
	var err error
	if n.ID, err = r.fixed32(); err != nil {
		return n, err
	}
	count, err := r.i32()
	if err != nil {
		return n, err
	}
	if count < 0 || int(count) > len(r.data) {
		return n, ErrTruncated
	}
	if int(count) > limits.MaxAddressList {
		return n, ErrTruncated
	}
	n.AddrList = make([]AddressEntry, 0, count)
	for i := int32(0); i < count; i++ {
		a, err := decodeAddressEntry(r)
		if err != nil {
			return n, err
		}
		n.AddrList = append(n.AddrList, a)
	}
	if n.Version, err = r.i32(); err != nil {
		return n, err
	}
	if n.Signature, err = r.blob(); err != nil {
		return n, err
	}
	return n, nil
}

func (k Key) encode(w *writer) {
	w.fixed32(k.ID)
	w.i32(k.Idx)
	w.blob(k.Name)
}

func decodeKey(r *reader) (Key, error) {
	var k Key
	var err error
	if k.ID, err = r.fixed32(); err != nil {
		return k, err
	}
	if k.Idx, err = r.i32(); err != nil {
		return k, err
	}
	if k.Name, err = r.blob(); err != nil {
		return k, err
	}
	return k, nil
}

func (d KeyDescription) encode(w *writer) {
	w.fixed32(d.ID)
	d.Key.encode(w)
	w.blob(d.Signature)
	w.u8(byte(d.UpdateRule))
}

func decodeKeyDescription(r *reader) (KeyDescription, error) {
	var d KeyDescription
	var err error
	if d.ID, err = r.fixed32(); err != nil {
		return d, err
	}
	if d.Key, err = decodeKey(r); err != nil {
		return d, err
	}
	if d.Signature, err = r.blob(); err != nil {
		return d, err
	}
	rule, err := r.u8()
	if err != nil {
		return d, err
	}
	d.UpdateRule = UpdateRule(rule)
	return d, nil
}

func (v Value) encode(w *writer) {
	v.Key.encode(w)
	w.blob(v.Data)
	w.i64(v.TTL)
	w.blob(v.Signature)
}

func decodeValue(r *reader) (Value, error) {
	var v Value
	var err error
	if v.Key, err = decodeKeyDescription(r); err != nil {
		return v, err
	}
	if v.Data, err = r.blob(); err != nil {
		return v, err
	}
	if v.TTL, err = r.i64(); err != nil {
		return v, err
	}
	if v.Signature, err = r.blob(); err != nil {
		return v, err
	}
	return v, nil
}

func (n Nodes) encode(w *writer) {
	w.i32(int32(len(n.Nodes)))
	for _, node := range n.Nodes {
		node.encode(w)
	}
}

func decodeNodes(r *reader) (Nodes, error) {
	var out Nodes
	count, err := r.i32()
	if err != nil {
		return out, err
	}
	if count < 0 || int(count) > len(r.data) {
		return out, ErrTruncated
	}
	out.Nodes = make([]PeerNode, 0, count)
	for i := int32(0); i < count; i++ {
		n, err := decodePeerNode(r)
		if err != nil {
			return out, err
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out, nil
}

// Marshal encodes a typed message into its wire form:
// [1-byte MessageType][payload].
func Marshal(msg any) ([]byte, error) {
	w := &writer{}
	var t MessageType

	switch m := msg.(type) {
	case Query:
		t = MsgQuery
		m.Node.encode(w)
	case Ping:
		t = MsgPing
		w.i64(m.RandomID)
	case Pong:
		t = MsgPong
		w.i64(m.RandomID)
	case FindNode:
		t = MsgFindNode
		w.fixed32(m.Key)
		w.i32(m.K)
	case FindValue:
		t = MsgFindValue
		w.fixed32(m.Key)
		w.i32(m.K)
	case GetSignedAddressList:
		t = MsgGetSignedAddressList
	case Store:
		t = MsgStore
		m.Value.encode(w)
	case Nodes:
		t = MsgNodes
		m.encode(w)
	case ValueFound:
		t = MsgValueFound
		m.Value.encode(w)
	case ValueNotFound:
		t = MsgValueNotFound
		m.Nodes.encode(w)
	case Stored:
		t = MsgStored
	default:
		return nil, fmt.Errorf("wire: unsupported message type %T", msg)
	}

	out := make([]byte, 0, len(w.buf)+1)
	out = append(out, byte(t))
	out = append(out, w.buf...)
	return out, nil
}

// Unmarshal decodes a wire message, returning the MessageType tag and
// the decoded payload as one of this package's message structs.
func Unmarshal(data []byte) (MessageType, any, error) {
	if len(data) < 1 {
		return 0, nil, ErrTruncated
	}
	t := MessageType(data[0])
	r := newReader(data[1:])

	switch t {
	case MsgQuery:
		n, err := decodePeerNode(r)
		return t, Query{Node: n}, err
	case MsgPing:
		v, err := r.i64()
		return t, Ping{RandomID: v}, err
	case MsgPong:
		v, err := r.i64()
		return t, Pong{RandomID: v}, err
	case MsgFindNode:
		key, err := r.fixed32()
		if err != nil {
			return t, nil, err
		}
		k, err := r.i32()
		return t, FindNode{Key: KeyID(key), K: k}, err
	case MsgFindValue:
		key, err := r.fixed32()
		if err != nil {
			return t, nil, err
		}
		k, err := r.i32()
		return t, FindValue{Key: KeyID(key), K: k}, err
	case MsgGetSignedAddressList:
		return t, GetSignedAddressList{}, nil
	case MsgStore:
		v, err := decodeValue(r)
		return t, Store{Value: v}, err
	case MsgNodes:
		n, err := decodeNodes(r)
		return t, n, err
	case MsgValueFound:
		v, err := decodeValue(r)
		return t, ValueFound{Value: v}, err
	case MsgValueNotFound:
		n, err := decodeNodes(r)
		return t, ValueNotFound{Nodes: n}, err
	case MsgStored:
		return t, Stored{}, nil
	default:
		return t, nil, fmt.Errorf("wire: unknown message type %d", t)
	}
}

// Bundle encodes the two-message envelope form: a Query announcing the
// sender, followed by the main payload.
func Bundle(query Query, payload any) ([][]byte, error) {
	first, err := Marshal(query)
	if err != nil {
		return nil, err
	}
	second, err := Marshal(payload)
	if err != nil {
		return nil, err
	}
	return [][]byte{first, second}, nil
}
