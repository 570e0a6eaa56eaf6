package overlay

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when an encoded node list ends before a
// length-prefixed field can be fully read.
var ErrTruncated = errors.New("overlay: truncated node list")

// EncodeList serializes a member list into the byte form stored as a
// dht.store Value's payload under UpdateRule = OverlayNodes. Format:
// [uint32 count]{[32 id][int32 version][uint32 siglen][sig]}*
func EncodeList(nodes []Node) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(nodes)))
	for _, n := range nodes {
		out = append(out, n.ID[:]...)
		var verBuf [4]byte
		binary.BigEndian.PutUint32(verBuf[:], uint32(n.Version))
		out = append(out, verBuf[:]...)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(n.Signature)))
		out = append(out, lenBuf[:]...)
		out = append(out, n.Signature...)
	}
	return out
}

// DecodeList parses the byte form EncodeList produces.
func DecodeList(data []byte) ([]Node, error) {
	if len(data) < 4 {
		return nil, ErrTruncated
	}
	count := binary.BigEndian.Uint32(data[:4])
	pos := 4

	nodes := make([]Node, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos+32+4+4 > len(data) {
			return nil, ErrTruncated
		}
		var n Node
		copy(n.ID[:], data[pos:pos+32])
		pos += 32
		n.Version = int32(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		sigLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if sigLen < 0 || pos+sigLen > len(data) {
			return nil, ErrTruncated
		}
		n.Signature = append([]byte(nil), data[pos:pos+sigLen]...)
		pos += sigLen
		nodes = append(nodes, n)
	}
	return nodes, nil
}
