// Package rlp implements the subset of Ethereum's recursive length prefix
// encoding needed to hash a flat list of byte strings.
package rlp

import "bridgeScope/internal/byteutil"

const (
	// StringOffset is the header offset for byte strings.
	StringOffset = 0x80
	// ListOffset is the header offset for lists.
	ListOffset = 0xc0
)

// EncodeSingle encodes one byte string. A single byte below 0x80 is its own
// encoding.
func EncodeSingle(input []byte) []byte {
	if len(input) == 1 && input[0] < StringOffset {
		return []byte{input[0]}
	}
	header := EncodeLength(uint64(len(input)), StringOffset)
	out := make([]byte, 0, len(header)+len(input))
	out = append(out, header...)
	return append(out, input...)
}

// EncodeLength builds the header for a payload of length n.
func EncodeLength(n uint64, offset uint64) []byte {
	if n < 56 {
		return []byte{byte(n + offset)}
	}
	lenBytes := byteutil.NumberToBigEndianBytes(n)
	out := make([]byte, 0, 1+len(lenBytes))
	out = append(out, byte(offset+55+uint64(len(lenBytes))))
	return append(out, lenBytes...)
}

// EncodeList encodes items as an RLP list of byte strings.
func EncodeList(items [][]byte) []byte {
	var payload []byte
	for _, item := range items {
		payload = append(payload, EncodeSingle(item)...)
	}
	header := EncodeLength(uint64(len(payload)), ListOffset)
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}
