package byteutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrHexTooLong is returned when a hex value does not fit in 32 bytes.
var ErrHexTooLong = errors.New("hex value longer than 32 bytes")

// StripLeadingZeros drops leading zero bytes. An all-zero input yields an
// empty slice, which is how RLP represents the integer zero.
func StripLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	out := make([]byte, len(b)-i)
	copy(out, b[i:])
	return out
}

// NumberToBigEndianBytes returns the minimal big-endian encoding of num.
func NumberToBigEndianBytes(num uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], num)
	return StripLeadingZeros(buf[:])
}

// BigIntToCanonicalBytes returns the minimal big-endian encoding of the
// absolute value of num. Nil encodes as zero.
func BigIntToCanonicalBytes(num *big.Int) []byte {
	if num == nil {
		return []byte{}
	}
	return StripLeadingZeros(num.Bytes())
}

// StripHexPrefix removes a leading 0x or 0X.
func StripHexPrefix(input string) string {
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		return input[2:]
	}
	return input
}

// PadHexTo32Bytes left-pads a hex string with zeros to 64 digits and
// prefixes it with 0x.
func PadHexTo32Bytes(input string) (string, error) {
	data := StripHexPrefix(input)
	if len(data) > 64 {
		return "", fmt.Errorf("%w: %d digits", ErrHexTooLong, len(data))
	}
	return "0x" + strings.Repeat("0", 64-len(data)) + data, nil
}

// EnsureEvenHexLength prepends a zero nibble to hex strings with an odd
// number of digits so they can be read as whole bytes.
func EnsureEvenHexLength(input string) string {
	data := StripHexPrefix(input)
	if len(data)%2 == 0 {
		return input
	}
	return "0x0" + data
}
