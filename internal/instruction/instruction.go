// Package instruction implements the wire framing the target program
// expects: one selector byte followed by the raw payload. There is no
// length prefix and no checksum; the program is trusted to know its own
// payload size per selector, so the framing must be preserved
// bit-for-bit.
package instruction

import "errors"

// ErrEmpty is returned when decoding zero-length instruction data.
var ErrEmpty = errors.New("instruction data is empty")

// Encode frames a selector and payload for dispatch. Pure and total:
// any selector and any payload length are valid at this layer.
func Encode(selector uint8, payload []byte) []byte {
	data := make([]byte, 1+len(payload))
	data[0] = selector
	copy(data[1:], payload)
	return data
}

// Decode splits framed instruction data back into selector and payload.
func Decode(data []byte) (selector uint8, payload []byte, err error) {
	if len(data) == 0 {
		return 0, nil, ErrEmpty
	}
	return data[0], data[1:], nil
}
