package testsupport

import (
	"bytes"
)

// AudioBytes returns a deterministic payload standing in for MP3 data.
// A size <= 0 returns a single byte.
func AudioBytes(size int) []byte {
	if size <= 0 {
		size = 1
	}
	return bytes.Repeat([]byte{0x49, 0x44, 0x33, 0x42}, (size+3)/4)[:size]
}
