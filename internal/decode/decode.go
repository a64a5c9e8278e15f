// Package decode turns raw feed payloads into typed venue records.
// Decoders are pure: bytes in, struct or error out. Unknown payloads
// are reported with ErrUnknown so callers can count and skip them.
package decode

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrUnknown = errors.New("unknown payload")

const programDataPrefix = "Program data: "

// discriminator returns the 8-byte anchor discriminator, or false when
// the payload is too short to carry one.
func discriminator(data []byte) ([8]byte, bool) {
	var d [8]byte
	if len(data) < 8 {
		return d, false
	}
	copy(d[:], data[:8])
	return d, true
}

// EventPayloads extracts and base64-decodes every "Program data:" line
// from a transaction's log output. Lines that fail to decode are
// skipped; they are usually truncated by the runtime's log limit.
func EventPayloads(logs []string) [][]byte {
	var out [][]byte
	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(line[idx+len(programDataPrefix):])
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}
