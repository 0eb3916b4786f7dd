// Package encoding converts the EUC-KR strings found in GRF file tables and
// RSM node names.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// DecodeName converts a NUL-terminated EUC-KR name to UTF-8. Pure ASCII is
// returned unchanged, as is anything the decoder rejects.
func DecodeName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if isASCII(b) {
		return string(b)
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// EncodeName converts a UTF-8 name to EUC-KR. Names with characters EUC-KR
// cannot represent are returned as UTF-8 bytes.
func EncodeName(s string) []byte {
	b := []byte(s)
	if isASCII(b) {
		return b
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), b)
	if err != nil {
		return b
	}
	return out
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 127 {
			return false
		}
	}
	return true
}
