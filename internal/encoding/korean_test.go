package encoding

import (
	"bytes"
	"testing"
)

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("data\\model\\chest.rsm"), "data\\model\\chest.rsm"},
		{"nul padded", []byte("lid\x00\x00garbage"), "lid"},
		{"empty", nil, ""},
		{"euc-kr", []byte{0xC7, 0xD1, 0xB1, 0xDB}, "한글"},
		{"euc-kr path", append([]byte("data\\model\\"), 0xC7, 0xD1, '.', 'r', 's', 'm'), "data\\model\\한.rsm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeName(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeName(t *testing.T) {
	if got := EncodeName("한글"); !bytes.Equal(got, []byte{0xC7, 0xD1, 0xB1, 0xDB}) {
		t.Errorf("got % x", got)
	}
	if got := EncodeName("plain.rsm"); string(got) != "plain.rsm" {
		t.Errorf("got %q", got)
	}
	for _, s := range []string{"모델/상자.rsm", "mixed 한 name"} {
		if got := DecodeName(EncodeName(s)); got != s {
			t.Errorf("round trip %q gave %q", s, got)
		}
	}
}
