package audio

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0x52, 0x49, 0x46, 0x46, 0x00}
	url := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(payload)

	decoded, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL() failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("Expected %v, got %v", payload, decoded)
	}
}

func TestDecodeDataURL_Rejects(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"not a data URL", "http://example.com/a.wav"},
		{"missing base64 marker", "data:audio/wav,plain"},
		{"bad payload", "data:audio/wav;base64,!!!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeDataURL(tc.url); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
