package datauri

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecodeKeepsCodecParameters(t *testing.T) {
	uri := Encode("audio/webm;codecs=opus", []byte{1, 2, 3})

	mime, data, err := Decode(uri)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mime != "audio/webm;codecs=opus" {
		t.Errorf("mime = %q", mime)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("data = %v", data)
	}
}

func TestDecodeBase64(t *testing.T) {
	mime, data, err := Decode("data:audio/ogg;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mime != "audio/ogg" || string(data) != "hello" {
		t.Errorf("got %q %q", mime, data)
	}
}

func TestDecodePercentEncoded(t *testing.T) {
	mime, data, err := Decode("data:audio/webm,%1A%45%DF%A3")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !strings.HasPrefix(mime, "audio/webm") {
		t.Errorf("mime = %q", mime)
	}
	if !bytes.Equal(data, []byte{0x1a, 0x45, 0xdf, 0xa3}) {
		t.Errorf("data = %x", data)
	}

	_, text, err := Decode("data:text/plain,hello%20world")
	if err != nil || string(text) != "hello world" {
		t.Errorf("text = %q, err = %v", text, err)
	}
}

func TestEncodeWithoutMime(t *testing.T) {
	mime, data, err := Decode(Encode("", []byte{0}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mime != "application/octet-stream" || !bytes.Equal(data, []byte{0}) {
		t.Errorf("got %q %v", mime, data)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"no_prefix", "audio/webm;base64,AAAA"},
		{"no_comma", "data:audio/webm;base64"},
		{"bad_payload", "data:audio/webm;base64,!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.uri); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": "webm",
		"audio/ogg":              "ogg",
		"audio/wav":              "wav",
		"audio/mpeg":             "mp3",
		"audio/mp4":              "m4a",
		"":                       "webm",
	}
	for mime, want := range tests {
		if got := Extension(mime); got != want {
			t.Errorf("Extension(%q) = %q, want %q", mime, got, want)
		}
	}
}
