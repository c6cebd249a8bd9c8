package infra

import "testing"

func TestSpeechURL(t *testing.T) {
	base := "https://s3.example/speech-bucket"
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain", "speech/2026-10-19/abc.mp3", base + "/speech/2026-10-19/abc.mp3"},
		{"spaces", "speech/a b.mp3", base + "/speech/a%20b.mp3"},
		{"leading_slash", "/speech/x.ogg", base + "/speech/x.ogg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := speechURL(base, tt.key); got != tt.want {
				t.Errorf("speechURL(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
