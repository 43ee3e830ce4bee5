package ferry

import "testing"

func TestSecretRoundTrip(t *testing.T) {
	tests := []string{"", "hunter2", "pässwörd", "with:colon", "base64:lookalike"}

	for _, plain := range tests {
		t.Run(plain, func(t *testing.T) {
			if got := decodeSecret(encodeSecret(plain)); got != plain {
				t.Errorf("round trip of %q = %q", plain, got)
			}
		})
	}
}

func TestEncodeSecret(t *testing.T) {
	if got := encodeSecret("secret"); got != "base64:c2VjcmV0" {
		t.Errorf("encodeSecret() = %q", got)
	}
	if got := encodeSecret(""); got != "" {
		t.Errorf("empty secret encoded as %q", got)
	}
}

func TestDecodeSecret(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{"prefixed", "base64:c2VjcmV0", "secret"},
		{"legacy plaintext", "secret", "secret"},
		{"invalid payload kept verbatim", "base64:%%%", "base64:%%%"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeSecret(tt.stored); got != tt.want {
				t.Errorf("decodeSecret(%q) = %q, want %q", tt.stored, got, tt.want)
			}
		})
	}
}
