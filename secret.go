package ferry

import (
	"encoding/base64"
	"strings"
)

// secretPrefix marks a stored value as obfuscated. Values without it are
// read back verbatim.
//
// This is obfuscation, not encryption: it keeps plaintext passwords out of
// the store file and nothing more. Changing the scheme changes the on-disk
// format.
const secretPrefix = "base64:"

// encodeSecret obfuscates a secret for storage. Empty secrets stay empty.
func encodeSecret(plain string) string {
	if plain == "" {
		return ""
	}
	return secretPrefix + base64.StdEncoding.EncodeToString([]byte(plain))
}

// decodeSecret reverses encodeSecret. Values that do not carry the prefix,
// or whose payload is not valid base64, are returned unchanged.
func decodeSecret(stored string) string {
	if !strings.HasPrefix(stored, secretPrefix) {
		return stored
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, secretPrefix))
	if err != nil {
		return stored
	}
	return string(raw)
}
