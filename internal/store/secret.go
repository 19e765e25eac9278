package store

import "encoding/base64"

// Secrets are stored reversibly, not hashed: the engine has to replay them
// to the remote server on reconnect. Base64 keeps them out of casual view
// in the table, nothing more.

func encodeSecret(plain string) string {
	if plain == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

func decodeSecret(stored string) string {
	if stored == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		// Rows written before encoding was introduced hold plain text.
		return stored
	}
	return string(raw)
}
