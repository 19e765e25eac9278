package store

import "testing"

func TestSecretCodecRoundTrips(t *testing.T) {
	for _, plain := range []string{"", "hunter2", "p@ss:w/ord+=", "пароль"} {
		if got := decodeSecret(encodeSecret(plain)); got != plain {
			t.Errorf("round trip %q -> %q", plain, got)
		}
	}
}

func TestSecretEncodingIsNotIdentity(t *testing.T) {
	if encodeSecret("hunter2") == "hunter2" {
		t.Error("secret stored verbatim")
	}
}

func TestDecodeSecretFallsBackToPlainText(t *testing.T) {
	// A legacy row holding a raw password that is not valid base64.
	if got := decodeSecret("not base64!!"); got != "not base64!!" {
		t.Errorf("fallback = %q", got)
	}
}
