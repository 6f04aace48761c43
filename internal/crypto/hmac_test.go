package crypto

import (
	"strings"
	"testing"
)

func TestL2HeadersAtIsDeterministic(t *testing.T) {
	auth := &HMACAuth{
		Key:        "key-id",
		Secret:     "c2VjcmV0LWJ5dGVz", // "secret-bytes"
		Passphrase: "phrase",
	}

	a := auth.L2HeadersAt("0xabc", "GET", "/markets", "", 1700000000)
	b := auth.L2HeadersAt("0xabc", "GET", "/markets", "", 1700000000)

	if a["POLY_SIGNATURE"] == "" {
		t.Fatal("signature missing")
	}
	if a["POLY_SIGNATURE"] != b["POLY_SIGNATURE"] {
		t.Fatal("same inputs must produce the same signature")
	}
	if a["POLY_TIMESTAMP"] != "1700000000" {
		t.Fatalf("timestamp = %q", a["POLY_TIMESTAMP"])
	}

	c := auth.L2HeadersAt("0xabc", "GET", "/markets", "", 1700000001)
	if c["POLY_SIGNATURE"] == a["POLY_SIGNATURE"] {
		t.Fatal("different timestamps must produce different signatures")
	}
}

func TestHMACAuthStringRedactsSecrets(t *testing.T) {
	auth := &HMACAuth{Key: "verysecretkey", Secret: "verysecretvalue"}

	s := auth.String()
	if strings.Contains(s, "verysecretkey") || strings.Contains(s, "verysecretvalue") {
		t.Fatalf("String() leaked credentials: %s", s)
	}
}

func TestNewSignerRejectsGarbageKey(t *testing.T) {
	if _, err := NewSigner("not-a-key", 137); err == nil {
		t.Fatal("expected error for invalid private key")
	}
}

func TestSignAuthMessageProducesRecoverableSignature(t *testing.T) {
	// Throwaway test key.
	s, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := s.SignAuthMessage("1700000000", 0)
	if err != nil {
		t.Fatalf("SignAuthMessage: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+130 {
		t.Fatalf("signature should be a 65-byte hex string, got %q (len %d)", sig, len(sig))
	}
}
