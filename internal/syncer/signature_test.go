package syncer

import (
	"strings"
	"testing"
)

func TestVerifySignatureAcceptsCorrectSignature(t *testing.T) {
	body := []byte(`{"operation":"TEST"}`)
	signature := Sign("secret", body)

	if errVerify := VerifySignature("secret", body, signature); errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	// Presented hex casing must not matter.
	if errVerify := VerifySignature("secret", body, strings.ToUpper(signature)); errVerify != nil {
		t.Fatalf("verify uppercase: %v", errVerify)
	}
}

func TestVerifySignatureRejectsMismatch(t *testing.T) {
	body := []byte(`{"operation":"TEST"}`)

	if errVerify := VerifySignature("secret", body, Sign("other-secret", body)); errVerify != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for wrong secret, got %v", errVerify)
	}
	if errVerify := VerifySignature("secret", []byte(`tampered`), Sign("secret", body)); errVerify != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", errVerify)
	}
	if errVerify := VerifySignature("secret", body, ""); errVerify != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for empty signature, got %v", errVerify)
	}
}
