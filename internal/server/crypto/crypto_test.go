package crypto

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash not in PHC format: %q", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("expected matching password to verify")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("expected non-matching password to fail")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-input")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashPassword("same-input")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password must differ (random salt)")
	}
}

func TestVerifyPassword_BadFormats(t *testing.T) {
	for _, bad := range []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	} {
		if _, err := VerifyPassword("pw", bad); err == nil {
			t.Errorf("expected error for hash %q", bad)
		}
	}
}

func TestSealAndOpenItem(t *testing.T) {
	ct, salt, err := SealItem("master-pw", "the item password")
	if err != nil {
		t.Fatalf("SealItem failed: %v", err)
	}
	if ct == "" || salt == "" {
		t.Fatal("empty ciphertext or salt")
	}
	if strings.Contains(ct, "the item password") {
		t.Fatal("plaintext leaked into ciphertext")
	}

	plain, err := OpenItem("master-pw", ct, salt)
	if err != nil {
		t.Fatalf("OpenItem failed: %v", err)
	}
	if plain != "the item password" {
		t.Errorf("plaintext = %q; want %q", plain, "the item password")
	}
}

func TestOpenItem_WrongMasterPassword(t *testing.T) {
	ct, salt, err := SealItem("master-pw", "secret value")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := OpenItem("not-the-master-pw", ct, salt); err != ErrDecryptFailed {
		t.Errorf("err = %v; want ErrDecryptFailed", err)
	}
	if _, err := OpenItem("master-pw", "!!!not-base64!!!", salt); err != ErrDecryptFailed {
		t.Errorf("err = %v; want ErrDecryptFailed", err)
	}
	if _, err := OpenItem("master-pw", "YWJj", salt); err != ErrDecryptFailed {
		t.Errorf("short ciphertext err = %v; want ErrDecryptFailed", err)
	}
}
