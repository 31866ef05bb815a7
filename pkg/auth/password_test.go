package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{
			name:       "eight lowercase and digits accepted",
			password:   "abcd1234",
			shouldFail: false,
		},
		{
			name:          "too short",
			password:      "short",
			shouldFail:    true,
			errorContains: "at least 8",
		},
		{
			name:          "denylisted password",
			password:      "password",
			shouldFail:    true,
			errorContains: "too common",
		},
		{
			name:          "denylist is case-insensitive",
			password:      "QWERTY123",
			shouldFail:    true,
			errorContains: "too common",
		},
		{
			name:          "numeric denylist entry",
			password:      "12345678",
			shouldFail:    true,
			errorContains: "too common",
		},
		{
			name:       "no complexity rules",
			password:   "aaaaaaaa",
			shouldFail: false,
		},
		{
			name:       "denylist matches whole value only",
			password:   "password1",
			shouldFail: false,
		},
		{
			name:          "too long",
			password:      strings.Repeat("a", MaxPasswordLen+1),
			shouldFail:    true,
			errorContains: "at most 72 bytes",
		},
		{
			name:          "short multibyte password counts characters",
			password:      "éééé",
			shouldFail:    true,
			errorContains: "at least 8",
		},
		{
			name:       "eight multibyte characters accepted",
			password:   "éééééééé",
			shouldFail: false,
		},
		{
			name:          "multibyte password over the byte limit",
			password:      strings.Repeat("é", 37),
			shouldFail:    true,
			errorContains: "at most 72 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error message should contain %q, got: %v", tt.errorContains, err)
				}
				var pve *PasswordValidationError
				if !errors.As(err, &pve) {
					t.Errorf("expected *PasswordValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := "abcd1234"

	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "" || hash == password {
		t.Fatalf("unexpected hash %q", hash)
	}

	if !h.Verify(password, hash) {
		t.Error("Verify with correct password should succeed")
	}
	if h.Verify("abcd12345", hash) {
		t.Error("Verify with a different password should fail")
	}
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password should differ")
	}
	if !h.Verify("same-password", first) || !h.Verify("same-password", second) {
		t.Error("both hashes should verify")
	}
}

func TestHasher_MalformedHashFailsClosed(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short", "$2a$99$" + strings.Repeat("x", 53)} {
		if h.Verify("abcd1234", hash) {
			t.Errorf("Verify should fail for malformed hash %q", hash)
		}
	}
}

func TestHasher_EmptyPasswordRejected(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(""); err == nil {
		t.Error("expected error hashing empty password")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if got := NewHasher(1).Cost(); got != DefaultBcryptCost {
		t.Errorf("cost below minimum: got %d, want %d", got, DefaultBcryptCost)
	}
	if got := NewHasher(bcrypt.MaxCost + 1).Cost(); got != DefaultBcryptCost {
		t.Errorf("cost above maximum: got %d, want %d", got, DefaultBcryptCost)
	}
	if got := NewHasher(bcrypt.MinCost).Cost(); got != bcrypt.MinCost {
		t.Errorf("valid cost: got %d, want %d", got, bcrypt.MinCost)
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	low := NewHasher(bcrypt.MinCost)
	hash, err := low.Hash("abcd1234")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if low.NeedsRehash(hash) {
		t.Error("hash at current cost should not need rehash")
	}
	if !NewHasher(bcrypt.MinCost + 1).NeedsRehash(hash) {
		t.Error("hash at a lower cost should need rehash")
	}
	if !low.NeedsRehash("garbage") {
		t.Error("malformed hash should need rehash")
	}
}

func TestHasher_BurnVerifyDoesNotPanic(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	h.BurnVerify("anything")
	h.BurnVerify("anything else")
}
