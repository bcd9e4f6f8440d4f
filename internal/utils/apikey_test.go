package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyAPIKey(t *testing.T) {
	hash, err := HashAPIKey("gate-secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	if !VerifyAPIKeyHash(hash, "gate-secret") {
		t.Error("hash rejected the key it was derived from")
	}
	if VerifyAPIKeyHash(hash, "gate-secre") {
		t.Error("hash accepted a wrong key")
	}
	if VerifyAPIKeyHash("not-a-bcrypt-hash", "gate-secret") {
		t.Error("malformed hash accepted a key")
	}
}

func TestEqualAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "gate-secret", "gate-secret", true},
		{"different", "gate-secret", "other", false},
		{"different length", "gate-secret", "gate-secret-2", false},
		{"both empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqualAPIKeys(tt.a, tt.b); got != tt.want {
				t.Errorf("EqualAPIKeys(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
