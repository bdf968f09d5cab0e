package auth

import (
	"strings"
	"testing"
)

func TestNewToken(t *testing.T) {
	token, digest, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$") {
		t.Errorf("digest = %q, want argon2id encoding", digest)
	}
	if !VerifyToken(token, digest) {
		t.Error("token does not verify against its own digest")
	}
	if VerifyToken(token+"x", digest) {
		t.Error("modified token verified")
	}
}

func TestHashTokenUniqueSalts(t *testing.T) {
	a, err := HashToken("secret")
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashToken("secret")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two digests of the same token are identical")
	}
	if !VerifyToken("secret", a) || !VerifyToken("secret", b) {
		t.Error("digests do not verify")
	}
}

func TestVerifyTokenRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"wrong part count", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA"},
		{"bad version", "$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$@@$aGFzaA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyToken("secret", tt.encoded) {
				t.Error("malformed digest verified")
			}
		})
	}
}
