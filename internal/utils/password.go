package utils

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost. Every new
// credential goes through here; the legacy encodings are never produced.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CredentialVerifier checks a candidate password against one stored
// credential encoding.
type CredentialVerifier interface {
	// Name identifies the encoding ("bcrypt", "base64", "plaintext").
	Name() string
	// Claims reports whether stored is definitely in this encoding. A
	// claimed credential is never offered to later verifiers.
	Claims(stored string) bool
	// Verify reports whether candidate matches stored.
	Verify(stored, candidate string) bool
}

// BcryptVerifier handles $2a$, $2b$ and $2y$ hashes.
type BcryptVerifier struct{}

func (BcryptVerifier) Name() string { return "bcrypt" }

func (BcryptVerifier) Claims(stored string) bool { return IsBcryptHash(stored) }

// Verify treats any bcrypt error, malformed hashes included, as no match.
func (BcryptVerifier) Verify(stored, candidate string) bool {
	if !IsBcryptHash(stored) {
		return false
	}
	return VerifyPassword(stored, candidate)
}

// Base64Verifier handles credentials stored as base64 of the password.
type Base64Verifier struct{}

func (Base64Verifier) Name() string { return "base64" }

func (Base64Verifier) Claims(string) bool { return false }

func (Base64Verifier) Verify(stored, candidate string) bool {
	decoded, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(decoded, []byte(candidate)) == 1
}

// PlaintextVerifier handles credentials stored verbatim.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Name() string { return "plaintext" }

func (PlaintextVerifier) Claims(string) bool { return false }

func (PlaintextVerifier) Verify(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// VerifierChain tries verifiers in order; the first match wins.
type VerifierChain []CredentialVerifier

// Match returns the verifier that accepted the candidate, or nil.
func (c VerifierChain) Match(stored, candidate string) CredentialVerifier {
	for _, v := range c {
		if v.Verify(stored, candidate) {
			return v
		}
		if v.Claims(stored) {
			return nil
		}
	}
	return nil
}

// Verify reports whether any verifier in the chain accepts the candidate.
func (c VerifierChain) Verify(stored, candidate string) bool {
	return c.Match(stored, candidate) != nil
}

// LegacyVerifiers accepts rows created at any point of the customer
// table's history: bcrypt, then base64, then plain text. Use it only for
// customer login.
func LegacyVerifiers() VerifierChain {
	return VerifierChain{BcryptVerifier{}, Base64Verifier{}, PlaintextVerifier{}}
}

// StrictVerifiers accepts bcrypt hashes only.
func StrictVerifiers() VerifierChain {
	return VerifierChain{BcryptVerifier{}}
}

// IsBcryptHash reports whether s carries a bcrypt prefix.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
