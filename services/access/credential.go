package access

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Credential checks a caller supplied admin secret.
type Credential interface {
	Match(secret string) bool
}

// StaticCredential compares against a plain configured secret in constant
// time. An empty configured secret never matches.
type StaticCredential string

func (c StaticCredential) Match(secret string) bool {
	if c == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c), []byte(secret)) == 1
}

// BcryptCredential holds a bcrypt hash of the admin secret.
type BcryptCredential []byte

func NewBcryptCredential(hash string) (BcryptCredential, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return BcryptCredential(hash), nil
}

func (c BcryptCredential) Match(secret string) bool {
	if len(c) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c, []byte(secret)) == nil
}
