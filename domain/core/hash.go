package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to correlate log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// PayloadHash fingerprints a raw request payload
type PayloadHash Hash

func NewPayloadHash(data []byte) PayloadHash { return PayloadHash(NewHash(data)) }

func (h PayloadHash) String() string { return Hash(h).String() }
func (h PayloadHash) Short() string  { return Hash(h).Short() }
