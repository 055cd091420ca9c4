package security

import (
	"crypto/rand"
	"fmt"
)

const (
	// NetworkKeySize is the width of an S0 network key and its derived
	// auth/enc keys.
	NetworkKeySize = 16
	// HalfNonceSize is the width of a nonce as carried on the wire (the
	// sender and receiver halves are concatenated into a full IV).
	HalfNonceSize = 8
)

var (
	authKeyBase = bytes16(0x55)
	encKeyBase  = bytes16(0xaa)
)

func bytes16(b byte) []byte {
	out := make([]byte, 16)
	for i := range out {
		out[i] = b
	}
	return out
}

// S0Nonce is a sender- or receiver-half nonce: 8 random bytes, the first
// of which doubles as its lookup id.
type S0Nonce [HalfNonceSize]byte

// NewS0Nonce wraps an existing 8-byte nonce value.
func NewS0Nonce(b []byte) S0Nonce {
	if len(b) != HalfNonceSize {
		panic(fmt.Sprintf("security: S0 nonce must be %d bytes, got %d", HalfNonceSize, len(b)))
	}
	var n S0Nonce
	copy(n[:], b)
	return n
}

// RandomS0Nonce generates a fresh nonce.
func RandomS0Nonce() S0Nonce {
	var n S0Nonce
	if _, err := rand.Read(n[:]); err != nil {
		panic(fmt.Sprintf("security: failed to generate random nonce: %v", err))
	}
	return n
}

// ID is the nonce's lookup id: its first byte.
func (n S0Nonce) ID() byte { return n[0] }

func (n S0Nonce) Bytes() []byte { return n[:] }

func (n S0Nonce) String() string { return fmt.Sprintf("0x%x", [HalfNonceSize]byte(n)) }

// NetworkKey is an S0 network, authentication, or encryption key.
type NetworkKey [NetworkKeySize]byte

func NewNetworkKey(b []byte) NetworkKey {
	if len(b) != NetworkKeySize {
		panic(fmt.Sprintf("security: network key must be %d bytes, got %d", NetworkKeySize, len(b)))
	}
	var k NetworkKey
	copy(k[:], b)
	return k
}

func (k NetworkKey) Bytes() []byte { return k[:] }

func (k NetworkKey) String() string { return fmt.Sprintf("%x", [NetworkKeySize]byte(k)) }

func generateAuthKey(networkKey NetworkKey) NetworkKey {
	return NewNetworkKey(EncryptAESECB(authKeyBase, networkKey.Bytes()))
}

func generateEncKey(networkKey NetworkKey) NetworkKey {
	return NewNetworkKey(EncryptAESECB(encKeyBase, networkKey.Bytes()))
}
