// Package security implements S0 (AES-128) command-class encapsulation:
// key derivation, nonce management and the authenticated encryption
// scheme. Grounded on
// original_source/packages/core/src/security/{crypto,manager}.rs.
package security

import (
	"crypto/aes"
	"crypto/cipher"
)

// No suitable pack example wires a third-party AES/CMAC convenience
// library (the corpus's crypto use, where present, is TLS via stdlib);
// crypto/aes + crypto/cipher is the grounded choice here (see
// DESIGN.md).

// EncryptAESECB encrypts a single 16-byte block with AES-128 in ECB mode.
// Used only for S0 key derivation (auth/enc key from the network key),
// never for bulk data.
func EncryptAESECB(plaintext, key []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, plaintext)
	return out
}

// EncryptAESOFB and DecryptAESOFB are the same operation: OFB keystream
// XOR is its own inverse.

func EncryptAESOFB(plaintext, key, iv []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	stream := cipher.NewOFB(block, iv)
	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)
	return out
}

func DecryptAESOFB(ciphertext, key, iv []byte) []byte {
	return EncryptAESOFB(ciphertext, key, iv)
}

// ComputeMAC authenticates plaintext with a CBC-MAC over an all-zero IV,
// per the S0 scheme.
func ComputeMAC(plaintext, key []byte) []byte {
	iv := make([]byte, aes.BlockSize)
	return ComputeMACIV(plaintext, key, iv)
}

// ComputeMACIV computes a CBC-MAC over plaintext, zero-padded to a whole
// number of AES blocks, and returns the first 8 bytes of the final
// ciphertext block.
func ComputeMACIV(plaintext, key, iv []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	padded := zeroPad(plaintext, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	buf := make([]byte, len(padded))
	mode.CryptBlocks(buf, padded)
	last := buf[len(buf)-aes.BlockSize:]
	mac := make([]byte, 8)
	copy(mac, last[:8])
	return mac
}

func zeroPad(b []byte, blockSize int) []byte {
	rem := len(b) % blockSize
	if rem == 0 {
		return b
	}
	out := make([]byte, len(b)+(blockSize-rem))
	copy(out, b)
	return out
}
