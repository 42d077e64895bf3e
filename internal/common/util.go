// Package common contains small helpers shared across OpenVault components:
// random token generation and byte-slice hygiene.
package common

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"math/big"
)

// recoveryCodeCharset is the alphabet for backup recovery codes. Uppercase
// alphanumeric keeps the codes easy to read back over the phone.
const recoveryCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandHexString returns a hex string covering size random bytes
// (the result is 2*size characters long).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeURLSafeToken returns a base64url-encoded string of size random bytes,
// suitable for use in URLs and HTTP bodies without escaping. Used for
// refresh tokens and share-link tokens.
func MakeURLSafeToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MakeRecoveryCode returns a random code of length characters drawn from the
// uppercase-alphanumeric charset.
func MakeRecoveryCode(length int) (string, error) {
	max := big.NewInt(int64(len(recoveryCodeCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = recoveryCodeCharset[n.Int64()]
	}
	return string(out), nil
}

// MakeNumericCode returns a random code of length decimal digits, used for
// share-link OTP codes.
func MakeNumericCode(length int) (string, error) {
	max := big.NewInt(10)
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}

// GenerateRandByteArray returns size random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray zeroes the buffer in place. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
