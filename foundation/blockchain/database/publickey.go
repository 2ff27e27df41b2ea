package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKey represents the hex encoded compressed secp256k1 point that
// identifies an account on the blockchain.
type PublicKey string

// ToPublicKey converts a hex-encoded string to a public key and validates the
// hex-encoded string represents a point on the curve.
func ToPublicKey(hexKey string) (PublicKey, error) {
	pk := PublicKey(strings.ToLower(hexKey))
	if !pk.IsPublicKey() {
		return "", errors.New("invalid public key format")
	}

	return pk, nil
}

// PublicKeyFromECDSA converts the ecdsa public key to its compressed form.
func PublicKeyFromECDSA(pk ecdsa.PublicKey) PublicKey {
	return PublicKey(hex.EncodeToString(crypto.CompressPubkey(&pk)))
}

// Bytes returns the compressed point as bytes.
func (pk PublicKey) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(string(pk))
	if err != nil {
		return nil, err
	}

	if len(b) != 33 {
		return nil, errors.New("public key must be 33 bytes")
	}

	return b, nil
}

// IsPublicKey verifies whether the underlying data represents a valid
// compressed secp256k1 public key.
func (pk PublicKey) IsPublicKey() bool {
	b, err := pk.Bytes()
	if err != nil {
		return false
	}

	if _, err := crypto.DecompressPubkey(b); err != nil {
		return false
	}

	return true
}

// UnmarshalText validates public keys as they are decoded from the wire.
func (pk *PublicKey) UnmarshalText(data []byte) error {
	v, err := ToPublicKey(string(data))
	if err != nil {
		return err
	}

	*pk = v
	return nil
}
