// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros. It is used as the previous block
// hash for the first block in the chain.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// Hash returns the sha256 digest of the value.
func Hash(value string) []byte {
	hash := sha256.Sum256([]byte(value))
	return hash[:]
}

// HashHex returns the hex encoded sha256 digest of the value.
func HashHex(value string) string {
	return hex.EncodeToString(Hash(value))
}

// Sign uses the specified private key to sign the digest. The signature is
// returned as the hex encoded [R|S] form without the recovery id.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) (string, error) {

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}

	// Check the public key extracted matches the signer.
	if !bytes.Equal(crypto.CompressPubkey(publicKey), crypto.CompressPubkey(&privateKey.PublicKey)) {
		return "", errors.New("signature does not match the signer")
	}

	return hex.EncodeToString(sig[:crypto.RecoveryIDOffset]), nil
}

// Verify checks the hex encoded [R|S] signature was produced over the digest
// by the owner of the compressed public key.
func Verify(digest []byte, compressedPubKey []byte, sigStr string) bool {
	sig, err := hex.DecodeString(sigStr)
	if err != nil {
		return false
	}

	if len(sig) != crypto.RecoveryIDOffset {
		return false
	}

	return crypto.VerifySignature(compressedPubKey, digest, sig)
}
