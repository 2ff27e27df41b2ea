package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/simplechain/node/foundation/blockchain/signature"
)

// Set of error variables for transaction validation.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTxIDMismatch     = errors.New("transaction id does not match its content")
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	ID        string    `json:"tx_id"`      // Serialized form of the remaining fields.
	From      PublicKey `json:"from"`       // Account sending the amount.
	To        PublicKey `json:"to"`         // Account receiving the amount.
	Amount    uint32    `json:"amount"`     // Value moved between the accounts.
	CreatedAt uint64    `json:"created_at"` // Unix milliseconds the transaction was created.
}

// NewTx constructs a new transaction and derives its id.
func NewTx(from PublicKey, to PublicKey, amount uint32, createdAt uint64) (Tx, error) {
	if !from.IsPublicKey() {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}

	if !to.IsPublicKey() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	tx := Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: createdAt,
	}
	tx.ID = tx.Serialize()

	return tx, nil
}

// Serialize returns the canonical form of the transaction that is signed
// and used as the transaction id.
func (tx Tx) Serialize() string {
	amount := hex.EncodeToString([]byte(strconv.FormatUint(uint64(tx.Amount), 10)))
	createdAt := hex.EncodeToString([]byte(strconv.FormatUint(tx.CreatedAt, 10)))

	return string(tx.From) + string(tx.To) + amount + createdAt
}

// Hash returns the digest that is signed for this transaction.
func (tx Tx) Hash() []byte {
	return signature.Hash(tx.Serialize())
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if PublicKeyFromECDSA(privateKey.PublicKey) != tx.From {
		return SignedTx{}, errors.New("private key does not belong to the from account")
	}

	sig, err := signature.Sign(tx.Hash(), privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Transaction: tx,
		Sig:         sig,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Transaction Tx     `json:"transaction"`
	Sig         string `json:"sig"`
}

// IsSigValid verifies the signature was produced by the from account over
// the transaction digest.
func (tx SignedTx) IsSigValid() bool {
	pub, err := tx.Transaction.From.Bytes()
	if err != nil {
		return false
	}

	return signature.Verify(tx.Transaction.Hash(), pub, tx.Sig)
}

// Validate verifies the transaction id matches the content and the
// signature belongs to the from account.
func (tx SignedTx) Validate() error {
	if tx.Transaction.ID != tx.Transaction.Serialize() {
		return ErrTxIDMismatch
	}

	if !tx.IsSigValid() {
		return ErrInvalidSignature
	}

	return nil
}

// String returns the form of the transaction that is embedded in the
// serialized block.
func (tx SignedTx) String() string {
	return tx.Transaction.Serialize() + tx.Sig
}
