package database

import (
	"strconv"
	"strings"

	"github.com/simplechain/node/foundation/blockchain/signature"
)

// ProposedBlock represents a candidate block that has not been mined yet.
type ProposedBlock struct {
	PrevBlock    string     `json:"prev_block"`
	Transactions []SignedTx `json:"transactions"`
}

// Serialize returns the canonical form of the proposed block without a nonce.
func (pb ProposedBlock) Serialize() string {
	var b strings.Builder
	b.WriteString(pb.PrevBlock)
	for _, tx := range pb.Transactions {
		b.WriteString(tx.String())
	}

	return b.String()
}

// Seal constructs the block for the specified nonce. The prefix must be the
// output of Serialize so the hot mining loop doesn't rebuild it.
func (pb ProposedBlock) Seal(prefix string, nonce uint32) Block {
	return Block{
		Hash:         signature.HashHex(prefix + strconv.FormatUint(uint64(nonce), 10)),
		PrevBlock:    pb.PrevBlock,
		Nonce:        nonce,
		Transactions: pb.Transactions,
	}
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Hash         string     `json:"hash"`
	PrevBlock    string     `json:"prev_block"`
	Nonce        uint32     `json:"nonce"`
	Transactions []SignedTx `json:"transactions"`
}

// Serialize returns the canonical form of the block that is hashed.
func (b Block) Serialize() string {
	pb := ProposedBlock{
		PrevBlock:    b.PrevBlock,
		Transactions: b.Transactions,
	}

	return pb.Serialize() + strconv.FormatUint(uint64(b.Nonce), 10)
}

// ComputeHash recomputes the hash of the block from its content.
func (b Block) ComputeHash() string {
	return signature.HashHex(b.Serialize())
}

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint16, hash string) bool {
	const match = signature.ZeroHash

	if len(hash) != len(match) || int(difficulty) > len(match) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
