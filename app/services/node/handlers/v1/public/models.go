package public

import (
	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/validate"
)

// ProtocolVersion is the version of the API reported to clients.
const ProtocolVersion = "1.0.0"

type version struct {
	Version string `json:"version"`
}

type pubKey struct {
	PublicKey database.PublicKey `json:"pubkey"`
}

type height struct {
	Height uint32 `json:"height"`
}

type balance struct {
	PublicKey database.PublicKey `json:"pubkey"`
	Balance   uint32             `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type status struct {
	Status string `json:"status"`
}

// =============================================================================

// SendTx is the request to move funds out of the node account.
type SendTx struct {
	To     database.PublicKey `json:"to" validate:"required,pubkey"`
	Amount uint32             `json:"amount" validate:"gt=0"`
}

// Validate checks the data in the model is considered clean.
func (stx SendTx) Validate() error {
	return validate.Check(stx)
}
