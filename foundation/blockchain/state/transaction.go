package state

import (
	"fmt"
	"time"

	"github.com/simplechain/node/foundation/blockchain/database"
)

// AddTxToMempool validates the transaction and adds it to the mempool.
func (s *State) AddTxToMempool(tx database.SignedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addTxToMempool(tx)
}

// UpsertNodeTransaction accepts a transaction shared by a peer. A transaction
// that is already pending is accepted without being validated again.
func (s *State) UpsertNodeTransaction(tx database.SignedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mempool.Contains(tx.Transaction.ID) {
		s.evHandler("state: UpsertNodeTransaction: tx[%s]: already pending", shortID(tx))
		return nil
	}

	return s.addTxToMempool(tx)
}

// SendTx builds a transaction from the node account, signs it with the node
// key, adds it to the mempool and asks the worker to share it.
func (s *State) SendTx(to database.PublicKey, amount uint32) (database.SignedTx, error) {
	tx, err := database.NewTx(s.publicKey, to, amount, uint64(time.Now().UnixMilli()))
	if err != nil {
		return database.SignedTx{}, err
	}

	signedTx, err := tx.Sign(s.privateKey)
	if err != nil {
		return database.SignedTx{}, err
	}

	s.mu.Lock()
	err = s.addTxToMempool(signedTx)
	s.mu.Unlock()

	if err != nil {
		return database.SignedTx{}, err
	}

	s.Worker().SignalShareTx(signedTx)

	return signedTx, nil
}

// SubmitTx accepts a transaction signed by a wallet, adds it to the mempool
// and asks the worker to share it.
func (s *State) SubmitTx(tx database.SignedTx) error {
	s.mu.Lock()
	err := s.addTxToMempool(tx)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.Worker().SignalShareTx(tx)

	return nil
}

// =============================================================================

// addTxToMempool performs the regular transaction checks and inserts the
// transaction by id. The caller must hold the state lock.
func (s *State) addTxToMempool(tx database.SignedTx) error {
	if err := s.validateTransaction(tx); err != nil {
		s.evHandler("state: addTxToMempool: tx[%s]: REJECTED: %s", shortID(tx), err)
		return err
	}

	n := s.mempool.Upsert(tx)
	s.metrics.mempoolSize.Set(float64(n))

	s.evHandler("state: addTxToMempool: tx[%s]: from[%s]: to[%s]: amount[%d]: mempool[%d]", shortID(tx), tx.Transaction.From, tx.Transaction.To, tx.Transaction.Amount, n)

	return nil
}

// validateTransaction takes the signed transaction and validates it has
// a proper signature and the sender holds enough on disk to cover it.
func (s *State) validateTransaction(tx database.SignedTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	balance, _, err := s.storage.GetBalance(tx.Transaction.From)
	if err != nil {
		return err
	}

	if balance < tx.Transaction.Amount {
		return fmt.Errorf("%w: balance[%d]: amount[%d]", ErrInsufficientBalance, balance, tx.Transaction.Amount)
	}

	return nil
}

// shortID keeps the event lines readable, the id holds both public keys.
func shortID(tx database.SignedTx) string {
	if len(tx.Sig) > 16 {
		return tx.Sig[:16]
	}
	return tx.Sig
}
