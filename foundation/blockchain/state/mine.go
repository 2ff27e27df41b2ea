package state

import (
	"time"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/signature"
)

// CreateCoinbaseTx builds the reward transaction for the next block. The
// reward is paid from and to the node account.
func (s *State) CreateCoinbaseTx() (database.SignedTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCoinbaseTx()
}

// GetProposedBlock builds the next block to mine on top of the chain tip:
// the coinbase followed by the pending transactions. Transactions that can
// no longer be paid for are evicted from the mempool.
func (s *State) GetProposedBlock() (database.ProposedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevBlock, found, err := s.storage.GetLatestBlockHash()
	if err != nil {
		return database.ProposedBlock{}, err
	}
	if !found {
		prevBlock = signature.ZeroHash
	}

	coinbase, err := s.createCoinbaseTx()
	if err != nil {
		return database.ProposedBlock{}, err
	}

	pb := database.ProposedBlock{
		PrevBlock:    prevBlock,
		Transactions: []database.SignedTx{coinbase},
	}

	for _, tx := range s.mempool.Copy() {
		candidate := database.Block{
			Transactions: append(pb.Transactions[:len(pb.Transactions):len(pb.Transactions)], tx),
		}

		if err := s.validateTransaction(tx); err != nil {
			s.evict(tx, err)
			continue
		}

		if _, err := s.applyTransactions(candidate); err != nil {
			s.evict(tx, err)
			continue
		}

		pb.Transactions = candidate.Transactions
	}

	s.evHandler("state: GetProposedBlock: prevBlk[%s]: numTrans[%d]", pb.PrevBlock, len(pb.Transactions))

	return pb, nil
}

// =============================================================================

// createCoinbaseTx builds and signs the reward for the height after the tip.
// The caller must hold the state lock.
func (s *State) createCoinbaseTx() (database.SignedTx, error) {
	height, err := s.storage.GetLatestBlockNumber()
	if err != nil {
		return database.SignedTx{}, err
	}

	tx, err := database.NewTx(s.publicKey, s.publicKey, s.genesis.Reward(height+1), uint64(time.Now().UnixMilli()))
	if err != nil {
		return database.SignedTx{}, err
	}

	return tx.Sign(s.privateKey)
}

// evict removes a transaction that can't be mined from the mempool.
func (s *State) evict(tx database.SignedTx, err error) {
	s.evHandler("state: GetProposedBlock: tx[%s]: EVICTED: %s", shortID(tx), err)

	s.mempool.Delete(tx.Transaction.ID)
	s.metrics.mempoolSize.Set(float64(s.mempool.Count()))
}
