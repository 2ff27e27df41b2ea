package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/signature"
)

// Set of error variables for block and transaction validation.
var (
	ErrPoWTooEasy          = errors.New("block hash does not satisfy the difficulty")
	ErrHashMismatch        = errors.New("block hash does not match its content")
	ErrPrevBlockMismatch   = errors.New("previous block does not match the chain tip")
	ErrInvalidCoinbase     = errors.New("invalid coinbase transaction")
	ErrInvalidSignature    = database.ErrInvalidSignature
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEmptyBlock          = errors.New("block has no transactions")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Set of sources blocks are processed from.
const (
	sourceMined  = "mined"
	sourcePeer   = "peer"
	sourceSynced = "synced"
	sourceLocal  = "local"
)

// =============================================================================

// VerifyBlock runs the consensus checks for the block against the current
// chain tip without changing any state.
func (s *State) VerifyBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.verifyBlock(block)
}

// ProcessBlock verifies the block and, if it passes, applies its transactions,
// writes it to disk and moves the chain tip to it.
func (s *State) ProcessBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.processBlock(block)
	s.metrics.block(sourceLocal, err)

	return err
}

// ProcessBlockTransactions applies the balance changes of the block and
// removes its transactions from the mempool. The block is not verified.
func (s *State) ProcessBlockTransactions(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.processBlockTransactions(block)
}

// ProcessMinedBlock takes a block produced by the local miner, processes it
// and asks the worker to share it with the known peers.
func (s *State) ProcessMinedBlock(block database.Block) error {
	s.evHandler("state: ProcessMinedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevBlock, block.Hash, len(block.Transactions))
	defer s.evHandler("state: ProcessMinedBlock: completed: newBlk[%s]", block.Hash)

	s.mu.Lock()
	err := s.processBlock(block)
	s.mu.Unlock()

	s.metrics.block(sourceMined, err)
	if err != nil {
		return err
	}

	s.Worker().SignalShareBlock(block)

	return nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. The mining
// operation is cancelled and the block is shared with the other peers. A
// block that is already known is ignored.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevBlock, block.Hash, len(block.Transactions))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	applied, err := s.processRemoteBlock(block, sourcePeer)
	if err != nil || !applied {
		return err
	}

	// The block being mined is now stale and the network needs to hear
	// about the new tip.
	s.Worker().SignalCancelMining()
	s.Worker().SignalShareBlock(block)

	return nil
}

// ProcessSyncedBlock takes a block retrieved while catching up with a peer.
// The mining operation is cancelled but the block is not shared.
func (s *State) ProcessSyncedBlock(block database.Block) error {
	s.evHandler("state: ProcessSyncedBlock: started: newBlk[%s]", block.Hash)
	defer s.evHandler("state: ProcessSyncedBlock: completed: newBlk[%s]", block.Hash)

	applied, err := s.processRemoteBlock(block, sourceSynced)
	if err != nil || !applied {
		return err
	}

	s.Worker().SignalCancelMining()

	return nil
}

// =============================================================================

// processRemoteBlock processes a block unless it's already part of the chain.
func (s *State) processRemoteBlock(block database.Block, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.storage.GetBlock(block.Hash)
	if err != nil {
		return false, err
	}

	if found {
		s.evHandler("state: processRemoteBlock: blk[%s]: already known", block.Hash)
		return false, nil
	}

	err = s.processBlock(block)
	s.metrics.block(source, err)
	if err != nil {
		return false, err
	}

	return true, nil
}

// processBlock validates the block against the consensus rules. If the block
// passes, then the state of the node is updated including adding the block
// to disk. The caller must hold the state lock.
func (s *State) processBlock(block database.Block) error {
	s.evHandler("state: processBlock: validate block: blk[%s]", block.Hash)

	if err := s.verifyBlock(block); err != nil {
		s.evHandler("state: processBlock: blk[%s]: REJECTED: %s", block.Hash, err)
		return err
	}

	height, err := s.storage.GetLatestBlockNumber()
	if err != nil {
		return err
	}
	height++

	balances, err := s.applyTransactions(block)
	if err != nil {
		s.evHandler("state: processBlock: blk[%s]: REJECTED: %s", block.Hash, err)
		return err
	}

	s.evHandler("state: processBlock: write to disk: height[%d]", height)

	// The blocks store answers "already known", so it's written last. A
	// failed write before it leaves the block free to be processed again.
	if err := s.storage.SetBalances(balances); err != nil {
		return err
	}

	if err := s.storage.SetLatestBlockHash(block.Hash, height); err != nil {
		return err
	}

	if err := s.storage.AddBlock(block); err != nil {
		return err
	}

	s.evHandler("state: processBlock: remove from mempool")

	for _, tx := range block.Transactions {
		s.mempool.Delete(tx.Transaction.ID)
	}

	s.metrics.chainHeight.Set(float64(height))
	s.metrics.mempoolSize.Set(float64(s.mempool.Count()))

	// Send an event about this new block.
	s.blockEvent(height, block)

	return nil
}

// processBlockTransactions writes the balance changes of the block and
// removes its transactions from the mempool.
func (s *State) processBlockTransactions(block database.Block) error {
	balances, err := s.applyTransactions(block)
	if err != nil {
		return err
	}

	if err := s.storage.SetBalances(balances); err != nil {
		return err
	}

	for _, tx := range block.Transactions {
		s.mempool.Delete(tx.Transaction.ID)
	}
	s.metrics.mempoolSize.Set(float64(s.mempool.Count()))

	return nil
}

// applyTransactions computes the balances of every account touched by the
// block. The coinbase credits its receiver, every other transaction moves
// the amount between the accounts in block order. Nothing is written.
func (s *State) applyTransactions(block database.Block) (map[database.PublicKey]uint32, error) {
	balances := make(map[database.PublicKey]uint32)

	balance := func(pk database.PublicKey) (uint32, error) {
		if v, exists := balances[pk]; exists {
			return v, nil
		}

		v, _, err := s.storage.GetBalance(pk)
		if err != nil {
			return 0, err
		}
		balances[pk] = v

		return v, nil
	}

	credit := func(pk database.PublicKey, amount uint32) error {
		v, err := balance(pk)
		if err != nil {
			return err
		}

		if uint64(v)+uint64(amount) > math.MaxUint32 {
			return fmt.Errorf("%w: account[%s]", ErrBalanceOverflow, pk)
		}
		balances[pk] = v + amount

		return nil
	}

	for i, tx := range block.Transactions {
		if i > 0 {
			from, err := balance(tx.Transaction.From)
			if err != nil {
				return nil, err
			}

			if from < tx.Transaction.Amount {
				return nil, fmt.Errorf("%w: tx[%d]: balance[%d]: amount[%d]", ErrInsufficientBalance, i, from, tx.Transaction.Amount)
			}
			balances[tx.Transaction.From] = from - tx.Transaction.Amount
		}

		if err := credit(tx.Transaction.To, tx.Transaction.Amount); err != nil {
			return nil, err
		}
	}

	return balances, nil
}

// verifyBlock performs the consensus checks in order and stops at the
// first failure. The caller must hold the state lock.
func (s *State) verifyBlock(block database.Block) error {
	if !database.IsHashSolved(s.genesis.Difficulty, block.Hash) {
		return fmt.Errorf("%w: hash[%s]: difficulty[%d]", ErrPoWTooEasy, block.Hash, s.genesis.Difficulty)
	}

	if hash := block.ComputeHash(); hash != block.Hash {
		return fmt.Errorf("%w: got[%s]: exp[%s]", ErrHashMismatch, block.Hash, hash)
	}

	tipHash, found, err := s.storage.GetLatestBlockHash()
	if err != nil {
		return err
	}
	if !found {
		tipHash = signature.ZeroHash
	}

	if block.PrevBlock != tipHash {
		return fmt.Errorf("%w: got[%s]: exp[%s]", ErrPrevBlockMismatch, block.PrevBlock, tipHash)
	}

	height, err := s.storage.GetLatestBlockNumber()
	if err != nil {
		return err
	}

	if len(block.Transactions) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCoinbase, ErrEmptyBlock)
	}

	coinbase := block.Transactions[0]
	if err := coinbase.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCoinbase, err)
	}

	if reward := s.genesis.Reward(height + 1); coinbase.Transaction.Amount != reward {
		return fmt.Errorf("%w: amount[%d]: reward[%d]", ErrInvalidCoinbase, coinbase.Transaction.Amount, reward)
	}

	for i, tx := range block.Transactions[1:] {
		if err := s.validateTransaction(tx); err != nil {
			return fmt.Errorf("tx[%d]: %w", i+1, err)
		}
	}

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(height uint32, block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"height":%d,"block":%s}`, height, string(blockJSON))
}
