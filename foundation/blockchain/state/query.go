package state

import (
	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/genesis"
	"github.com/simplechain/node/foundation/blockchain/peer"
	"github.com/simplechain/node/foundation/blockchain/storage"
)

// LatestBlock returns the block at the chain tip. The bool is false when the
// chain is empty.
func (s *State) LatestBlock() (database.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latestBlock()
}

// LatestBlockNumber returns the height of the chain tip, 0 for an empty chain.
func (s *State) LatestBlockNumber() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.GetLatestBlockNumber()
}

// BlockByNumber returns the block at the specified height.
func (s *State) BlockByNumber(number uint32) (database.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, found, err := s.storage.GetBlockHash(number)
	if err != nil || !found {
		return database.Block{}, false, err
	}

	return s.storage.GetBlock(hash)
}

// BlockByHash returns the block for the specified hash.
func (s *State) BlockByHash(hash string) (database.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.GetBlock(hash)
}

// Balance returns the balance of the account, 0 for an unknown account.
func (s *State) Balance(pk database.PublicKey) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, _, err := s.storage.GetBalance(pk)
	return balance, err
}

// Balances returns the balance of every known account.
func (s *State) Balances() (map[database.PublicKey]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.GetBalances()
}

// Mempool returns a copy of the pending transactions.
func (s *State) Mempool() []database.SignedTx {
	return s.mempool.Copy()
}

// MempoolLength returns the number of pending transactions.
func (s *State) MempoolLength() int {
	return s.mempool.Count()
}

// PublicKey returns the public key of the node account.
func (s *State) PublicKey() database.PublicKey {
	return s.publicKey
}

// Genesis returns the consensus parameters.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// ReadOnlyStorage returns a view of the storage for readers that don't need
// the state lock. The view may lag behind the chain tip.
func (s *State) ReadOnlyStorage() *storage.Storage {
	return s.storage.ReadOnly()
}

// =============================================================================

// Host returns the P2P address of this node.
func (s *State) Host() string {
	return s.host
}

// KnownPeers retrieves a copy of the known peer list, without this node.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// KnownPeerHosts returns the hosts of the known peers except this node and
// the excluded hosts.
func (s *State) KnownPeerHosts(exclude ...string) []string {
	return s.knownPeers.Hosts(append(exclude, s.host)...)
}

// AddKnownPeer provides the ability to add a new peer. It reports whether the
// peer was unknown.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}

	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from the known list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}

// =============================================================================

// latestBlock reads the tip block. The caller must hold the state lock.
func (s *State) latestBlock() (database.Block, bool, error) {
	hash, found, err := s.storage.GetLatestBlockHash()
	if err != nil || !found {
		return database.Block{}, false, err
	}

	return s.storage.GetBlock(hash)
}
