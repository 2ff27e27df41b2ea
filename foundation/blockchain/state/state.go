// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/genesis"
	"github.com/simplechain/node/foundation/blockchain/mempool"
	"github.com/simplechain/node/foundation/blockchain/peer"
	"github.com/simplechain/node/foundation/blockchain/storage"
	"github.com/simplechain/node/foundation/p2p"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and block and
// transaction sharing.
type Worker interface {
	Shutdown()
	SignalCancelMining()
	SignalShareTx(tx database.SignedTx)
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	PrivateKey *ecdsa.PrivateKey
	Host       string
	Storage    *storage.Storage
	Genesis    genesis.Genesis
	KnownPeers *peer.PeerSet
	Client     p2p.Client
	EvHandler  EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	privateKey *ecdsa.PrivateKey
	publicKey  database.PublicKey
	host       string
	evHandler  EventHandler
	client     p2p.Client
	metrics    *metrics

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	storage    *storage.Storage

	workerMu sync.RWMutex
	worker   Worker
}

// New constructs a new blockchain for data management. The chain itself is
// not loaded into memory, storage is the source of truth for the tip and the
// balances.
func New(cfg Config) (*State, error) {
	if cfg.PrivateKey == nil {
		return nil, errors.New("private key is required")
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if cfg.Storage.IsReadOnly() {
		return nil, errors.New("storage must be writable")
	}

	if cfg.Genesis.HalvingInterval == 0 {
		return nil, errors.New("genesis halving interval must be greater than zero")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		privateKey: cfg.PrivateKey,
		publicKey:  database.PublicKeyFromECDSA(cfg.PrivateKey.PublicKey),
		host:       cfg.Host,
		evHandler:  ev,
		client:     cfg.Client,
		metrics:    newMetrics(),

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mempool.New(),
		storage:    cfg.Storage,

		worker: nopWorker{},
	}

	// The Worker is not set here. The call to worker.Run will register itself
	// and start everything up and running for the node.

	return &state, nil
}

// Start reports the last block of the chain found in storage. The bool is
// false when the chain is empty.
func (s *State) Start() (database.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, found, err := s.latestBlock()
	if err != nil {
		return database.Block{}, false, err
	}

	height, err := s.storage.GetLatestBlockNumber()
	if err != nil {
		return database.Block{}, false, err
	}
	s.metrics.chainHeight.Set(float64(height))

	if found {
		s.evHandler("state: Start: height[%d]: blk[%s]", height, block.Hash)
	} else {
		s.evHandler("state: Start: empty chain")
	}

	return block, found, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker().Shutdown()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.Close()
}

// RegisterWorker sets the worker the state signals for mining and sharing.
func (s *State) RegisterWorker(w Worker) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	if w == nil {
		w = nopWorker{}
	}
	s.worker = w
}

// Worker returns the registered worker.
func (s *State) Worker() Worker {
	s.workerMu.RLock()
	defer s.workerMu.RUnlock()

	return s.worker
}

// =============================================================================

// nopWorker is used until a worker is registered.
type nopWorker struct{}

func (nopWorker) Shutdown()                       {}
func (nopWorker) SignalCancelMining()             {}
func (nopWorker) SignalShareTx(database.SignedTx) {}
func (nopWorker) SignalShareBlock(database.Block) {}
