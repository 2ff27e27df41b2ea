package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/peer"
	"github.com/simplechain/node/foundation/p2p"
)

// NetSendBlockToPeers takes the new block and sends it to all known peers.
// A failing peer doesn't stop the block from reaching the others.
func (s *State) NetSendBlockToPeers(block database.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started: blk[%s]", block.Hash)
	defer s.evHandler("state: NetSendBlockToPeers: completed: blk[%s]", block.Hash)

	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	var errs []error
	for _, pr := range s.KnownPeers() {
		if err := s.sendAck(pr, p2p.CmdNewBlock, string(data)); err != nil {
			s.evHandler("state: NetSendBlockToPeers: WARNING: %s", err)
			errs = append(errs, err)
			continue
		}

		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr)
	}

	return errors.Join(errs...)
}

// NetSendTxToPeers shares a new transaction with the known peers.
func (s *State) NetSendTxToPeers(tx database.SignedTx) {
	s.evHandler("state: NetSendTxToPeers: started: tx[%s]", shortID(tx))
	defer s.evHandler("state: NetSendTxToPeers: completed: tx[%s]", shortID(tx))

	data, err := json.Marshal(tx)
	if err != nil {
		s.evHandler("state: NetSendTxToPeers: ERROR: %s", err)
		return
	}

	for _, pr := range s.KnownPeers() {
		if err := s.sendAck(pr, p2p.CmdNewTransaction, string(data)); err != nil {
			s.evHandler("state: NetSendTxToPeers: WARNING: %s", err)
		}
	}
}

// NetRequestPeerPing checks the peer is alive.
func (s *State) NetRequestPeerPing(pr peer.Peer) error {
	resp, err := s.client.Send(pr.Host, p2p.CmdPing, "")
	if err != nil {
		return err
	}

	if resp != p2p.Pong {
		return fmt.Errorf("%s: unexpected ping response %q", pr, resp)
	}

	return nil
}

// NetRequestAddPeer announces this node to the peer and returns the peers
// it knows about.
func (s *State) NetRequestAddPeer(pr peer.Peer) ([]peer.Peer, error) {
	s.evHandler("state: NetRequestAddPeer: started: %s", pr)
	defer s.evHandler("state: NetRequestAddPeer: completed: %s", pr)

	resp, err := s.client.Send(pr.Host, p2p.CmdNewPeer, s.host)
	if err != nil {
		return nil, err
	}

	var hosts []string
	if err := json.Unmarshal([]byte(resp), &hosts); err != nil {
		return nil, fmt.Errorf("%s: decode peers: %w: %s", pr, err, resp)
	}

	peers := make([]peer.Peer, 0, len(hosts))
	for _, host := range hosts {
		peers = append(peers, peer.New(host))
	}

	s.evHandler("state: NetRequestAddPeer: peer[%s]: peer-list%s", pr, hosts)

	return peers, nil
}

// NetRequestPeerBlocks queries the peer for the blocks that follow the local
// chain tip and applies them in order. It returns the number of blocks
// applied.
func (s *State) NetRequestPeerBlocks(pr peer.Peer) (int, error) {
	s.evHandler("state: NetRequestPeerBlocks: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerBlocks: completed: %s", pr)

	resp, err := s.client.Send(pr.Host, p2p.CmdGetBlocks, "")
	if err != nil {
		return 0, err
	}

	var hashes []string
	if err := json.Unmarshal([]byte(resp), &hashes); err != nil {
		return 0, fmt.Errorf("%s: decode block hashes: %w: %s", pr, err, resp)
	}

	s.mu.Lock()
	tip, found, err := s.storage.GetLatestBlockHash()
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	missing := missingHashes(hashes, tip, found)

	s.evHandler("state: NetRequestPeerBlocks: peer[%s]: blocks[%d]: missing[%d]", pr, len(hashes), len(missing))

	var applied int
	for _, hash := range missing {
		block, err := s.netRequestPeerBlock(pr, hash)
		if err != nil {
			return applied, err
		}

		if err := s.ProcessSyncedBlock(block); err != nil {
			return applied, fmt.Errorf("%s: blk[%s]: %w", pr, hash, err)
		}
		applied++
	}

	return applied, nil
}

// =============================================================================

// netRequestPeerBlock retrieves a single block from the peer.
func (s *State) netRequestPeerBlock(pr peer.Peer, hash string) (database.Block, error) {
	resp, err := s.client.Send(pr.Host, p2p.CmdGetBlock, hash)
	if err != nil {
		return database.Block{}, err
	}

	var block *database.Block
	if err := json.Unmarshal([]byte(resp), &block); err != nil {
		return database.Block{}, fmt.Errorf("%s: decode block %s: %w", pr, hash, err)
	}

	if block == nil {
		return database.Block{}, fmt.Errorf("%s: block %s not found", pr, hash)
	}

	return *block, nil
}

// sendAck sends a gossip message and expects the acknowledgement back.
func (s *State) sendAck(pr peer.Peer, command string, payload string) error {
	resp, err := s.client.Send(pr.Host, command, payload)
	if err != nil {
		return err
	}

	if resp != p2p.Ack {
		return fmt.Errorf("%s %s: %s", pr, command, resp)
	}

	return nil
}

// missingHashes returns the hashes that come after the local tip in the
// peer's chain. Everything is missing when there is no local tip and
// nothing is when the peer doesn't know the tip.
func missingHashes(hashes []string, tip string, found bool) []string {
	if !found {
		return hashes
	}

	for i, hash := range hashes {
		if hash == tip {
			return hashes[i+1:]
		}
	}

	return nil
}
