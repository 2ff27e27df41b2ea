package worker

import (
	"github.com/simplechain/node/foundation/blockchain/peer"
)

// peerOperations handles checking the known peers are alive.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation pings every known peer and drops the ones that don't
// answer.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, pr := range w.state.KnownPeers() {
		if err := w.state.NetRequestPeerPing(pr); err != nil {
			w.evHandler("worker: runPeersOperation: ping: %s: ERROR: %s", pr.Host, err)
			w.state.RemoveKnownPeer(pr)
		}
	}
}

// addNewPeers takes the list of peers and makes sure they are included in
// the nodes list of known peers. It returns the peers that were unknown.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) []peer.Peer {
	var added []peer.Peer
	for _, pr := range knownPeers {
		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: addNewPeers: adding peer-node %s", pr)
			added = append(added, pr)
		}
	}

	return added
}
