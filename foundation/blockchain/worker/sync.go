package worker

import (
	"github.com/simplechain/node/foundation/blockchain/peer"
)

// Sync joins the network through the bootstrap peers. Every peer reached is
// asked for the blocks this node is missing and told about this node. The
// peers they know about are joined the same way.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	queue := make([]peer.Peer, 0, len(w.bootstrap))
	for _, host := range w.bootstrap {
		queue = append(queue, peer.New(host))
	}

	queue = w.addNewPeers(queue)

	for len(queue) > 0 {
		pr := queue[0]
		queue = queue[1:]

		// If this peer has blocks we don't have, we need to add them.
		n, err := w.state.NetRequestPeerBlocks(pr)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerBlocks: %s: ERROR: %s", pr.Host, err)
		}
		w.evHandler("worker: sync: retrievePeerBlocks: %s: applied[%d]", pr.Host, n)

		// Let the peer know this node is available and learn its peers.
		peers, err := w.state.NetRequestAddPeer(pr)
		if err != nil {
			w.evHandler("worker: sync: addPeer: %s: ERROR: %s", pr.Host, err)
			w.state.RemoveKnownPeer(pr)
			continue
		}

		queue = append(queue, w.addNewPeers(peers)...)
	}
}
