package peer_test

import (
	"testing"

	"github.com/simplechain/node/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host3:9080"}, {Host: "host1:9080"}, {Host: "host2:9080"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				if !ps.Add(peer) {
					t.Fatalf("Test %s:\tShould be able to add peer %s.", tst.name, peer)
				}
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add the same peer twice.", tst.name)
			}

			if ps.Add(peer.New("")) {
				t.Fatalf("Test %s:\tShould not add an empty host.", tst.name)
			}

			peers := ps.Copy()
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			if peers[0].Host != "host1:9080" || peers[2].Host != "host3:9080" {
				t.Fatalf("Test %s:\tShould get back the peers ordered by host: %v", tst.name, peers)
			}

			hosts := ps.Hosts("host2:9080", "host3:9080")
			if len(hosts) != 1 || hosts[0] != "host1:9080" {
				t.Logf("Test %s:\tgot: %v", tst.name, hosts)
				t.Fatalf("Test %s:\tShould leave out the excluded hosts.", tst.name)
			}

			ps.Remove(peer.New("host2:9080"))
			if ps.Contains(peer.New("host2:9080")) || ps.Len() != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
