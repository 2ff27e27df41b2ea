// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api and the node to node protocol.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/simplechain/node/app/services/node/handlers/v1/private"
	"github.com/simplechain/node/app/services/node/handlers/v1/public"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/events"
	"github.com/simplechain/node/foundation/p2p"
	"github.com/simplechain/node/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/protocol/version", pbl.ProtocolVersion)
	app.Handle(http.MethodGet, version, "/node/pubkey", pbl.PublicKey)
	app.Handle(http.MethodGet, version, "/node/pubkey/new", pbl.NewPublicKey)
	app.Handle(http.MethodGet, version, "/blocks/height", pbl.BlockHeight)
	app.Handle(http.MethodGet, version, "/blocks/number/:number", pbl.BlockByNumber)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/balances/list", pbl.Balances)
	app.Handle(http.MethodGet, version, "/balances/list/:pubkey", pbl.Balances)
	app.Handle(http.MethodGet, version, "/tx/mempool", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/send", pbl.SendTx)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTx)
}

// PrivateRoutes binds all the node to node commands.
func PrivateRoutes(srv *p2p.Server, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	srv.Handle(p2p.CmdPing, prv.Ping)
	srv.Handle(p2p.CmdGetBlocks, prv.Blocks)
	srv.Handle(p2p.CmdGetBlock, prv.Block)
	srv.Handle(p2p.CmdNewBlock, prv.NewBlock)
	srv.Handle(p2p.CmdNewTransaction, prv.NewTransaction)
	srv.Handle(p2p.CmdNewPeer, prv.NewPeer)
}
