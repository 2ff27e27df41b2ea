// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/simplechain/node/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/simplechain/node/app/services/node/handlers/v1"
	p2pmid "github.com/simplechain/node/business/p2p/mid"
	"github.com/simplechain/node/business/web/mid"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/events"
	"github.com/simplechain/node/foundation/p2p"
	"github.com/simplechain/node/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	Evts     *events.Events
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	})

	return app
}

// P2PConfig contains all the mandatory systems required by the node to
// node server.
type P2PConfig struct {
	Log            *zap.SugaredLogger
	State          *state.State
	MaxMessageSize int
	MaxConnections int
	Timeout        time.Duration
}

// P2PServer constructs the node to node server with all commands defined.
func P2PServer(cfg P2PConfig) *p2p.Server {
	srv := p2p.NewServer(
		p2p.ServerConfig{
			Log:            cfg.Log,
			MaxMessageSize: cfg.MaxMessageSize,
			MaxConnections: cfg.MaxConnections,
			Timeout:        cfg.Timeout,
		},
		p2pmid.Logger(cfg.Log),
		p2pmid.Panics(cfg.Log),
	)

	v1.PrivateRoutes(srv, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
	})

	return srv
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger, st *state.State) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		State: st,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	// The prometheus collectors registered by the node packages.
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
