package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/simplechain/node/app/services/node/handlers"
	"github.com/simplechain/node/foundation/blockchain/genesis"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/blockchain/storage"
	"github.com/simplechain/node/foundation/blockchain/worker"
	"github.com/simplechain/node/foundation/events"
	"github.com/simplechain/node/foundation/logger"
	"github.com/simplechain/node/foundation/p2p"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. The file output is optional and is
	// taken from the environment before the rest of the configuration is parsed.
	var outputs []string
	if file := os.Getenv("NODE_LOG_FILE"); file != "" {
		outputs = append(outputs, logger.RotatePath(file, 100, 5, 28))
	}

	log, err := logger.New("NODE", outputs...)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		P2P struct {
			Host           string        `conf:"default:127.0.0.1:9080"`
			Timeout        time.Duration `conf:"default:10s"`
			MaxMessageSize int           `conf:"default:4194304"`
			MaxConnections int           `conf:"default:64"`
		}
		State struct {
			DataDir      string        `conf:"default:zblock/data"`
			KeyPath      string        `conf:"default:zblock/node.ecdsa"`
			GenesisPath  string        `conf:"help:optional genesis file, the default parameters are used when empty"`
			Bootstrap    []string      `conf:"help:peers to sync from at startup"`
			MinerEnabled bool          `conf:"default:true"`
			PeerInterval time.Duration `conf:"default:1m"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "simplechain proof of work node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	// The node key identifies the node and receives the coinbase rewards.
	privateKey, err := loadKey(cfg.State.KeyPath)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}

	gen := genesis.Default()
	if cfg.State.GenesisPath != "" {
		if gen, err = genesis.Load(cfg.State.GenesisPath); err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	}
	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "reward", gen.InitialReward, "halving", gen.HalvingInterval)

	strg, err := storage.Open(cfg.State.DataDir, storage.Options{})
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The block events are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New("viewer:")
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		PrivateKey: privateKey,
		Host:       cfg.P2P.Host,
		Storage:    strg,
		Genesis:    gen,
		Client: p2p.Client{
			Timeout:        cfg.P2P.Timeout,
			MaxMessageSize: cfg.P2P.MaxMessageSize,
		},
		EvHandler: ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	if _, _, err := st.Start(); err != nil {
		return fmt.Errorf("unable to start state: %w", err)
	}

	log.Infow("startup", "status", "node identity", "pubkey", st.PublicKey(), "host", cfg.P2P.Host)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 2)

	// =========================================================================
	// Start P2P Service

	log.Infow("startup", "status", "initializing V1 p2p support")

	p2pServer := handlers.P2PServer(handlers.P2PConfig{
		Log:            log,
		State:          st,
		MaxMessageSize: cfg.P2P.MaxMessageSize,
		MaxConnections: cfg.P2P.MaxConnections,
		Timeout:        cfg.P2P.Timeout,
	})

	// The listener must be accepting before the worker syncs, since the
	// bootstrap peers call back into this node.
	ln, err := net.Listen("tcp", cfg.P2P.Host)
	if err != nil {
		return fmt.Errorf("p2p listen: %w", err)
	}

	go func() {
		log.Infow("startup", "status", "p2p router started", "host", ln.Addr().String())
		serverErrors <- p2pServer.Serve(ln)
	}()

	// The worker package implements the different workflows such as mining,
	// transaction and block sharing, and peer updates. The worker will
	// register itself with the state.
	worker.Run(st, worker.Config{
		MinerEnabled: cfg.State.MinerEnabled,
		Bootstrap:    cfg.State.Bootstrap,
		PeerInterval: cfg.State.PeerInterval,
	}, ev)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelP2P := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelP2P()

		log.Infow("shutdown", "status", "shutdown p2p started")
		if err := p2pServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not stop p2p service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// loadKey reads the node key from disk, generating and saving a new one on
// the first start.
func loadKey(path string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err == nil {
		return privateKey, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	privateKey, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, err
	}

	return privateKey, nil
}
