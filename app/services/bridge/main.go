package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"

	"github.com/zoroproject/zoro/app/services/bridge/handlers"
	"github.com/zoroproject/zoro/business/bridge"
	"github.com/zoroproject/zoro/business/bridge/store"
	"github.com/zoroproject/zoro/foundation/events"
	"github.com/zoroproject/zoro/foundation/logger"
	"github.com/zoroproject/zoro/foundation/zcash"
	"github.com/zoroproject/zoro/foundation/zcash/chain"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("BRIDGE")
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

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7280"`
			PublicHost      string        `conf:"default:0.0.0.0:8280"`
			PrivateHost     string        `conf:"default:0.0.0.0:9280"`
		}
		Chain struct {
			Network     string `conf:"default:mainnet"`
			DBPath      string `conf:"default:zbridge/chain.db"`
			GenesisHash string `conf:"default:00040fe8ec8471911baa1db1266ea15dd06b4a8a5c453883c000b031973dce08"`
			StateFile   string `conf:""`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "BRIDGE"
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
	// Chain Support

	params, err := networkParams(cfg.Chain.Network)
	if err != nil {
		return err
	}

	genesisState, err := genesis(params, cfg.Chain.GenesisHash, cfg.Chain.StateFile)
	if err != nil {
		return fmt.Errorf("constructing genesis state: %w", err)
	}

	db, err := store.New(cfg.Chain.DBPath)
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}
	defer db.Close()

	// Websocket clients connected through the events package receive a
	// notification every time the chain tip moves.
	evts := events.New()
	defer evts.Shutdown()

	brdg, err := bridge.New(bridge.Config{
		Log:     log,
		Params:  params,
		Store:   db,
		Evts:    evts,
		Genesis: genesisState,
	})
	if err != nil {
		return fmt.Errorf("constructing bridge: %w", err)
	}

	log.Infow("startup", "status", "chain loaded", "network", params.Name, "height", brdg.Head().BlockHeight, "tip", brdg.Head().BestBlockHash)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log)

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
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Bridge:   brdg,
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
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Bridge:   brdg,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
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

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public server gracefully: %w", err)
		}

		// Asking listener to shut down and shed load.
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private server gracefully: %w", err)
		}
	}

	return nil
}

// networkParams maps the configured network name to consensus parameters.
func networkParams(network string) (zcash.Params, error) {
	switch network {
	case "mainnet":
		return zcash.Mainnet(), nil
	case "regnet":
		return zcash.Regnet(), nil
	}
	return zcash.Params{}, fmt.Errorf("unknown network %q", network)
}

// genesis builds the starting chain state: a snapshot file when one is
// configured, otherwise the network's genesis block.
func genesis(p zcash.Params, genesisHash string, stateFile string) (chain.ChainState, error) {
	if stateFile != "" {
		data, err := os.ReadFile(stateFile)
		if err != nil {
			return chain.ChainState{}, fmt.Errorf("reading state file: %w", err)
		}

		var state chain.ChainState
		if err := json.Unmarshal(data, &state); err != nil {
			return chain.ChainState{}, fmt.Errorf("parsing state file: %w", err)
		}
		return state, nil
	}

	hash, err := zcash.ParseDigest(genesisHash)
	if err != nil {
		return chain.ChainState{}, fmt.Errorf("parsing genesis hash: %w", err)
	}

	return chain.GenesisState(p, hash), nil
}
