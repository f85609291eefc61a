// Command ledgerd serves an in-memory ledger over HTTP for didctl and tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sufield/didchain/internal/adapters/inbound/ledgerapi"
	"github.com/sufield/didchain/internal/adapters/outbound/memledger"
	"github.com/sufield/didchain/internal/config"
	"github.com/sufield/didchain/internal/debug"
	"github.com/sufield/didchain/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	debug.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is done or the server fails. ready, if not nil,
// receives the bound address once the server listens.
func run(ctx context.Context, args []string, out, errOut io.Writer, ready chan<- string) error {
	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	versionFlag := fs.Bool("version", false, "Print version information and exit")
	configPath := fs.String("config", os.Getenv("DIDCHAIN_CONFIG"), "Path to the didchain YAML config (env DIDCHAIN_CONFIG)")
	listen := fs.String("listen", "", "Listen address, overrides server.listen_addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *versionFlag {
		fmt.Fprintf(out, "ledgerd %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}
	logger, err := logging.New(errOut, cfg.Log)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("ledgerd started", "version", version, "addr", srv.Addr(), "faults", debug.Active.Faults)
	if ready != nil {
		ready <- srv.Addr()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-srv.Err():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("ledgerd shutting down")
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return serveErr
}

func newServer(cfg *config.Config, logger *slog.Logger) (*ledgerapi.Server, error) {
	ledgerOpts := []memledger.Option{memledger.WithLogger(logger)}
	routerOpts := []ledgerapi.Option{ledgerapi.WithLogger(logger)}
	if debug.Active.Faults {
		ledgerOpts = append(ledgerOpts, memledger.WithFaults(debug.Faults))
		routerOpts = append(routerOpts, ledgerapi.WithFaults(debug.Faults))
		logger.Warn("fault injection enabled on /_debug/faults")
	}

	router := ledgerapi.NewRouter(memledger.New(ledgerOpts...), routerOpts...)
	return ledgerapi.NewServer(router, ledgerapi.ServerConfig{
		Addr:              cfg.Server.ListenAddr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		Logger:            logger,
	})
}
