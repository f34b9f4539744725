package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"burnwatch/internal/chain"
	"burnwatch/internal/config"
	"burnwatch/internal/dex"
	"burnwatch/internal/hub"
	"burnwatch/internal/monitor"
	"burnwatch/internal/storage"
	"burnwatch/internal/storage/postgres"
)

// Base mainnet deployment the monitor was built for.
const (
	defaultTaxSwapper  = "0x8e0253da409faf5918fe2a15979fd878f4495d0e"
	defaultFactory     = "0x420DD3807E0e1039f2900483252af73922939021"
	defaultPairedAsset = "0x4200000000000000000000000000000000000006"
)

func main() {
	root := &cobra.Command{
		Use:          "burnwatch",
		Short:        "Tax-swap burn monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor",
		RunE:  runMonitor,
	}

	runCmd.Flags().String("rpc", "", "chain RPC URL")
	runCmd.Flags().String("tax-swapper", defaultTaxSwapper, "tax-swap contract address")
	runCmd.Flags().String("factory", defaultFactory, "pool factory contract address")
	runCmd.Flags().String("paired-asset", defaultPairedAsset, "paired asset address (wrapped native)")
	runCmd.Flags().Uint64("look-back", 500, "blocks to look back on startup")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per log query")
	runCmd.Flags().Duration("poll-interval", 4*time.Second, "delay between poll iterations")
	runCmd.Flags().Duration("failure-backoff", 10*time.Second, "delay after a failed iteration")
	runCmd.Flags().Duration("rpc-timeout", 15*time.Second, "per-call RPC timeout")
	runCmd.Flags().Int("history-size", 50, "records replayed to a new subscriber")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty uses the in-memory ring)")
	runCmd.Flags().String("archive", "", "optional JSONL archive path")
	runCmd.Flags().String("checkpoint", "./data/cursor.json", "cursor checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable cursor checkpointing")
	runCmd.Flags().String("listen", ":8080", "HTTP listen address")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	taxSwapper, err := parseAddress("tax-swapper", cfg.TaxSwapper)
	if err != nil {
		return err
	}
	factory, err := parseAddress("factory", cfg.Factory)
	if err != nil {
		return err
	}
	pairedAsset, err := parseAddress("paired-asset", cfg.PairedAsset)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	source, err := dex.NewSwapTaxSource(chainClient, taxSwapper)
	if err != nil {
		return err
	}
	resolver := dex.NewReserveResolver(chainClient, factory, pairedAsset, logger)
	enricher := monitor.NewEnricher(resolver)

	var store storage.HistoryStore
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pgStore
	} else {
		store = storage.NewRing(cfg.HistorySize)
	}

	var archive monitor.ArchiveSink
	if cfg.Archive != "" {
		archive = storage.NewArchive(cfg.Archive)
	}

	broadcast := hub.New(store, cfg.HistorySize, logger)

	poller := monitor.NewPoller(
		monitor.PollerConfig{
			LookBack:  cfg.LookBack,
			BatchSize: cfg.BatchSize,
			Policy: monitor.RetryPolicy{
				PollInterval:   cfg.PollInterval,
				FailureBackoff: cfg.FailureBackoff,
			},
		},
		source,
		enricher,
		store,
		broadcast,
		archive,
		monitor.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled),
		logger,
	)

	broadcast.SetPollerStart(func() {
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("poller stopped", zap.Error(err))
			}
		}()
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub.NewHandler(broadcast, logger))

	server := &http.Server{Addr: cfg.Listen, Handler: mux}

	logger.Info("burnwatch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("tax_swapper", taxSwapper.Hex()),
		zap.String("factory", factory.Hex()),
		zap.String("paired_asset", pairedAsset.Hex()),
		zap.Uint64("look_back", cfg.LookBack),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("history_size", cfg.HistorySize),
		zap.Bool("durable_store", cfg.PGDSN != ""),
		zap.String("listen", cfg.Listen),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func parseAddress(name, input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", name, input)
	}
	return common.HexToAddress(input), nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
