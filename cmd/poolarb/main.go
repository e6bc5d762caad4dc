package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolarb/internal/config"
	"poolarb/internal/model"
	"poolarb/internal/paths"
	"poolarb/internal/registry"
)

func main() {
	root := &cobra.Command{
		Use:          "poolarb",
		Short:        "Multi-path on-chain arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Watch pools and emit arbitrage signals",
		RunE:  runScan,
	}

	addNetworkFlags(scanCmd)
	addRouteFlags(scanCmd)
	scanCmd.Flags().String("mode", config.ModePoll, "feed mode (poll, subscribe)")
	scanCmd.Flags().Duration("poll-interval", 2*time.Second, "poll interval")
	scanCmd.Flags().Duration("scan-interval", time.Second, "fallback evaluation interval")
	scanCmd.Flags().Duration("max-quote-age", 30*time.Second, "quotes older than this are not used")
	scanCmd.Flags().String("min-profit-pct", "0.001", "minimum net profit in percent (inclusive)")
	scanCmd.Flags().String("trade-size", "1", "suggested trade size in base token units")
	scanCmd.Flags().Duration("cooldown", 0, "suppress repeated signals for the same path and direction")
	scanCmd.Flags().String("signals-out", "", "signals JSONL path")
	scanCmd.Flags().String("cycles-out", "", "cycle records JSONL path")
	scanCmd.Flags().String("decode-errors-out", "", "decode failures JSONL path")
	scanCmd.Flags().String("redis-addr", "", "Redis address for signal pub/sub and quote mirror")
	scanCmd.Flags().String("redis-channel", "poolarb:signals", "Redis signal channel")
	scanCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	scanCmd.Flags().String("state-file", "", "cycle serial checkpoint path, used without Postgres")
	scanCmd.Flags().String("metrics-addr", "", "Prometheus listen address, e.g. :9102")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "List the routes generated from the route table",
		RunE:  runPaths,
	}

	addRouteFlags(pathsCmd)
	pathsCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(pathsCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch every pool once, print quotes and evaluate one cycle",
		RunE:  runQuote,
	}

	addNetworkFlags(quoteCmd)
	addRouteFlags(quoteCmd)
	quoteCmd.Flags().String("min-profit-pct", "0.001", "minimum net profit in percent (inclusive)")
	quoteCmd.Flags().String("trade-size", "1", "suggested trade size in base token units")
	quoteCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Solana RPC URL")
	cmd.Flags().String("ws", "", "Solana websocket URL")
	cmd.Flags().String("commitment", "confirmed", "commitment level (processed, confirmed, finalized)")
	cmd.Flags().Duration("pool-timeout", 3*time.Second, "per-pool fetch timeout")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per fetch")
	cmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
}

func addRouteFlags(cmd *cobra.Command) {
	cmd.Flags().String("base", "", "base token symbol")
	cmd.Flags().Int("max-hops", config.MaxSupportedHops, "maximum intermediate tokens per route")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// buildCatalog loads the registry and enumerates paths.
func buildCatalog(cfg config.Config, logger *zap.Logger) (*registry.Registry, []*model.Path, error) {
	if err := cfg.ValidateRoutes(); err != nil {
		return nil, nil, err
	}
	reg, err := registry.New(cfg.Tokens, cfg.Pools)
	if err != nil {
		return nil, nil, err
	}

	known := func(symbol string) bool {
		_, ok := reg.Token(symbol)
		return ok
	}
	generator := paths.NewGenerator(paths.NewGraph(reg.Pools()), paths.TableFromConfig(cfg), known, logger)
	generated, err := generator.Generate()
	if err != nil {
		return nil, nil, err
	}
	if len(generated) == 0 {
		return nil, nil, &config.ConfigError{Field: "routes", Reason: fmt.Sprintf("no paths from base %s", cfg.Base)}
	}
	return reg, generated, nil
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
