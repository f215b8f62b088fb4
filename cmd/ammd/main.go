package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammledger/internal/amm"
	"ammledger/internal/config"
	"ammledger/internal/ledger"
	"ammledger/internal/storage"
	"ammledger/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "ammd",
		Short:        "Constant-product AMM pool ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("admin", "", "administrator identity")
	root.PersistentFlags().Uint64("fee-rate-bps", 300, "swap fee in basis points (max 1000)")
	root.PersistentFlags().String("state-file", "./data/ledger.json", "JSON state file path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN (overrides state-file)")
	root.PersistentFlags().String("caller", "", "caller identity for the operation")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "create-pool <assetA> <assetB> <amountA> <amountB>",
			Short: "Create a pool with its initial deposit",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, caller string) (any, error) {
					assetA, assetB, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					amountA, err := parseAmount(args[2])
					if err != nil {
						return nil, err
					}
					amountB, err := parseAmount(args[3])
					if err != nil {
						return nil, err
					}
					pool, err := led.CreatePool(ctx, assetA, assetB, amountA, amountB, caller)
					if err != nil {
						return nil, err
					}
					return &pool, nil
				})
			},
		},
		&cobra.Command{
			Use:   "add-liquidity <assetA> <assetB> <amountA> <amountB>",
			Short: "Deposit into an existing pool",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, caller string) (any, error) {
					assetA, assetB, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					amountA, err := parseAmount(args[2])
					if err != nil {
						return nil, err
					}
					amountB, err := parseAmount(args[3])
					if err != nil {
						return nil, err
					}
					minted, err := led.AddLiquidity(ctx, assetA, assetB, amountA, amountB, caller)
					if err != nil {
						return nil, err
					}
					return map[string]string{"minted": minted.Dec()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove-liquidity <assetA> <assetB> <liquidity>",
			Short: "Burn liquidity for a proportional payout",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, caller string) (any, error) {
					assetA, assetB, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					liquidity, err := parseAmount(args[2])
					if err != nil {
						return nil, err
					}
					amountA, amountB, err := led.RemoveLiquidity(ctx, assetA, assetB, liquidity, caller)
					if err != nil {
						return nil, err
					}
					return map[string]string{"amount_a": amountA.Dec(), "amount_b": amountB.Dec()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "swap <tokenIn> <tokenOut> <amountIn> <minAmountOut>",
			Short: "Swap an exact input amount",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, caller string) (any, error) {
					tokenIn, tokenOut, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					amountIn, err := parseAmount(args[2])
					if err != nil {
						return nil, err
					}
					minAmountOut, err := parseAmount(args[3])
					if err != nil {
						return nil, err
					}
					amountOut, err := led.SwapExactTokensForTokens(ctx, tokenIn, tokenOut, amountIn, minAmountOut, caller)
					if err != nil {
						return nil, err
					}
					return map[string]string{"amount_out": amountOut.Dec()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "quote <tokenIn> <tokenOut> <amountIn>",
			Short: "Preview a swap without executing it",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, _ string) (any, error) {
					tokenIn, tokenOut, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					amountIn, err := parseAmount(args[2])
					if err != nil {
						return nil, err
					}
					amountOut, err := led.Quote(ctx, tokenIn, tokenOut, amountIn)
					if err != nil {
						return nil, err
					}
					return map[string]string{"amount_out": amountOut.Dec()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "pool <assetA> <assetB>",
			Short: "Show the pool for an asset pair",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, _ string) (any, error) {
					assetA, assetB, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					pool, err := led.Pool(ctx, assetA, assetB)
					if err != nil {
						return nil, err
					}
					return &pool, nil
				})
			},
		},
		&cobra.Command{
			Use:   "pools",
			Short: "List all active pools",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, _ string) (any, error) {
					pools, err := led.ListPools(ctx)
					if err != nil {
						return nil, err
					}
					return &pools, nil
				})
			},
		},
		&cobra.Command{
			Use:   "balance <assetA> <assetB> <provider>",
			Short: "Show a provider's liquidity balance",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(ctx context.Context, led *ledger.Ledger, _ string) (any, error) {
					assetA, assetB, err := parseAssetPair(args[0], args[1])
					if err != nil {
						return nil, err
					}
					balance, err := led.LiquidityOf(ctx, assetA, assetB, args[2])
					if err != nil {
						return nil, err
					}
					return map[string]string{"balance": balance.Dec()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "fee-rate",
			Short: "Show the current swap fee rate",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLedger(cmd, func(_ context.Context, led *ledger.Ledger, _ string) (any, error) {
					return map[string]uint64{"fee_rate_bps": led.FeeRate()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "set-fee-rate <bps>",
			Short: "Update the swap fee rate (administrator only)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd, func(_ context.Context, led *ledger.Ledger, caller string) (any, error) {
					var bps uint64
					if _, err := fmt.Sscanf(args[0], "%d", &bps); err != nil {
						return nil, fmt.Errorf("%w: fee rate %q", amm.ErrInvalidAmount, args[0])
					}
					if err := led.SetFeeRate(bps, caller); err != nil {
						return nil, err
					}
					return map[string]uint64{"fee_rate_bps": led.FeeRate()}, nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withLedger wires config, logger, store and ledger for one subcommand
// invocation and prints its JSON result.
func withLedger(cmd *cobra.Command, run func(ctx context.Context, led *ledger.Ledger, caller string) (any, error)) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.PgDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = pgStore
	} else {
		fileStore, err := storage.NewFileStore(cfg.StateFile)
		if err != nil {
			return err
		}
		store = fileStore
	}

	led, err := ledger.New(store, logger, ledger.Config{
		Admin:      cfg.Admin,
		FeeRateBps: cfg.FeeRateBps,
	})
	if err != nil {
		return err
	}

	caller, _ := cmd.Flags().GetString("caller")
	result, err := run(ctx, led, caller)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func parseAssetPair(rawA, rawB string) (common.Address, common.Address, error) {
	assetA, err := amm.ParseAsset(rawA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	assetB, err := amm.ParseAsset(rawB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return assetA, assetB, nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if err := amount.SetFromDecimal(raw); err != nil {
		return nil, fmt.Errorf("%w: amount %q", amm.ErrInvalidAmount, raw)
	}
	return amount, nil
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
