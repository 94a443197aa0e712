// Package cli exposes the bot as a cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/config"
	"github.com/dyike/PolyBot/internal/dataflows"
	"github.com/dyike/PolyBot/internal/decision"
	"github.com/dyike/PolyBot/internal/trader"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "polybot",
		Short: "PolyBot - Automated BTC trading on Polymarket",
		Long: `PolyBot trades Bitcoin prediction markets on Polymarket using
X/Twitter sentiment, aggregated crypto news and an LLM decision engine.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newIntelCmd(cfg))
	rootCmd.AddCommand(newTradeCmd(cfg))
	rootCmd.AddCommand(newMarketsCmd(cfg))
	rootCmd.AddCommand(newStatusCmd(cfg))
	rootCmd.AddCommand(newLogsCmd(cfg))
	rootCmd.AddCommand(newSentimentCmd(cfg))
	rootCmd.AddCommand(newNewsCmd(cfg))
	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newTrader wires a Trader with the best available LLM provider. A missing
// provider is tolerated; the engine then produces no decisions.
func newTrader(ctx context.Context, cfg *config.Config, log *botlog.Logger) (*trader.Trader, error) {
	provider, err := decision.NewProviderFromConfig(ctx, cfg)
	if err != nil && !errors.Is(err, decision.ErrNoProvider) {
		return nil, err
	}
	return trader.New(cfg, log, provider), nil
}

func newIntelCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "intel",
		Short: "Gather a market intelligence report",
		RunE: func(cmd *cobra.Command, args []string) error {
			printTitle("Gathering Polymarket intelligence...")

			log := botlog.New(cfg.LogDir)
			tr, err := newTrader(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if err := tr.Initialize(true); err != nil {
				return err
			}

			report, err := tr.Gather(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(trader.FormatReport(report))
			fmt.Println(successStyle.Render("Report saved to " + cfg.DataDir + "/latest_intel.json"))
			return nil
		},
	}
}

func newTradeCmd(cfg *config.Config) *cobra.Command {
	var (
		side    string
		execute bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "trade <token_id> <amount>",
		Short: "Execute a single trade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID := args[0]
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			if dryRun && !execute {
				short := tokenID
				if len(short) > 20 {
					short = short[:20]
				}
				fmt.Println(warnStyle.Render(fmt.Sprintf("DRY RUN: Would %s $%.2f of %s...", side, amount, short)))
				return nil
			}

			log := botlog.New(cfg.LogDir)
			tr, err := newTrader(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if err := tr.Initialize(false); err != nil {
				fmt.Println(errorStyle.Render("Failed to initialize. Check wallet credentials."))
				return err
			}

			result, err := tr.PlaceOrder(cmd.Context(), tokenID, amount, strings.ToUpper(side))
			if err != nil {
				fmt.Println(errorStyle.Render("Trade failed"))
				return err
			}

			if result.Simulated {
				fmt.Println(warnStyle.Render("Trade simulated (trading disabled)"))
			} else {
				fmt.Println(successStyle.Render("Trade executed"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&side, "side", "s", "BUY", "BUY or SELL")
	cmd.Flags().BoolVar(&execute, "execute", false, "Actually place the order (default is dry-run)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Simulate only")

	return cmd
}

func newMarketsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "markets",
		Short: "List active BTC prediction markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := botlog.New(cfg.LogDir)
			tr, err := newTrader(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if err := tr.Initialize(true); err != nil {
				fmt.Println(errorStyle.Render("Failed to connect to Polymarket."))
				return err
			}

			markets := tr.Markets(cmd.Context())
			if len(markets) == 0 {
				fmt.Println(warnStyle.Render("No BTC markets found."))
				return nil
			}

			printTitle("BTC Prediction Markets")
			fmt.Printf("%-53s %-8s %8s %12s %-10s\n",
				headerStyle.Render("Question"), headerStyle.Render("Outcome"),
				headerStyle.Render("Price"), headerStyle.Render("Volume"),
				headerStyle.Render("Ends"))

			if len(markets) > 10 {
				markets = markets[:10]
			}
			for _, m := range markets {
				question := m.Question
				if len(question) > 50 {
					question = question[:50] + "..."
				}
				endDate := "N/A"
				if m.EndDate != "" {
					endDate = m.EndDate
					if len(endDate) > 10 {
						endDate = endDate[:10]
					}
				}
				fmt.Printf("%-53s %-8s %8s %12s %-10s\n",
					cellStyle.Render(question),
					successStyle.Render(m.Outcome),
					fmt.Sprintf("$%.2f", m.Price),
					fmt.Sprintf("$%.0f", m.Volume),
					dimStyle.Render(endDate))
			}
			return nil
		},
	}
}

func newStatusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bot status and trade summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			printTitle("Polymarket BTC Trading Bot Status")

			fmt.Println(headerStyle.Render("Configuration:"))
			fmt.Printf("  Trading enabled: %v\n", cfg.TradingEnabled)
			fmt.Printf("  Max position size: $%.2f\n", cfg.MaxPositionSize)
			fmt.Printf("  Min confidence: %.2f\n", cfg.MinConfidence)
			fmt.Printf("  Check interval: %d minutes\n", cfg.CheckIntervalMinutes)

			log := botlog.New(cfg.LogDir)
			summary := log.Summarize()
			fmt.Println()
			fmt.Println(headerStyle.Render("Trade Summary:"))
			fmt.Printf("  Total trades: %d\n", summary.TotalTrades)
			fmt.Printf("  Executed: %d\n", summary.ExecutedTrades)
			fmt.Printf("  Simulated: %d\n", summary.SimulatedTrades)
			fmt.Printf("  Total invested: $%s\n", summary.TotalInvested.StringFixed(2))
			return nil
		},
	}
}

func newLogsCmd(cfg *config.Config) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := botlog.New(cfg.LogDir)
			entries := log.RecentEvents(count)
			if len(entries) == 0 {
				fmt.Println(warnStyle.Render("No log entries found."))
				return nil
			}

			for _, entry := range entries {
				timestamp := entry.Timestamp
				if len(timestamp) > 19 {
					timestamp = timestamp[:19]
				}
				fmt.Printf("%s %s %s\n",
					dimStyle.Render(timestamp),
					levelStyle(entry.Level).Render("["+entry.Category+"]"),
					entry.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of log entries to show")
	return cmd
}

func newSentimentCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment",
		Short: "Analyze current BTC sentiment from X/Twitter",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := botlog.New(cfg.LogDir)
			analyzer := dataflows.NewSentimentAnalyzer(log)
			result := analyzer.AnalyzeBTCSentiment(cmd.Context())

			printTitle("BTC Sentiment Analysis")
			fmt.Printf("  Bullish: %d\n", result.BullishCount)
			fmt.Printf("  Bearish: %d\n", result.BearishCount)
			fmt.Printf("  Neutral: %d\n", result.NeutralCount)
			fmt.Printf("  Score: %.2f (-1=bearish, +1=bullish)\n", result.SentimentScore)

			if len(result.KeySignals) > 0 {
				fmt.Println()
				fmt.Println(headerStyle.Render("Key Signals:"))
				for _, signal := range result.KeySignals {
					fmt.Printf("  - %s\n", signal)
				}
			}
			return nil
		},
	}
}

func newNewsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Fetch and analyze BTC news",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := botlog.New(cfg.LogDir)
			aggregator := dataflows.NewNewsAggregator(log)
			result := aggregator.AggregateNews(cmd.Context())

			printTitle("BTC News Analysis")
			fmt.Printf("  Total articles: %d\n", len(result.Items))
			fmt.Printf("  Bullish headlines: %d\n", result.BullishHeadlines)
			fmt.Printf("  Bearish headlines: %d\n", result.BearishHeadlines)

			if len(result.BreakingNews) > 0 {
				fmt.Println()
				fmt.Println(errorStyle.Render("Breaking News:"))
				for _, headline := range result.BreakingNews {
					fmt.Printf("  ! %s\n", headline)
				}
			}

			fmt.Println()
			fmt.Println(headerStyle.Render("Recent Headlines:"))
			items := result.Items
			if len(items) > 5 {
				items = items[:5]
			}
			for _, item := range items {
				title := item.Title
				if len(title) > 70 {
					title = title[:70] + "..."
				}
				fmt.Printf("  - %s\n", title)
			}
			return nil
		},
	}
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run trading cycles continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := botlog.New(cfg.LogDir)
			tr, err := newTrader(ctx, cfg, log)
			if err != nil {
				return err
			}
			if err := tr.Initialize(false); err != nil {
				return err
			}

			tr.RunContinuous(ctx, interval)
			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "Minutes between cycles (default from config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("PolyBot v1.0.0")
			fmt.Println("Automated Polymarket BTC Trading Bot")
		},
	}
}
