// Package trader orchestrates the bot: it wires discovery, signal
// collection and the decision engine into trading cycles and holds the
// exchange session for the process lifetime.
package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/config"
	"github.com/dyike/PolyBot/internal/dataflows"
	"github.com/dyike/PolyBot/internal/decision"
	"github.com/dyike/PolyBot/internal/polymarket"
)

// Exchange is the slice of the Polymarket client the trader depends on.
type Exchange interface {
	Connect(readOnly bool) error
	Authenticated() bool
	GetCryptoMarkets(ctx context.Context) []polymarket.Market
	GetBTCMarkets(ctx context.Context) []polymarket.Market
	GetPrice(ctx context.Context, tokenID string) (float64, error)
	GetOrderbook(ctx context.Context, tokenID string) polymarket.Orderbook
	PlaceMarketOrder(ctx context.Context, tokenID string, amount float64, side string) (*polymarket.OrderResult, error)
}

// SentimentSource produces the X/Twitter sentiment snapshot.
type SentimentSource interface {
	AnalyzeBTCSentiment(ctx context.Context) dataflows.SentimentResult
}

// NewsSource produces the aggregated news snapshot.
type NewsSource interface {
	AggregateNews(ctx context.Context) dataflows.NewsResult
}

// DecisionMaker turns markets and signals into trade decisions.
type DecisionMaker interface {
	AnalyzeMarkets(ctx context.Context, markets []polymarket.Market, sentiment dataflows.SentimentResult, news dataflows.NewsResult) []decision.TradeDecision
}

// Intelligence is one cycle's raw inputs.
type Intelligence struct {
	Markets   []polymarket.Market       `json:"markets"`
	Sentiment dataflows.SentimentResult `json:"sentiment"`
	News      dataflows.NewsResult      `json:"news"`
	Timestamp string                    `json:"timestamp"`
}

// CycleSummary reports one trading cycle. Failures inside the cycle land in
// Errors instead of propagating.
type CycleSummary struct {
	Timestamp      string   `json:"timestamp"`
	MarketsFound   int      `json:"markets_found"`
	DecisionsMade  int      `json:"decisions_made"`
	TradesExecuted int      `json:"trades_executed"`
	Errors         []string `json:"errors"`
}

// Status is a point-in-time snapshot of the bot.
type Status struct {
	Running              bool                `json:"is_running"`
	LastRun              string              `json:"last_run,omitempty"`
	TradingEnabled       bool                `json:"trading_enabled"`
	MaxPositionSize      float64             `json:"max_position_size"`
	CheckIntervalMinutes int                 `json:"check_interval_minutes"`
	Trades               botlog.TradeSummary `json:"trades"`
}

// TradePreview estimates what a market order would get without placing it.
type TradePreview struct {
	TokenID         string               `json:"token_id"`
	CurrentPrice    float64              `json:"current_price"`
	Amount          float64              `json:"amount"`
	EstimatedShares float64              `json:"estimated_shares"`
	Orderbook       polymarket.Orderbook `json:"orderbook"`
}

// Trader ties all components together.
type Trader struct {
	cfg       *config.Config
	log       *botlog.Logger
	exchange  Exchange
	sentiment SentimentSource
	news      NewsSource
	engine    DecisionMaker

	running bool
	lastRun time.Time
}

// New builds a Trader with the production components. The LLM provider may
// be nil; the engine then yields no decisions.
func New(cfg *config.Config, log *botlog.Logger, provider decision.Provider) *Trader {
	return &Trader{
		cfg:       cfg,
		log:       log,
		exchange:  polymarket.NewClient(cfg, log),
		sentiment: dataflows.NewSentimentAnalyzer(log),
		news:      dataflows.NewNewsAggregator(log),
		engine:    decision.NewEngine(cfg, log, provider),
	}
}

// NewWithComponents injects every dependency; used by tests.
func NewWithComponents(cfg *config.Config, log *botlog.Logger, exchange Exchange, sentiment SentimentSource, news NewsSource, engine DecisionMaker) *Trader {
	return &Trader{cfg: cfg, log: log, exchange: exchange, sentiment: sentiment, news: news, engine: engine}
}

// Initialize validates configuration (skipped in read-only mode) and opens
// the exchange session. It fails closed: any error stops initialization.
func (t *Trader) Initialize(readOnly bool) error {
	t.log.Event("trader", "Initializing Polymarket Trading Bot...", botlog.LevelInfo, nil)

	if !readOnly {
		if errs := t.cfg.Validate(); len(errs) > 0 {
			for _, msg := range errs {
				t.log.Event("trader", msg, botlog.LevelError, nil)
			}
			return fmt.Errorf("configuration invalid: %s", errs[0])
		}
	}

	if err := t.exchange.Connect(readOnly); err != nil {
		return fmt.Errorf("connect to Polymarket: %w", err)
	}

	t.log.Event("trader", "Initialization complete", botlog.LevelSuccess, nil)
	t.log.Event("trader", fmt.Sprintf("Trading enabled: %v", t.cfg.TradingEnabled), botlog.LevelInfo, nil)
	t.log.Event("trader", fmt.Sprintf("Max position size: $%.2f", t.cfg.MaxPositionSize), botlog.LevelInfo, nil)
	return nil
}

// GatherIntelligence collects markets, sentiment and news. Collector
// failures degrade to empty snapshots inside the collectors themselves.
func (t *Trader) GatherIntelligence(ctx context.Context) Intelligence {
	t.log.Event("trader", "Gathering market intelligence...", botlog.LevelInfo, nil)

	return Intelligence{
		Markets:   t.exchange.GetBTCMarkets(ctx),
		Sentiment: t.sentiment.AnalyzeBTCSentiment(ctx),
		News:      t.news.AggregateNews(ctx),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ExecuteTrade submits a market order for one decision. The current price
// is fetched first; an unavailable price aborts the trade. Whether funds
// actually move is gated again inside the exchange client.
func (t *Trader) ExecuteTrade(ctx context.Context, d decision.TradeDecision) error {
	price, err := t.exchange.GetPrice(ctx, d.TokenID)
	if err != nil {
		t.log.Event("trading", "Could not get current price", botlog.LevelError, nil)
		return fmt.Errorf("get price for %s: %w", d.TokenID, err)
	}

	result, err := t.exchange.PlaceMarketOrder(ctx, d.TokenID, d.Amount, "BUY")
	if err != nil {
		return fmt.Errorf("place order for %s: %w", d.TokenID, err)
	}

	t.log.Trade(botlog.TradeRecord{
		Action:    d.Action,
		TokenID:   d.TokenID,
		Amount:    d.Amount,
		Price:     price,
		Outcome:   d.Outcome,
		Reasoning: d.Reasoning,
		Simulated: result.Simulated,
	})
	return nil
}

// PlaceOrder submits a manual market order and records it in the trade log.
// Unlike ExecuteTrade an unavailable price does not abort the order; the
// trade is recorded at price 0.
func (t *Trader) PlaceOrder(ctx context.Context, tokenID string, amount float64, side string) (*polymarket.OrderResult, error) {
	price, err := t.exchange.GetPrice(ctx, tokenID)
	if err != nil {
		t.log.Event("trading", "Could not get current price", botlog.LevelWarn, nil)
		price = 0
	}

	result, err := t.exchange.PlaceMarketOrder(ctx, tokenID, amount, side)
	if err != nil {
		return nil, fmt.Errorf("place order for %s: %w", tokenID, err)
	}

	t.log.Trade(botlog.TradeRecord{
		Action:    strings.ToLower(side),
		TokenID:   tokenID,
		Amount:    amount,
		Price:     price,
		Reasoning: "manual order",
		Simulated: result.Simulated,
	})
	return result, nil
}

// RunCycle runs one full cycle: gather, decide, execute. All failures are
// collected into the summary; nothing escapes the cycle.
func (t *Trader) RunCycle(ctx context.Context) CycleSummary {
	start := time.Now()
	t.log.Event("trader", fmt.Sprintf("Starting trading cycle at %s", start.Format(time.RFC3339)), botlog.LevelInfo, nil)

	summary := CycleSummary{Timestamp: start.Format(time.RFC3339)}

	intel := t.GatherIntelligence(ctx)
	summary.MarketsFound = len(intel.Markets)

	if len(intel.Markets) == 0 {
		t.log.Event("trader", "No BTC markets found", botlog.LevelWarn, nil)
		t.lastRun = start
		return summary
	}

	decisions := t.engine.AnalyzeMarkets(ctx, intel.Markets, intel.Sentiment, intel.News)
	summary.DecisionsMade = len(decisions)

	for _, d := range decisions {
		t.log.Event("trading",
			fmt.Sprintf("Decision: %s %s on '%.50s...'", d.Action, d.Outcome, d.MarketQuestion),
			botlog.LevelInfo,
			map[string]any{
				"confidence": d.Confidence,
				"amount":     d.Amount,
				"reasoning":  d.Reasoning,
			})

		if err := t.ExecuteTrade(ctx, d); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.TradesExecuted++
	}

	t.lastRun = start
	t.log.Event("trader", fmt.Sprintf("Cycle complete in %.1fs", time.Since(start).Seconds()), botlog.LevelInfo, nil)
	return summary
}

// RunContinuous repeats RunCycle until ctx is canceled, sleeping
// intervalMinutes between cycles. Zero means the configured interval.
func (t *Trader) RunContinuous(ctx context.Context, intervalMinutes int) {
	interval := intervalMinutes
	if interval <= 0 {
		interval = t.cfg.CheckIntervalMinutes
	}

	t.log.Event("trader", fmt.Sprintf("Starting continuous mode (every %d minutes)", interval), botlog.LevelInfo, nil)
	t.running = true
	defer func() {
		t.running = false
		t.log.Event("trader", "Stopped", botlog.LevelInfo, nil)
	}()

	for {
		t.RunCycle(ctx)

		t.log.Event("trader", fmt.Sprintf("Sleeping for %d minutes...", interval), botlog.LevelInfo, nil)
		select {
		case <-ctx.Done():
			t.log.Event("trader", "Interrupted by user", botlog.LevelInfo, nil)
			return
		case <-time.After(time.Duration(interval) * time.Minute):
		}
	}
}

// Status returns the current bot snapshot including the trade summary.
func (t *Trader) Status() Status {
	s := Status{
		Running:              t.running,
		TradingEnabled:       t.cfg.TradingEnabled,
		MaxPositionSize:      t.cfg.MaxPositionSize,
		CheckIntervalMinutes: t.cfg.CheckIntervalMinutes,
		Trades:               t.log.Summarize(),
	}
	if !t.lastRun.IsZero() {
		s.LastRun = t.lastRun.Format(time.RFC3339)
	}
	return s
}

// Markets returns the current BTC markets.
func (t *Trader) Markets(ctx context.Context) []polymarket.Market {
	return t.exchange.GetBTCMarkets(ctx)
}

// PreviewTrade estimates the shares a market order of amount dollars would
// buy at the current price, alongside the top of the book.
func (t *Trader) PreviewTrade(ctx context.Context, tokenID string, amount float64) TradePreview {
	preview := TradePreview{TokenID: tokenID, Amount: amount}

	if price, err := t.exchange.GetPrice(ctx, tokenID); err == nil && price > 0 {
		preview.CurrentPrice = price
		preview.EstimatedShares = amount / price
	}
	preview.Orderbook = t.exchange.GetOrderbook(ctx, tokenID)
	return preview
}
