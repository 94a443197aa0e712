package trader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/config"
	"github.com/dyike/PolyBot/internal/dataflows"
	"github.com/dyike/PolyBot/internal/decision"
	"github.com/dyike/PolyBot/internal/polymarket"
)

type fakeExchange struct {
	connectErr    error
	connectCalled bool
	readOnly      bool

	markets  []polymarket.Market
	prices   map[string]float64
	priceErr error

	orders    []string
	orderErr  error
	simulated bool
}

func (f *fakeExchange) Connect(readOnly bool) error {
	f.connectCalled = true
	f.readOnly = readOnly
	return f.connectErr
}

func (f *fakeExchange) Authenticated() bool { return !f.readOnly }

func (f *fakeExchange) GetCryptoMarkets(ctx context.Context) []polymarket.Market {
	return f.markets
}

func (f *fakeExchange) GetBTCMarkets(ctx context.Context) []polymarket.Market {
	var out []polymarket.Market
	for _, m := range f.markets {
		haystack := strings.ToLower(m.Question + " " + m.EventTitle)
		if strings.Contains(haystack, "btc") || strings.Contains(haystack, "bitcoin") {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeExchange) GetPrice(ctx context.Context, tokenID string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.prices[tokenID], nil
}

func (f *fakeExchange) GetOrderbook(ctx context.Context, tokenID string) polymarket.Orderbook {
	return polymarket.Orderbook{Bids: []polymarket.BookLevel{{Price: "0.39", Size: "100"}}}
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, tokenID string, amount float64, side string) (*polymarket.OrderResult, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, fmt.Sprintf("%s %s %.2f", side, tokenID, amount))
	return &polymarket.OrderResult{Simulated: f.simulated, Side: side, Amount: amount}, nil
}

type fakeSentiment struct{ result dataflows.SentimentResult }

func (f *fakeSentiment) AnalyzeBTCSentiment(ctx context.Context) dataflows.SentimentResult {
	return f.result
}

type fakeNews struct{ result dataflows.NewsResult }

func (f *fakeNews) AggregateNews(ctx context.Context) dataflows.NewsResult { return f.result }

type fakeEngine struct{ decisions []decision.TradeDecision }

func (f *fakeEngine) AnalyzeMarkets(ctx context.Context, markets []polymarket.Market, sentiment dataflows.SentimentResult, news dataflows.NewsResult) []decision.TradeDecision {
	return f.decisions
}

func newTestTrader(t *testing.T, exchange *fakeExchange, engine *fakeEngine) (*Trader, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		PrivateKey:           "0xkey",
		FunderAddress:        "0xfunder",
		AnthropicAPIKey:      "key",
		MaxPositionSize:      25.0,
		MinConfidence:        0.7,
		CheckIntervalMinutes: 15,
		LogDir:               filepath.Join(dir, "logs"),
		DataDir:              filepath.Join(dir, "data"),
	}
	log := botlog.New(cfg.LogDir)
	tr := NewWithComponents(cfg, log, exchange, &fakeSentiment{}, &fakeNews{}, engine)
	return tr, cfg
}

func TestInitializeFailsClosedOnInvalidConfig(t *testing.T) {
	exchange := &fakeExchange{}
	tr, cfg := newTestTrader(t, exchange, &fakeEngine{})
	cfg.PrivateKey = ""

	if err := tr.Initialize(false); err == nil {
		t.Fatal("expected error for missing private key")
	}
	if exchange.connectCalled {
		t.Fatal("must not connect after validation failure")
	}
}

func TestInitializeReadOnlySkipsValidation(t *testing.T) {
	exchange := &fakeExchange{}
	tr, cfg := newTestTrader(t, exchange, &fakeEngine{})
	cfg.PrivateKey = ""

	if err := tr.Initialize(true); err != nil {
		t.Fatalf("Initialize(readOnly): %v", err)
	}
	if !exchange.readOnly {
		t.Fatal("expected read-only connect")
	}
}

func TestInitializeConnectError(t *testing.T) {
	exchange := &fakeExchange{connectErr: errors.New("network down")}
	tr, _ := newTestTrader(t, exchange, &fakeEngine{})

	if err := tr.Initialize(false); err == nil {
		t.Fatal("expected connect error to propagate")
	}
}

func TestRunCycleExecutesDecisions(t *testing.T) {
	exchange := &fakeExchange{
		markets: []polymarket.Market{
			{TokenID: "tok1", Question: "BTC above 100k?", Price: 0.35},
		},
		prices:    map[string]float64{"tok1": 0.36},
		simulated: true,
	}
	engine := &fakeEngine{decisions: []decision.TradeDecision{
		{Action: "buy", TokenID: "tok1", MarketQuestion: "BTC above 100k?", Outcome: "YES", Confidence: 0.8, Amount: 10},
	}}

	tr, _ := newTestTrader(t, exchange, engine)
	summary := tr.RunCycle(context.Background())

	if summary.MarketsFound != 1 || summary.DecisionsMade != 1 || summary.TradesExecuted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("Errors = %v", summary.Errors)
	}
	if len(exchange.orders) != 1 || exchange.orders[0] != "BUY tok1 10.00" {
		t.Fatalf("orders = %v", exchange.orders)
	}

	trades := tr.log.TradeHistory()
	if len(trades) != 1 || !trades[0].Simulated {
		t.Fatalf("trade log = %+v", trades)
	}
}

func TestRunCycleNoMarkets(t *testing.T) {
	tr, _ := newTestTrader(t, &fakeExchange{}, &fakeEngine{})
	summary := tr.RunCycle(context.Background())

	if summary.MarketsFound != 0 || summary.DecisionsMade != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunCycleCollectsPriceErrors(t *testing.T) {
	exchange := &fakeExchange{
		markets:  []polymarket.Market{{TokenID: "tok1", Question: "BTC market"}},
		priceErr: errors.New("price feed down"),
	}
	engine := &fakeEngine{decisions: []decision.TradeDecision{
		{Action: "buy", TokenID: "tok1", Outcome: "YES", Amount: 10},
	}}

	tr, _ := newTestTrader(t, exchange, engine)
	summary := tr.RunCycle(context.Background())

	if summary.TradesExecuted != 0 {
		t.Fatalf("TradesExecuted = %d, want 0", summary.TradesExecuted)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1 entry", summary.Errors)
	}
	if len(exchange.orders) != 0 {
		t.Fatal("no order may be placed without a price")
	}
}

func TestRunContinuousStopsOnCancel(t *testing.T) {
	exchange := &fakeExchange{}
	tr, _ := newTestTrader(t, exchange, &fakeEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		tr.RunContinuous(ctx, 60)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunContinuous did not stop on cancel")
	}
	if tr.running {
		t.Fatal("running flag must clear after stop")
	}
}

func TestStatusSnapshot(t *testing.T) {
	tr, cfg := newTestTrader(t, &fakeExchange{}, &fakeEngine{})
	cfg.TradingEnabled = true

	s := tr.Status()
	if !s.TradingEnabled || s.MaxPositionSize != 25.0 || s.CheckIntervalMinutes != 15 {
		t.Fatalf("status = %+v", s)
	}
	if s.Running || s.LastRun != "" {
		t.Fatalf("fresh trader should be idle, got %+v", s)
	}

	tr.RunCycle(context.Background())
	if tr.Status().LastRun == "" {
		t.Fatal("LastRun not set after a cycle")
	}
}

func TestPlaceOrderRecordsManualTrade(t *testing.T) {
	exchange := &fakeExchange{prices: map[string]float64{"tok1": 0.4}, simulated: true}
	tr, _ := newTestTrader(t, exchange, &fakeEngine{})

	result, err := tr.PlaceOrder(context.Background(), "tok1", 15, "SELL")
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !result.Simulated {
		t.Fatal("expected simulated order while trading is disabled")
	}

	trades := tr.log.TradeHistory()
	if len(trades) != 1 || trades[0].Action != "sell" || trades[0].Price != 0.4 {
		t.Fatalf("trade log = %+v", trades)
	}
}

func TestPreviewTrade(t *testing.T) {
	exchange := &fakeExchange{prices: map[string]float64{"tok1": 0.4}}
	tr, _ := newTestTrader(t, exchange, &fakeEngine{})

	p := tr.PreviewTrade(context.Background(), "tok1", 10)
	if p.CurrentPrice != 0.4 {
		t.Fatalf("CurrentPrice = %v", p.CurrentPrice)
	}
	if p.EstimatedShares != 25 {
		t.Fatalf("EstimatedShares = %v, want 25", p.EstimatedShares)
	}
	if len(p.Orderbook.Bids) != 1 {
		t.Fatalf("Orderbook = %+v", p.Orderbook)
	}
}

func TestPreviewTradePriceUnavailable(t *testing.T) {
	exchange := &fakeExchange{priceErr: errors.New("down")}
	tr, _ := newTestTrader(t, exchange, &fakeEngine{})

	p := tr.PreviewTrade(context.Background(), "tok1", 10)
	if p.CurrentPrice != 0 || p.EstimatedShares != 0 {
		t.Fatalf("preview = %+v, want zero price and shares", p)
	}
}

func TestGatherSavesReport(t *testing.T) {
	exchange := &fakeExchange{markets: []polymarket.Market{
		{TokenID: "tok1", Question: "Bitcoin above 100k?", Price: 0.4, Volume: 1000},
		{TokenID: "tok2", Question: "Ethereum flips?", Price: 0.1},
	}}
	tr, cfg := newTestTrader(t, exchange, &fakeEngine{})

	report, err := tr.Gather(context.Background())
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if report.Summary.TotalCryptoMarkets != 2 || report.Summary.BTCMarkets != 1 {
		t.Fatalf("summary = %+v", report.Summary)
	}
	if len(report.Markets) != 1 || report.Markets[0].TokenID != "tok1" {
		t.Fatalf("markets = %+v", report.Markets)
	}

	if _, err := os.Stat(filepath.Join(cfg.DataDir, "latest_intel.json")); err != nil {
		t.Fatalf("report file: %v", err)
	}

	loaded, err := tr.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if loaded == nil || loaded.Summary.BTCMarkets != 1 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestLatestReportMissing(t *testing.T) {
	tr, _ := newTestTrader(t, &fakeExchange{}, &fakeEngine{})

	report, err := tr.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if report != nil {
		t.Fatalf("report = %+v, want nil", report)
	}
}

func TestFormatReport(t *testing.T) {
	report := &IntelReport{
		Timestamp: "2025-09-01T00:00:00Z",
		Markets: []polymarket.Market{
			{TokenID: "0123456789abcdefXX", Question: "Bitcoin above 100k?", Outcome: "YES", Price: 0.42, Volume: 5000},
		},
		News:    IntelNews{BullishHeadlines: 3, BearishHeadlines: 1, BreakingNews: []string{"BREAKING: record"}},
		Summary: IntelSummary{TotalCryptoMarkets: 5, BTCMarkets: 1, SentimentScore: 0.25, NewsBias: 0.5},
	}

	text := FormatReport(report)
	for _, want := range []string{
		"# Polymarket Intel Report",
		"- BTC-specific markets: 1",
		"[YES@42%] Bitcoin above 100k?",
		"Token: 0123456789abcdef...",
		"BREAKING: record",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q in:\n%s", want, text)
		}
	}
}
