// Package polymarket wraps the Polymarket services the bot depends on:
// market discovery through the Gamma metadata API and price lookup plus
// order entry through the CLOB, the latter via the GoPolymarket SDK.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdk "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/config"
)

// Events relevant to any crypto market, matched against title+description.
var cryptoKeywords = []string{
	"bitcoin", "btc", "crypto", "ethereum", "eth ", "solana",
	"microstrategy", "coinbase", "binance", "defi", "token",
	"blockchain", "mining", "stablecoin", "usdc", "usdt",
}

// Subset of the crypto keywords marking a market as BTC-specific.
var btcSubsetKeywords = []string{"bitcoin", "btc", "microstrategy"}

// Client talks to Polymarket. Discovery works unauthenticated; order entry
// requires Connect with readOnly=false.
type Client struct {
	cfg   *config.Config
	log   *botlog.Logger
	gamma *resty.Client

	clob          clob.Client
	signer        auth.Signer
	authenticated bool
}

func NewClient(cfg *config.Config, log *botlog.Logger) *Client {
	gamma := resty.New().
		SetBaseURL(cfg.GammaHost).
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent", "PolyBot/1.0")

	return &Client{cfg: cfg, log: log, gamma: gamma}
}

// Connect initializes the CLOB session. In read-only mode no credentials are
// needed; otherwise the wallet key is turned into an order signer.
func (c *Client) Connect(readOnly bool) error {
	root := sdk.NewClient()

	if readOnly {
		c.clob = root.CLOB
		c.log.Event("polymarket", "Connected (read-only)", botlog.LevelInfo, nil)
		return nil
	}

	signer, err := auth.NewPrivateKeySigner(c.cfg.PrivateKey, c.cfg.ChainID)
	if err != nil {
		c.log.Event("polymarket", fmt.Sprintf("Connection failed: %v", err), botlog.LevelError, nil)
		return fmt.Errorf("create signer: %w", err)
	}

	c.signer = signer
	c.clob = root.CLOB.WithAuth(signer, nil)
	c.authenticated = true
	c.log.Event("polymarket", "Connected (authenticated)", botlog.LevelInfo, nil)
	return nil
}

// Authenticated reports whether the client can sign orders.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// GetCryptoMarkets discovers all active crypto-related market outcomes from
// the Gamma events feed. Failures degrade to an empty slice; they are
// recorded in the audit log and never surfaced to the caller.
func (c *Client) GetCryptoMarkets(ctx context.Context) []Market {
	var events []gammaEvent

	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"closed": "false",
			"limit":  "200",
		}).
		SetResult(&events).
		Get("/events")
	if err != nil {
		c.log.Event("polymarket", fmt.Sprintf("Gamma request failed: %v", err), botlog.LevelError, nil)
		return nil
	}
	if resp.StatusCode() != 200 {
		c.log.Event("polymarket", fmt.Sprintf("Gamma API error: %d", resp.StatusCode()), botlog.LevelError, nil)
		return nil
	}

	var markets []Market
	for _, event := range events {
		searchText := strings.ToLower(event.Title + " " + event.Description)
		if !containsAny(searchText, cryptoKeywords) {
			continue
		}

		for _, m := range event.Markets {
			// A side needs both its token and its price; a short price
			// array means that side is omitted, not zero-filled.
			if side, ok := outcomeAt(m, 0, "YES", event.Title); ok {
				markets = append(markets, side)
			}
			if side, ok := outcomeAt(m, 1, "NO", event.Title); ok {
				markets = append(markets, side)
			}
		}
	}

	c.log.Event("polymarket", fmt.Sprintf("Found %d crypto market outcomes", len(markets)), botlog.LevelInfo, nil)
	return markets
}

// GetBTCMarkets filters the crypto markets down to BTC-specific questions.
func (c *Client) GetBTCMarkets(ctx context.Context) []Market {
	all := c.GetCryptoMarkets(ctx)

	var btc []Market
	for _, m := range all {
		haystack := strings.ToLower(m.Question + " " + m.EventTitle)
		if containsAny(haystack, btcSubsetKeywords) {
			btc = append(btc, m)
		}
	}

	c.log.Event("polymarket", fmt.Sprintf("Found %d BTC-specific markets", len(btc)), botlog.LevelInfo, nil)
	return btc
}

// GetPrice returns the current price for a token.
func (c *Client) GetPrice(ctx context.Context, tokenID string) (float64, error) {
	if c.clob == nil {
		return 0, fmt.Errorf("not connected")
	}
	resp, err := c.clob.Price(ctx, &clobtypes.PriceRequest{TokenID: tokenID})
	if err != nil {
		c.log.Event("polymarket", fmt.Sprintf("Failed to get price: %v", err), botlog.LevelError, nil)
		return 0, err
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		c.log.Event("polymarket", fmt.Sprintf("Malformed price %q: %v", resp.Price, err), botlog.LevelError, nil)
		return 0, err
	}
	return price, nil
}

// GetOrderbook returns the top 5 levels of each side of a token's book.
// Unavailable books come back empty, not as an error.
func (c *Client) GetOrderbook(ctx context.Context, tokenID string) Orderbook {
	if c.clob == nil {
		return Orderbook{}
	}
	resp, err := c.clob.OrderBook(ctx, &clobtypes.BookRequest{TokenID: tokenID})
	if err != nil {
		c.log.Event("polymarket", fmt.Sprintf("Failed to get orderbook: %v", err), botlog.LevelError, nil)
		return Orderbook{}
	}

	book := Orderbook{}
	for i, b := range resp.Bids {
		if i == 5 {
			break
		}
		book.Bids = append(book.Bids, BookLevel{Price: b.Price, Size: b.Size})
	}
	for i, a := range resp.Asks {
		if i == 5 {
			break
		}
		book.Asks = append(book.Asks, BookLevel{Price: a.Price, Size: a.Size})
	}
	return book
}

// PlaceMarketOrder submits a Fill-or-Kill market order. When trading is
// disabled the order is simulated: recorded but never sent to the exchange.
func (c *Client) PlaceMarketOrder(ctx context.Context, tokenID string, amount float64, side string) (*OrderResult, error) {
	if !c.authenticated {
		c.log.Event("trading", "Cannot trade - not authenticated", botlog.LevelError, nil)
		return nil, fmt.Errorf("not authenticated")
	}

	side = strings.ToUpper(side)
	if !c.cfg.TradingEnabled {
		c.log.Event("trading", fmt.Sprintf("SIMULATED: %s $%.2f of %s...", side, amount, shortToken(tokenID)), botlog.LevelInfo, nil)
		return &OrderResult{Simulated: true, Side: side, Amount: amount}, nil
	}

	signable, err := clob.NewOrderBuilder(c.clob, c.signer).
		TokenID(tokenID).
		Side(side).
		AmountUSDC(amount).
		OrderType(clobtypes.OrderTypeFOK).
		BuildMarketWithContext(ctx)
	if err != nil {
		c.log.Event("trading", fmt.Sprintf("Order build failed: %v", err), botlog.LevelError, nil)
		return nil, fmt.Errorf("build market order: %w", err)
	}

	resp, err := c.clob.CreateOrderFromSignable(ctx, signable)
	if err != nil {
		c.log.Event("trading", fmt.Sprintf("Order failed: %v", err), botlog.LevelError, nil)
		return nil, fmt.Errorf("submit market order: %w", err)
	}

	raw, _ := json.Marshal(resp)
	c.log.Event("trading", fmt.Sprintf("Order placed: %s $%.2f", side, amount), botlog.LevelSuccess, json.RawMessage(raw))
	return &OrderResult{Side: side, Amount: amount, Response: raw}, nil
}

// PlaceLimitOrder submits a Good-til-Cancelled limit order, following the
// same simulation gate as PlaceMarketOrder.
func (c *Client) PlaceLimitOrder(ctx context.Context, tokenID string, price, size float64, side string) (*OrderResult, error) {
	if !c.authenticated {
		c.log.Event("trading", "Cannot trade - not authenticated", botlog.LevelError, nil)
		return nil, fmt.Errorf("not authenticated")
	}

	side = strings.ToUpper(side)
	if !c.cfg.TradingEnabled {
		c.log.Event("trading", fmt.Sprintf("SIMULATED: Limit %s %.2f @ %.2f", side, size, price), botlog.LevelInfo, nil)
		return &OrderResult{Simulated: true, Side: side, Price: price, Size: size}, nil
	}

	signable, err := clob.NewOrderBuilder(c.clob, c.signer).
		TokenID(tokenID).
		Side(side).
		Price(price).
		Size(size).
		OrderType(clobtypes.OrderTypeGTC).
		BuildSignableWithContext(ctx)
	if err != nil {
		c.log.Event("trading", fmt.Sprintf("Limit order build failed: %v", err), botlog.LevelError, nil)
		return nil, fmt.Errorf("build limit order: %w", err)
	}

	resp, err := c.clob.CreateOrderFromSignable(ctx, signable)
	if err != nil {
		c.log.Event("trading", fmt.Sprintf("Limit order failed: %v", err), botlog.LevelError, nil)
		return nil, fmt.Errorf("submit limit order: %w", err)
	}

	raw, _ := json.Marshal(resp)
	c.log.Event("trading", fmt.Sprintf("Limit order placed: %s %.2f @ %.2f", side, size, price), botlog.LevelSuccess, json.RawMessage(raw))
	return &OrderResult{Side: side, Price: price, Size: size, Response: raw}, nil
}

func outcomeAt(m gammaMarket, idx int, outcome, eventTitle string) (Market, bool) {
	if idx >= len(m.ClobTokenIDs) || m.ClobTokenIDs[idx] == "" {
		return Market{}, false
	}
	if idx >= len(m.OutcomePrices) {
		return Market{}, false
	}
	price, err := strconv.ParseFloat(m.OutcomePrices[idx], 64)
	if err != nil {
		return Market{}, false
	}
	return Market{
		TokenID:     m.ClobTokenIDs[idx],
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Outcome:     outcome,
		Price:       price,
		Volume:      float64(m.Volume),
		EndDate:     m.EndDate,
		EventTitle:  eventTitle,
	}, true
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func shortToken(tokenID string) string {
	if len(tokenID) <= 8 {
		return tokenID
	}
	return tokenID[:8]
}
