package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/config"
	"github.com/dyike/PolyBot/internal/dataflows"
	"github.com/dyike/PolyBot/internal/polymarket"
)

// systemPrompt frames the model as a prediction-market analyst. The output
// contract (one JSON object) is restated in the user prompt.
const systemPrompt = `You are an expert crypto trading analyst specializing in Bitcoin prediction markets on Polymarket.

Your job is to analyze:
1. Current market prices (probability implied by YES/NO prices)
2. X/Twitter sentiment (bullish/bearish signals)
3. News headlines (bullish/bearish bias)
4. Market liquidity and volatility

Then decide whether to BUY YES, BUY NO, or HOLD for each market.

Rules:
- Only recommend trades with >70% confidence
- Consider the time remaining until market resolution
- Factor in sentiment momentum (is sentiment shifting?)
- Look for mispricings: sentiment disagrees with current price
- Keep position sizes conservative (max $25 per trade)

Output JSON with your decision and reasoning.`

// TradeDecision is one actionable recommendation.
type TradeDecision struct {
	Action         string  `json:"action"` // always "buy"
	TokenID        string  `json:"token_id"`
	MarketQuestion string  `json:"market_question"`
	Outcome        string  `json:"outcome"` // YES or NO
	Confidence     float64 `json:"confidence"`
	Amount         float64 `json:"amount"`
	Reasoning      string  `json:"reasoning"`
	Timestamp      string  `json:"timestamp"`
}

type modelDecision struct {
	TokenID    string  `json:"token_id"`
	Action     string  `json:"action"` // buy_yes | buy_no | hold
	Confidence float64 `json:"confidence"`
	Amount     float64 `json:"amount"`
	Reasoning  string  `json:"reasoning"`
}

type modelResponse struct {
	Analysis  string          `json:"analysis"`
	Decisions []modelDecision `json:"decisions"`
}

// Engine generates trade decisions from markets and collected signals.
type Engine struct {
	cfg      *config.Config
	log      *botlog.Logger
	provider Provider
}

// NewEngine builds an Engine; provider may be nil, in which case
// AnalyzeMarkets always returns empty and only QuickDecision works.
func NewEngine(cfg *config.Config, log *botlog.Logger, provider Provider) *Engine {
	if provider != nil {
		log.Event("decision", fmt.Sprintf("Using %s for decisions", provider.Name()), botlog.LevelInfo, nil)
	} else {
		log.Event("decision", "No LLM provider configured", botlog.LevelError, nil)
	}
	return &Engine{cfg: cfg, log: log, provider: provider}
}

// AnalyzeMarkets asks the provider for trade recommendations and reconciles
// them against the candidate markets. Parse failures and provider errors are
// logged and yield an empty slice, never an error.
func (e *Engine) AnalyzeMarkets(ctx context.Context, markets []polymarket.Market, sentiment dataflows.SentimentResult, news dataflows.NewsResult) []TradeDecision {
	if len(markets) == 0 {
		e.log.Event("decision", "No markets to analyze", botlog.LevelInfo, nil)
		return nil
	}
	if e.provider == nil {
		e.log.Event("decision", "No LLM provider available", botlog.LevelError, nil)
		return nil
	}

	prompt := buildAnalysisPrompt(markets, sentiment, news)
	e.log.Event("decision", "Requesting AI analysis...", botlog.LevelInfo, nil)

	raw, err := e.provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		e.log.Event("decision", fmt.Sprintf("LLM call failed: %v", err), botlog.LevelError, nil)
		return nil
	}

	parsed, err := extractJSON(raw)
	if err != nil {
		e.log.Event("decision", fmt.Sprintf("Failed to parse AI response: %v", err), botlog.LevelError, nil)
		return nil
	}

	e.log.Event("decision", fmt.Sprintf("Analysis: %s", parsed.Analysis), botlog.LevelInfo, nil)

	var decisions []TradeDecision
	for _, d := range parsed.Decisions {
		if d.Action == "hold" {
			continue
		}
		market, ok := matchMarket(markets, d.TokenID)
		if !ok {
			continue
		}

		outcome := "NO"
		if strings.Contains(strings.ToLower(d.Action), "yes") {
			outcome = "YES"
		}

		decisions = append(decisions, TradeDecision{
			Action:         "buy",
			TokenID:        market.TokenID,
			MarketQuestion: market.Question,
			Outcome:        outcome,
			Confidence:     d.Confidence,
			Amount:         math.Min(d.Amount, e.cfg.MaxPositionSize),
			Reasoning:      d.Reasoning,
			Timestamp:      time.Now().Format(time.RFC3339),
		})
	}

	var filtered []TradeDecision
	for _, d := range decisions {
		if d.Confidence >= e.cfg.MinConfidence {
			filtered = append(filtered, d)
		}
	}

	e.log.Event("decision", fmt.Sprintf("Generated %d high-confidence decisions", len(filtered)), botlog.LevelInfo, nil)
	return filtered
}

// QuickDecision is the rule-based fallback. The thresholds are fixed policy,
// not configuration.
func (e *Engine) QuickDecision(market polymarket.Market, sentimentScore, newsBias float64) *TradeDecision {
	combined := (sentimentScore + newsBias) / 2

	if combined > 0.5 && market.Price < 0.4 {
		return &TradeDecision{
			Action:         "buy",
			TokenID:        market.TokenID,
			MarketQuestion: market.Question,
			Outcome:        "YES",
			Confidence:     math.Min(0.6+combined*0.3, 0.9),
			Amount:         10.0,
			Reasoning:      fmt.Sprintf("Strong bullish signal (%.2f) with low price (%.2f)", combined, market.Price),
			Timestamp:      time.Now().Format(time.RFC3339),
		}
	}

	if combined < -0.5 && market.Price > 0.6 {
		return &TradeDecision{
			Action:         "buy",
			TokenID:        market.TokenID,
			MarketQuestion: market.Question,
			Outcome:        "NO",
			Confidence:     math.Min(0.6+math.Abs(combined)*0.3, 0.9),
			Amount:         10.0,
			Reasoning:      fmt.Sprintf("Strong bearish signal (%.2f) with high YES price (%.2f)", combined, market.Price),
			Timestamp:      time.Now().Format(time.RFC3339),
		}
	}

	return nil
}

func buildAnalysisPrompt(markets []polymarket.Market, sentiment dataflows.SentimentResult, news dataflows.NewsResult) string {
	var b strings.Builder

	b.WriteString("## Active BTC Markets on Polymarket:\n")
	limit := len(markets)
	if limit > 5 {
		limit = 5
	}
	for i, m := range markets[:limit] {
		fmt.Fprintf(&b, `
%d. %s
   - Outcome: %s
   - Current Price: $%.2f (%.1f%% implied probability)
   - Volume: $%.0f
   - Ends: %s
   - Token ID: %s...
`, i+1, m.Question, m.Outcome, m.Price, m.Price*100, m.Volume, m.EndDate, shortID(m.TokenID))
	}

	signals := "None"
	if len(sentiment.KeySignals) > 0 {
		signals = strings.Join(sentiment.KeySignals, ", ")
	}
	fmt.Fprintf(&b, `
## X/Twitter Sentiment:
- Bullish tweets: %d
- Bearish tweets: %d
- Neutral tweets: %d
- Overall score: %.2f (-1=bearish, +1=bullish)
- Key signals: %s
`, sentiment.BullishCount, sentiment.BearishCount, sentiment.NeutralCount, sentiment.SentimentScore, signals)

	breaking := "None"
	if len(news.BreakingNews) > 0 {
		breaking = strings.Join(news.BreakingNews, ", ")
	}
	fmt.Fprintf(&b, `
## Recent News:
- Bullish headlines: %d
- Bearish headlines: %d
- Breaking news: %s

Top Headlines:
`, news.BullishHeadlines, news.BearishHeadlines, breaking)

	headlines := len(news.Items)
	if headlines > 5 {
		headlines = 5
	}
	for _, item := range news.Items[:headlines] {
		fmt.Fprintf(&b, "- %s (%s)\n", item.Title, item.Source)
	}

	b.WriteString(`
Based on this data, analyze each market and provide trading recommendations.

Respond with a JSON object:
{
    "analysis": "Brief overall market analysis",
    "decisions": [
        {
            "token_id": "...",
            "action": "buy_yes" | "buy_no" | "hold",
            "confidence": 0.0-1.0,
            "amount": dollar amount (max 25),
            "reasoning": "Why this trade"
        }
    ]
}

Only include markets where you have a clear edge. Hold if uncertain.`)

	return b.String()
}

// extractJSON decodes the substring between the first '{' and the last '}'.
func extractJSON(raw string) (*modelResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed modelResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// matchMarket resolves a model-provided token ID by 16-char prefix; the
// first match wins.
func matchMarket(markets []polymarket.Market, tokenID string) (polymarket.Market, bool) {
	prefix := tokenID
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	for _, m := range markets {
		if strings.HasPrefix(m.TokenID, prefix) {
			return m, true
		}
	}
	return polymarket.Market{}, false
}

func shortID(tokenID string) string {
	if len(tokenID) > 16 {
		return tokenID[:16]
	}
	return tokenID
}
