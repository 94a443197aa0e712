package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/PolyBot/internal/botlog"
	"github.com/dyike/PolyBot/internal/polymarket"
)

// IntelReport is the persisted intelligence digest.
type IntelReport struct {
	Timestamp string              `json:"timestamp"`
	Markets   []polymarket.Market `json:"markets"`
	Sentiment IntelSentiment      `json:"sentiment"`
	News      IntelNews           `json:"news"`
	Summary   IntelSummary        `json:"summary"`
}

type IntelSentiment struct {
	BullishCount   int      `json:"bullish_count"`
	BearishCount   int      `json:"bearish_count"`
	NeutralCount   int      `json:"neutral_count"`
	TotalTweets    int      `json:"total_tweets"`
	SentimentScore float64  `json:"sentiment_score"`
	KeySignals     []string `json:"key_signals"`
}

type IntelNews struct {
	TotalArticles    int             `json:"total_articles"`
	BullishHeadlines int             `json:"bullish_headlines"`
	BearishHeadlines int             `json:"bearish_headlines"`
	BreakingNews     []string        `json:"breaking_news"`
	TopHeadlines     []IntelHeadline `json:"top_headlines"`
}

type IntelHeadline struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

type IntelSummary struct {
	TotalCryptoMarkets int     `json:"total_crypto_markets"`
	BTCMarkets         int     `json:"btc_markets"`
	SentimentScore     float64 `json:"sentiment_score"`
	NewsBias           float64 `json:"news_bias"`
}

// Gather collects the full intelligence digest across all crypto markets
// (BTC markets kept, capped at 20) and saves it to data/latest_intel.json.
func (t *Trader) Gather(ctx context.Context) (*IntelReport, error) {
	t.log.Event("intel", "Starting intelligence gathering...", botlog.LevelInfo, nil)

	markets := t.exchange.GetCryptoMarkets(ctx)
	t.log.Event("intel", fmt.Sprintf("Found %d crypto market outcomes", len(markets)), botlog.LevelInfo, nil)

	var btcMarkets []polymarket.Market
	for _, m := range markets {
		haystack := strings.ToLower(m.Question + " " + m.EventTitle)
		for _, kw := range []string{"bitcoin", "btc", "microstrategy"} {
			if strings.Contains(haystack, kw) {
				btcMarkets = append(btcMarkets, m)
				break
			}
		}
	}

	sentiment := t.sentiment.AnalyzeBTCSentiment(ctx)
	news := t.news.AggregateNews(ctx)

	top := btcMarkets
	if len(top) > 20 {
		top = top[:20]
	}

	headlineCount := len(news.Items)
	if headlineCount > 10 {
		headlineCount = 10
	}
	headlines := make([]IntelHeadline, 0, headlineCount)
	for _, item := range news.Items[:headlineCount] {
		headlines = append(headlines, IntelHeadline{Title: item.Title, Source: item.Source, URL: item.URL})
	}

	newsBias := float64(news.BullishHeadlines-news.BearishHeadlines) / float64(max(len(news.Items), 1))

	report := &IntelReport{
		Timestamp: time.Now().Format(time.RFC3339),
		Markets:   top,
		Sentiment: IntelSentiment{
			BullishCount:   sentiment.BullishCount,
			BearishCount:   sentiment.BearishCount,
			NeutralCount:   sentiment.NeutralCount,
			TotalTweets:    sentiment.TotalTweets,
			SentimentScore: sentiment.SentimentScore,
			KeySignals:     sentiment.KeySignals,
		},
		News: IntelNews{
			TotalArticles:    len(news.Items),
			BullishHeadlines: news.BullishHeadlines,
			BearishHeadlines: news.BearishHeadlines,
			BreakingNews:     news.BreakingNews,
			TopHeadlines:     headlines,
		},
		Summary: IntelSummary{
			TotalCryptoMarkets: len(markets),
			BTCMarkets:         len(btcMarkets),
			SentimentScore:     sentiment.SentimentScore,
			NewsBias:           newsBias,
		},
	}

	if err := t.saveReport(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (t *Trader) reportPath() string {
	return filepath.Join(t.cfg.DataDir, "latest_intel.json")
}

func (t *Trader) saveReport(report *IntelReport) error {
	if err := os.MkdirAll(t.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode intel report: %w", err)
	}

	path := t.reportPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write intel report: %w", err)
	}

	t.log.Event("intel", fmt.Sprintf("Report saved to %s", path), botlog.LevelInfo, nil)
	return nil
}

// LatestReport loads the last saved intel report, or nil when none exists.
func (t *Trader) LatestReport() (*IntelReport, error) {
	data, err := os.ReadFile(t.reportPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var report IntelReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode intel report: %w", err)
	}
	return &report, nil
}

// FormatReport renders the report as a readable text digest.
func FormatReport(report *IntelReport) string {
	var b strings.Builder

	b.WriteString("# Polymarket Intel Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", report.Timestamp)

	fmt.Fprintf(&b, "## Summary\n")
	fmt.Fprintf(&b, "- Total crypto markets: %d\n", report.Summary.TotalCryptoMarkets)
	fmt.Fprintf(&b, "- BTC-specific markets: %d\n", report.Summary.BTCMarkets)
	fmt.Fprintf(&b, "- Sentiment score: %.2f (-1=bearish, +1=bullish)\n", report.Summary.SentimentScore)
	fmt.Fprintf(&b, "- News bias: %.2f\n\n", report.Summary.NewsBias)

	fmt.Fprintf(&b, "## X/Twitter Sentiment\n")
	fmt.Fprintf(&b, "- Bullish: %d | Bearish: %d | Neutral: %d\n",
		report.Sentiment.BullishCount, report.Sentiment.BearishCount, report.Sentiment.NeutralCount)
	if len(report.Sentiment.KeySignals) > 0 {
		signals := report.Sentiment.KeySignals
		if len(signals) > 3 {
			signals = signals[:3]
		}
		fmt.Fprintf(&b, "- Signals: %s\n", strings.Join(signals, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## News\n")
	fmt.Fprintf(&b, "- Headlines: %d bullish, %d bearish\n",
		report.News.BullishHeadlines, report.News.BearishHeadlines)
	if len(report.News.BreakingNews) > 0 {
		fmt.Fprintf(&b, "- BREAKING: %s\n", report.News.BreakingNews[0])
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Top BTC Markets\n")
	markets := report.Markets
	if len(markets) > 10 {
		markets = markets[:10]
	}
	for _, m := range markets {
		fmt.Fprintf(&b, "- [%s@%.0f%%] %.60s\n", m.Outcome, m.Price*100, m.Question)
		fmt.Fprintf(&b, "  Vol: $%.0f | Token: %.16s...\n", m.Volume, m.TokenID)
	}

	return b.String()
}
