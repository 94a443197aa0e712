// Package dataflows collects the external signals feeding the decision
// engine: X/Twitter sentiment and aggregated crypto news.
package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/dyike/PolyBot/internal/botlog"
)

// ErrSearchUnavailable marks the bird CLI as missing or unusable; the
// analyzer degrades to a zero snapshot instead of failing.
var ErrSearchUnavailable = errors.New("bird search unavailable")

var bullishTweetKeywords = []string{
	"bullish", "moon", "pump", "buy", "long", "breakout",
	"ath", "all time high", "green", "rally", "surge",
	"🚀", "📈", "💚", "🐂",
}

var bearishTweetKeywords = []string{
	"bearish", "dump", "sell", "short", "crash", "dip",
	"red", "plunge", "drop", "fall", "down",
	"📉", "🔴", "🐻", "💀",
}

// Dollar amounts like $95,000 or $100000 mentioned as price targets.
var priceTargetRe = regexp.MustCompile(`\$(\d{2,3}),?(\d{3})`)

const highEngagementLikes = 1000

// SearchFunc runs one text search and returns the matching tweets.
type SearchFunc func(ctx context.Context, query string, count int) ([]Tweet, error)

// SentimentAnalyzer scores BTC sentiment from X/Twitter search results.
type SentimentAnalyzer struct {
	log    *botlog.Logger
	search SearchFunc
}

func NewSentimentAnalyzer(log *botlog.Logger) *SentimentAnalyzer {
	return &SentimentAnalyzer{log: log, search: birdSearch}
}

// NewSentimentAnalyzerWithSearch injects a search implementation; used by
// tests and alternative search backends.
func NewSentimentAnalyzerWithSearch(log *botlog.Logger, search SearchFunc) *SentimentAnalyzer {
	return &SentimentAnalyzer{log: log, search: search}
}

// AnalyzeBTCSentiment runs the fixed query set, deduplicates by tweet ID,
// classifies every tweet by keyword majority vote and reduces the batch to
// a score in [-1,1]. It never returns an error: an unavailable search
// backend yields a zero snapshot with an explanatory signal.
func (a *SentimentAnalyzer) AnalyzeBTCSentiment(ctx context.Context) SentimentResult {
	a.log.Event("sentiment", "Starting BTC sentiment analysis", botlog.LevelInfo, nil)

	queries := []string{"BTC", "bitcoin price", "#BTC", "bitcoin prediction"}

	var all []Tweet
	for _, query := range queries {
		tweets, err := a.search(ctx, query, 15)
		if err != nil {
			if errors.Is(err, ErrSearchUnavailable) {
				a.log.Event("sentiment", "Search backend unavailable", botlog.LevelWarn, nil)
				return SentimentResult{
					KeySignals: []string{"X search unavailable - no sentiment data"},
					Timestamp:  time.Now().Format(time.RFC3339),
				}
			}
			a.log.Event("sentiment", fmt.Sprintf("Search %q failed: %v", query, err), botlog.LevelWarn, nil)
			continue
		}
		all = append(all, tweets...)
	}

	seen := make(map[string]struct{})
	var unique []Tweet
	for _, tw := range all {
		if tw.ID == "" {
			continue
		}
		if _, ok := seen[tw.ID]; ok {
			continue
		}
		seen[tw.ID] = struct{}{}
		unique = append(unique, tw)
	}

	var bullish, bearish, neutral int
	for _, tw := range unique {
		switch classifyByKeywords(tw.Text, bullishTweetKeywords, bearishTweetKeywords) {
		case "bullish":
			bullish++
		case "bearish":
			bearish++
		default:
			neutral++
		}
	}

	total := len(unique)
	score := 0.0
	if total > 0 {
		score = float64(bullish-bearish) / float64(total)
	}

	result := SentimentResult{
		BullishCount:   bullish,
		BearishCount:   bearish,
		NeutralCount:   neutral,
		TotalTweets:    total,
		SentimentScore: math.Round(score*1000) / 1000,
		KeySignals:     extractSignals(unique),
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	a.log.Event("sentiment", fmt.Sprintf("Analysis complete: score=%.3f, tweets=%d", score, total), botlog.LevelInfo, nil)
	return result
}

// extractSignals pulls up to 5 notable strings out of the batch: explicit
// price targets and high-engagement tweets tagged with their classification.
func extractSignals(tweets []Tweet) []string {
	var signals []string

	limit := len(tweets)
	if limit > 10 {
		limit = 10
	}
	for _, tw := range tweets[:limit] {
		for _, match := range priceTargetRe.FindAllStringSubmatch(tw.Text, -1) {
			thousands, _ := strconv.Atoi(match[1])
			rest, _ := strconv.Atoi(match[2])
			signals = append(signals, fmt.Sprintf("Price target: $%d,%03d", thousands, rest))
		}
		if tw.Likes > highEngagementLikes {
			classification := classifyByKeywords(tw.Text, bullishTweetKeywords, bearishTweetKeywords)
			signals = append(signals, fmt.Sprintf("High engagement (%d likes): %s", tw.Likes, classification))
		}
	}

	if len(signals) > 5 {
		signals = signals[:5]
	}
	return signals
}

// birdSearch shells out to the bird CLI for X search.
func birdSearch(ctx context.Context, query string, count int) ([]Tweet, error) {
	if _, err := exec.LookPath("bird"); err != nil {
		return nil, ErrSearchUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "bird", "search", query,
		"--count", strconv.Itoa(count), "--json").Output()
	if err != nil {
		return nil, fmt.Errorf("bird search: %w", err)
	}

	var tweets []Tweet
	if err := json.Unmarshal(out, &tweets); err != nil {
		return nil, fmt.Errorf("parse bird output: %w", err)
	}
	return tweets, nil
}
