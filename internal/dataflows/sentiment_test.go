package dataflows

import (
	"context"
	"testing"

	"github.com/dyike/PolyBot/internal/botlog"
)

func testLogger(t *testing.T) *botlog.Logger {
	t.Helper()
	return botlog.New(t.TempDir())
}

func TestAnalyzeBTCSentimentScore(t *testing.T) {
	fake := func(ctx context.Context, query string, count int) ([]Tweet, error) {
		if query != "BTC" {
			return nil, nil
		}
		return []Tweet{
			{ID: "1", Text: "BTC to the moon, bullish rally"},
			{ID: "2", Text: "bullish breakout incoming"},
			{ID: "3", Text: "massive dump, bearish crash"},
			{ID: "4", Text: "just holding"},
		}, nil
	}

	a := NewSentimentAnalyzerWithSearch(testLogger(t), fake)
	res := a.AnalyzeBTCSentiment(context.Background())

	if res.TotalTweets != 4 {
		t.Fatalf("TotalTweets = %d, want 4", res.TotalTweets)
	}
	if res.BullishCount != 2 || res.BearishCount != 1 || res.NeutralCount != 1 {
		t.Fatalf("counts = %d/%d/%d, want 2/1/1",
			res.BullishCount, res.BearishCount, res.NeutralCount)
	}
	// (2-1)/4 = 0.25
	if res.SentimentScore != 0.25 {
		t.Fatalf("SentimentScore = %v, want 0.25", res.SentimentScore)
	}
}

func TestAnalyzeBTCSentimentDeduplicatesByID(t *testing.T) {
	fake := func(ctx context.Context, query string, count int) ([]Tweet, error) {
		return []Tweet{{ID: "same", Text: "bullish moon"}}, nil
	}

	a := NewSentimentAnalyzerWithSearch(testLogger(t), fake)
	res := a.AnalyzeBTCSentiment(context.Background())

	if res.TotalTweets != 1 {
		t.Fatalf("TotalTweets = %d, want 1 after dedup", res.TotalTweets)
	}
	if res.SentimentScore != 1.0 {
		t.Fatalf("SentimentScore = %v, want 1.0", res.SentimentScore)
	}
}

func TestAnalyzeBTCSentimentUnavailable(t *testing.T) {
	fake := func(ctx context.Context, query string, count int) ([]Tweet, error) {
		return nil, ErrSearchUnavailable
	}

	a := NewSentimentAnalyzerWithSearch(testLogger(t), fake)
	res := a.AnalyzeBTCSentiment(context.Background())

	if res.TotalTweets != 0 || res.SentimentScore != 0 {
		t.Fatalf("expected zero snapshot, got %+v", res)
	}
	if len(res.KeySignals) != 1 {
		t.Fatalf("KeySignals = %v, want one explanatory signal", res.KeySignals)
	}
}

func TestExtractSignals(t *testing.T) {
	tweets := []Tweet{
		{ID: "1", Text: "BTC headed to $95,000 soon"},
		{ID: "2", Text: "bullish rally continues", Likes: 5000},
		{ID: "3", Text: "nothing notable", Likes: 10},
	}

	signals := extractSignals(tweets)
	if len(signals) != 2 {
		t.Fatalf("signals = %v, want 2", signals)
	}
	if signals[0] != "Price target: $95,000" {
		t.Fatalf("signals[0] = %q", signals[0])
	}
	if signals[1] != "High engagement (5000 likes): bullish" {
		t.Fatalf("signals[1] = %q", signals[1])
	}
}

func TestExtractSignalsCapsAtFive(t *testing.T) {
	var tweets []Tweet
	for i := 0; i < 10; i++ {
		tweets = append(tweets, Tweet{ID: string(rune('a' + i)), Text: "target $90,000"})
	}

	signals := extractSignals(tweets)
	if len(signals) != 5 {
		t.Fatalf("len(signals) = %d, want 5", len(signals))
	}
}

func TestClassifyByKeywordsTieIsNeutral(t *testing.T) {
	got := classifyByKeywords("bullish but also bearish", bullishTweetKeywords, bearishTweetKeywords)
	if got != "neutral" {
		t.Fatalf("classify = %q, want neutral", got)
	}
}
