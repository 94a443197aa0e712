package dataflows

import "strings"

// Tweet is one search hit from the X/Twitter search CLI.
type Tweet struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Likes int    `json:"likes"`
}

// SentimentResult aggregates classified tweets into a bounded score.
type SentimentResult struct {
	BullishCount   int      `json:"bullish_count"`
	BearishCount   int      `json:"bearish_count"`
	NeutralCount   int      `json:"neutral_count"`
	TotalTweets    int      `json:"total_tweets"`
	SentimentScore float64  `json:"sentiment_score"` // -1.0 (bearish) to 1.0 (bullish)
	KeySignals     []string `json:"key_signals"`
	Timestamp      string   `json:"timestamp"`
}

// NewsItem is a single news article.
type NewsItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewsResult aggregates deduplicated news items with headline sentiment.
type NewsResult struct {
	Items            []NewsItem `json:"items"`
	BullishHeadlines int        `json:"bullish_headlines"`
	BearishHeadlines int        `json:"bearish_headlines"`
	BreakingNews     []string   `json:"breaking_news"`
	FetchedAt        string     `json:"fetched_at"`
}

// classifyByKeywords votes bullish vs bearish on keyword hit counts.
// Ties, including zero hits, are neutral.
func classifyByKeywords(text string, bullish, bearish []string) string {
	lower := strings.ToLower(text)

	bullishHits := 0
	for _, kw := range bullish {
		if strings.Contains(lower, kw) {
			bullishHits++
		}
	}
	bearishHits := 0
	for _, kw := range bearish {
		if strings.Contains(lower, kw) {
			bearishHits++
		}
	}

	switch {
	case bullishHits > bearishHits:
		return "bullish"
	case bearishHits > bullishHits:
		return "bearish"
	default:
		return "neutral"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
