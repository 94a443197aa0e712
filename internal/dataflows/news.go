package dataflows

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/PolyBot/internal/botlog"
)

const (
	cryptoCompareNewsURL = "https://min-api.cryptocompare.com/data/v2/news/"
	coinDeskRSSURL       = "https://www.coindesk.com/arc/outboundfeeds/rss/"
)

var bullishNewsKeywords = []string{
	"surge", "rally", "rises", "jumps", "gains", "bullish",
	"record", "high", "soars", "breaks", "adoption",
}

var bearishNewsKeywords = []string{
	"crash", "plunge", "drops", "falls", "tumbles", "bearish",
	"low", "sells", "dump", "regulation", "ban", "hack",
}

var breakingKeywords = []string{"breaking", "just in", "urgent"}

type ccNewsResponse struct {
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		Body        string `json:"body"`
		PublishedOn int64  `json:"published_on"`
	} `json:"Data"`
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// NewsAggregator pulls BTC news from CryptoCompare and the CoinDesk RSS
// feed. Sources fail independently; one going dark never empties the result.
type NewsAggregator struct {
	log    *botlog.Logger
	client *resty.Client

	cryptoCompareURL string
	coinDeskURL      string
}

func NewNewsAggregator(log *botlog.Logger) *NewsAggregator {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "PolyBot/1.0")

	return &NewsAggregator{
		log:              log,
		client:           client,
		cryptoCompareURL: cryptoCompareNewsURL,
		coinDeskURL:      coinDeskRSSURL,
	}
}

// FetchCryptoNews returns up to 15 BTC articles from the CryptoCompare
// news API.
func (n *NewsAggregator) FetchCryptoNews(ctx context.Context) ([]NewsItem, error) {
	var body ccNewsResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"categories": "BTC",
			"lang":       "EN",
		}).
		SetResult(&body).
		Get(n.cryptoCompareURL)
	if err != nil {
		return nil, fmt.Errorf("fetch cryptocompare news: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("cryptocompare news: status %d", resp.StatusCode())
	}

	var items []NewsItem
	for _, article := range body.Data {
		if len(items) >= 15 {
			break
		}
		items = append(items, NewsItem{
			Title:     article.Title,
			URL:       article.URL,
			Source:    article.Source,
			Snippet:   truncate(article.Body, 200),
			Timestamp: time.Unix(article.PublishedOn, 0).UTC().Format(time.RFC3339),
		})
	}
	return items, nil
}

// FetchCoinDeskHeadlines returns up to 10 BTC-related items from the
// CoinDesk RSS feed.
func (n *NewsAggregator) FetchCoinDeskHeadlines(ctx context.Context) ([]NewsItem, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		Get(n.coinDeskURL)
	if err != nil {
		return nil, fmt.Errorf("fetch coindesk rss: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("coindesk rss: status %d", resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("parse coindesk rss: %w", err)
	}

	var items []NewsItem
	for _, item := range feed.Channel.Items {
		if len(items) >= 10 {
			break
		}
		lower := strings.ToLower(item.Title + " " + item.Description)
		if !strings.Contains(lower, "bitcoin") && !strings.Contains(lower, "btc") {
			continue
		}
		items = append(items, NewsItem{
			Title:     item.Title,
			URL:       item.Link,
			Source:    "CoinDesk",
			Snippet:   truncate(item.Description, 200),
			Timestamp: item.PubDate,
		})
	}
	return items, nil
}

// AggregateNews merges both sources, deduplicates by URL (first source
// wins) and classifies every headline.
func (n *NewsAggregator) AggregateNews(ctx context.Context) NewsResult {
	n.log.Event("news", "Aggregating crypto news", botlog.LevelInfo, nil)

	var all []NewsItem

	cc, err := n.FetchCryptoNews(ctx)
	if err != nil {
		n.log.Event("news", fmt.Sprintf("CryptoCompare fetch failed: %v", err), botlog.LevelWarn, nil)
	} else {
		all = append(all, cc...)
	}

	cd, err := n.FetchCoinDeskHeadlines(ctx)
	if err != nil {
		n.log.Event("news", fmt.Sprintf("CoinDesk fetch failed: %v", err), botlog.LevelWarn, nil)
	} else {
		all = append(all, cd...)
	}

	seen := make(map[string]struct{})
	result := NewsResult{FetchedAt: time.Now().Format(time.RFC3339)}
	for _, item := range all {
		if item.URL != "" {
			if _, ok := seen[item.URL]; ok {
				continue
			}
			seen[item.URL] = struct{}{}
		}
		result.Items = append(result.Items, item)

		switch classifyByKeywords(item.Title, bullishNewsKeywords, bearishNewsKeywords) {
		case "bullish":
			result.BullishHeadlines++
		case "bearish":
			result.BearishHeadlines++
		}

		lower := strings.ToLower(item.Title)
		for _, kw := range breakingKeywords {
			if strings.Contains(lower, kw) {
				result.BreakingNews = append(result.BreakingNews, item.Title)
				break
			}
		}
	}

	n.log.Event("news", fmt.Sprintf("Aggregated %d items (%d bullish, %d bearish headlines)",
		len(result.Items), result.BullishHeadlines, result.BearishHeadlines), botlog.LevelInfo, nil)
	return result
}
