package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<item>
<title>Bitcoin Surges Past Key Level</title>
<link>https://example.com/btc-surge</link>
<description>BTC rallies on ETF inflows.</description>
<pubDate>Mon, 01 Sep 2025 10:00:00 GMT</pubDate>
</item>
<item>
<title>Ethereum Upgrade Ships</title>
<link>https://example.com/eth</link>
<description>Nothing about the largest coin here.</description>
<pubDate>Mon, 01 Sep 2025 09:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func newTestAggregator(t *testing.T, cc, cd http.HandlerFunc) *NewsAggregator {
	t.Helper()
	ccSrv := httptest.NewServer(cc)
	t.Cleanup(ccSrv.Close)
	cdSrv := httptest.NewServer(cd)
	t.Cleanup(cdSrv.Close)

	agg := NewNewsAggregator(testLogger(t))
	agg.cryptoCompareURL = ccSrv.URL
	agg.coinDeskURL = cdSrv.URL
	return agg
}

func TestAggregateNewsMergesAndClassifies(t *testing.T) {
	cc := func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("categories"); got != "BTC" {
			t.Errorf("categories = %q, want BTC", got)
		}
		w.Write([]byte(`{"Data":[
			{"title":"Bitcoin Crash Deepens","url":"https://example.com/crash","source":"Wire","body":"Prices tumble.","published_on":1756700000},
			{"title":"BREAKING: BTC record high","url":"https://example.com/record","source":"Wire","body":"New top.","published_on":1756700100}
		]}`))
	}
	cd := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}

	agg := newTestAggregator(t, cc, cd)
	res := agg.AggregateNews(context.Background())

	// 2 from CryptoCompare + 1 BTC-filtered RSS item.
	if len(res.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(res.Items))
	}
	if res.BullishHeadlines != 2 {
		t.Fatalf("BullishHeadlines = %d, want 2", res.BullishHeadlines)
	}
	if res.BearishHeadlines != 1 {
		t.Fatalf("BearishHeadlines = %d, want 1", res.BearishHeadlines)
	}
	if len(res.BreakingNews) != 1 || res.BreakingNews[0] != "BREAKING: BTC record high" {
		t.Fatalf("BreakingNews = %v", res.BreakingNews)
	}
}

func TestAggregateNewsDeduplicatesByURL(t *testing.T) {
	cc := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data":[{"title":"From CryptoCompare","url":"https://example.com/dup","source":"Wire","body":"","published_on":0}]}`))
	}
	cd := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss><channel><item>
			<title>Bitcoin From CoinDesk</title>
			<link>https://example.com/dup</link>
			<description>btc</description>
			</item></channel></rss>`))
	}

	agg := newTestAggregator(t, cc, cd)
	res := agg.AggregateNews(context.Background())

	if len(res.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 after URL dedup", len(res.Items))
	}
	if res.Items[0].Title != "From CryptoCompare" {
		t.Fatalf("first source should win, got %q", res.Items[0].Title)
	}
}

func TestAggregateNewsSourceFailsIndependently(t *testing.T) {
	cc := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}
	cd := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}

	agg := newTestAggregator(t, cc, cd)
	res := agg.AggregateNews(context.Background())

	if len(res.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 from surviving source", len(res.Items))
	}
	if res.Items[0].Source != "CoinDesk" {
		t.Fatalf("Source = %q, want CoinDesk", res.Items[0].Source)
	}
}

func TestFetchCryptoNewsSnippetTruncation(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	cc := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data":[{"title":"t","url":"u","source":"s","body":"` + string(long) + `","published_on":0}]}`))
	}
	cd := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}

	agg := newTestAggregator(t, cc, cd)
	items, err := agg.FetchCryptoNews(context.Background())
	if err != nil {
		t.Fatalf("FetchCryptoNews: %v", err)
	}
	if len(items) != 1 || len(items[0].Snippet) != 200 {
		t.Fatalf("snippet length = %d, want 200", len(items[0].Snippet))
	}
}
