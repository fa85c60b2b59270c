package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/finsight-ai/finsight/pkg/indicator"
)

var (
	_ MarketDataProvider   = (*StubProviders)(nil)
	_ FundamentalsProvider = (*StubProviders)(nil)
	_ NewsProvider         = (*StubProviders)(nil)
	_ WebSearchProvider    = (*StubProviders)(nil)
	_ FundFlowProvider     = (*StubProviders)(nil)
)

// StubProviders is a deterministic in-process implementation of every
// provider interface. It backs the CLI when no real data backends are
// configured and the test suites; values are synthesized from the symbol so
// runs are reproducible.
type StubProviders struct {
	// Now anchors all as-of timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewStubProviders returns stubs anchored to the wall clock.
func NewStubProviders() *StubProviders {
	return &StubProviders{Now: time.Now}
}

// AsProviders bundles the stub as the full provider set.
func (s *StubProviders) AsProviders() Providers {
	return Providers{
		Market:       s,
		Fundamentals: s,
		News:         s,
		Web:          s,
		FundFlow:     s,
	}
}

func (s *StubProviders) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// seed derives a stable per-symbol base value.
func seed(symbol string) float64 {
	var h uint32 = 2166136261
	for i := 0; i < len(symbol); i++ {
		h ^= uint32(symbol[i])
		h *= 16777619
	}
	return 20 + float64(h%8000)/100 // base price in [20, 100)
}

func (s *StubProviders) GetKline(ctx context.Context, symbol, market, period string, limit int) (*KlineSeries, error) {
	if limit <= 0 {
		limit = 90
	}
	base := seed(symbol)
	now := s.now()
	step := 24 * time.Hour
	if period == "weekly" {
		step = 7 * 24 * time.Hour
	}
	bars := make([]indicator.Bar, 0, limit)
	for i := 0; i < limit; i++ {
		// Gentle uptrend with a sine wobble, so indicator output is nontrivial.
		t := float64(i)
		c := base * (1 + 0.002*t + 0.03*math.Sin(t/5))
		o := c * 0.995
		bars = append(bars, indicator.Bar{
			Date:   now.Add(-time.Duration(limit-i) * step),
			Open:   o,
			High:   c * 1.01,
			Low:    o * 0.99,
			Close:  c,
			Volume: 1e6 * (1 + 0.2*math.Sin(t/3)),
		})
	}
	return &KlineSeries{
		Symbol: symbol,
		Market: market,
		Period: period,
		Bars:   bars,
		Source: "stub:kline",
		AsOf:   now,
	}, nil
}

func (s *StubProviders) GetQuote(ctx context.Context, symbol, market string) (*Quote, error) {
	base := seed(symbol)
	return &Quote{
		Symbol:    symbol,
		Price:     base * 1.18,
		ChangePct: 0.8,
		PERatio:   18.5,
		Volume:    1.2e6,
		Source:    "stub:quote",
		AsOf:      s.now(),
	}, nil
}

func (s *StubProviders) GetCurve(ctx context.Context, symbol, market, curve string) (*Curve, error) {
	now := s.now()
	points := make([]CurvePoint, 0, 12)
	for i := 0; i < 12; i++ {
		points = append(points, CurvePoint{
			Date:  now.AddDate(0, -(12 - i), 0),
			Value: 15 + 2*math.Sin(float64(i)/2),
		})
	}
	return &Curve{
		Name:   curve,
		Points: points,
		Source: "stub:curve",
		AsOf:   now,
	}, nil
}

func (s *StubProviders) Fundamentals(ctx context.Context, symbol, market string) (*Fundamentals, error) {
	base := seed(symbol)
	return &Fundamentals{
		Symbol:    symbol,
		PERatio:   18.5,
		PBRatio:   2.4,
		ROE:       0.15,
		EPS:       base / 18.5 * 1.18,
		MarketCap: base * 1e9,
		Source:    "stub:fundamentals",
		AsOf:      s.now(),
	}, nil
}

func (s *StubProviders) FinancialReports(ctx context.Context, symbol, market, period string) (*ReportDigest, error) {
	base := seed(symbol)
	reports := make([]FinancialReport, 0, 4)
	for i := 0; i < 4; i++ {
		growth := 1 + 0.05*float64(i)
		reports = append(reports, FinancialReport{
			Period:      fmt.Sprintf("2025-Q%d", i+1),
			Revenue:     base * 1e8 * growth,
			NetIncome:   base * 1e7 * growth,
			GrossMargin: 0.38,
		})
	}
	return &ReportDigest{
		Symbol:  symbol,
		Reports: reports,
		Source:  "stub:reports",
		AsOf:    s.now(),
	}, nil
}

func (s *StubProviders) Peers(ctx context.Context, symbol, market string, limit int) (*PeerComparison, error) {
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	peers := make([]PeerMetric, 0, limit)
	for i := 0; i < limit; i++ {
		peers = append(peers, PeerMetric{
			Symbol:    fmt.Sprintf("%s-PEER%d", symbol, i+1),
			PERatio:   15 + 2*float64(i),
			PBRatio:   2 + 0.3*float64(i),
			MarketCap: (50 + 10*float64(i)) * 1e9,
		})
	}
	return &PeerComparison{
		Symbol: symbol,
		Peers:  peers,
		Source: "stub:peers",
		AsOf:   s.now(),
	}, nil
}

func (s *StubProviders) Collect(ctx context.Context, query string, limit int) (*NewsDigest, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	now := s.now()
	items := make([]NewsItem, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, NewsItem{
			Title:       fmt.Sprintf("Headline %d for %s", i+1, query),
			Summary:     fmt.Sprintf("Synthetic coverage item %d about %s.", i+1, query),
			URL:         fmt.Sprintf("https://news.example.com/%s/%d", query, i+1),
			PublishedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return &NewsDigest{
		Query:  query,
		Items:  items,
		Source: "stub:news",
		AsOf:   now,
	}, nil
}

func (s *StubProviders) Search(ctx context.Context, query string, limit int) (*SearchDigest, error) {
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	results := make([]SearchResult, 0, limit)
	for i := 0; i < limit; i++ {
		results = append(results, SearchResult{
			Title:   fmt.Sprintf("Result %d: %s", i+1, query),
			Snippet: fmt.Sprintf("Synthetic search snippet %d for %s.", i+1, query),
			URL:     fmt.Sprintf("https://search.example.com/%s/%d", query, i+1),
		})
	}
	return &SearchDigest{
		Query:   query,
		Results: results,
		Source:  "stub:web",
		AsOf:    s.now(),
	}, nil
}

func (s *StubProviders) FundFlow(ctx context.Context, symbol, market string) (*FundFlowReport, error) {
	base := seed(symbol)
	return &FundFlowReport{
		Symbol:     symbol,
		NetInflow:  base * 1e6,
		MainInflow: base * 6e5,
		Sectors: map[string]float64{
			"institutional": base * 4e5,
			"retail":        base * 2e5,
		},
		Source: "stub:fundflow",
		AsOf:   s.now(),
	}, nil
}
