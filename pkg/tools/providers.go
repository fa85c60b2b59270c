// Package tools implements the tool registry and the built-in executor
// catalog: price history, quotes, fundamentals, financial reports, news and
// web search, peer comparison, fund-flow/macro data and indicator
// computation. Providers are external collaborators — the registry only
// requires that their data arrives tagged with a source and an as-of
// timestamp, or fails explicitly.
package tools

import (
	"context"
	"time"

	"github.com/finsight-ai/finsight/pkg/indicator"
)

// MarketDataProvider supplies price series, quotes and valuation curves.
type MarketDataProvider interface {
	GetKline(ctx context.Context, symbol, market, period string, limit int) (*KlineSeries, error)
	GetQuote(ctx context.Context, symbol, market string) (*Quote, error)
	GetCurve(ctx context.Context, symbol, market, curve string) (*Curve, error)
}

// FundamentalsProvider supplies company fundamentals, reports and peers.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol, market string) (*Fundamentals, error)
	FinancialReports(ctx context.Context, symbol, market, period string) (*ReportDigest, error)
	Peers(ctx context.Context, symbol, market string, limit int) (*PeerComparison, error)
}

// NewsProvider collects recent news for a query.
type NewsProvider interface {
	Collect(ctx context.Context, query string, limit int) (*NewsDigest, error)
}

// WebSearchProvider runs a general web search.
type WebSearchProvider interface {
	Search(ctx context.Context, query string, limit int) (*SearchDigest, error)
}

// FundFlowProvider collects fund-flow and macro data for a symbol.
type FundFlowProvider interface {
	FundFlow(ctx context.Context, symbol, market string) (*FundFlowReport, error)
}

// KlineSeries is a price-history window.
type KlineSeries struct {
	Symbol string          `json:"symbol"`
	Market string          `json:"market"`
	Period string          `json:"period"` // "daily", "weekly" or "monthly"
	Bars   []indicator.Bar `json:"bars"`
	Source string          `json:"source"`
	AsOf   time.Time       `json:"as_of"`
}

// Quote is a real-time (or last-session) snapshot.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	PERatio   float64   `json:"pe_ratio"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"source"`
	AsOf      time.Time `json:"as_of"`
}

// Curve is a named valuation or rate curve.
type Curve struct {
	Name   string       `json:"name"`
	Points []CurvePoint `json:"points"`
	Source string       `json:"source"`
	AsOf   time.Time    `json:"as_of"`
}

// CurvePoint is one dated value of a curve.
type CurvePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Fundamentals carries headline company metrics.
type Fundamentals struct {
	Symbol    string    `json:"symbol"`
	PERatio   float64   `json:"pe_ratio"`
	PBRatio   float64   `json:"pb_ratio"`
	ROE       float64   `json:"roe"`
	EPS       float64   `json:"eps"`
	MarketCap float64   `json:"market_cap"`
	Source    string    `json:"source"`
	AsOf      time.Time `json:"as_of"`
}

// ReportDigest is a set of periodic financial reports.
type ReportDigest struct {
	Symbol  string            `json:"symbol"`
	Reports []FinancialReport `json:"reports"`
	Source  string            `json:"source"`
	AsOf    time.Time         `json:"as_of"`
}

// FinancialReport summarizes one reporting period.
type FinancialReport struct {
	Period      string  `json:"period"`
	Revenue     float64 `json:"revenue"`
	NetIncome   float64 `json:"net_income"`
	GrossMargin float64 `json:"gross_margin"`
}

// PeerComparison holds metrics for comparable companies.
type PeerComparison struct {
	Symbol string       `json:"symbol"`
	Peers  []PeerMetric `json:"peers"`
	Source string       `json:"source"`
	AsOf   time.Time    `json:"as_of"`
}

// PeerMetric is one peer's valuation snapshot.
type PeerMetric struct {
	Symbol    string  `json:"symbol"`
	PERatio   float64 `json:"pe_ratio"`
	PBRatio   float64 `json:"pb_ratio"`
	MarketCap float64 `json:"market_cap"`
}

// NewsDigest is a batch of collected news items.
type NewsDigest struct {
	Query  string     `json:"query"`
	Items  []NewsItem `json:"items"`
	Source string     `json:"source"`
	AsOf   time.Time  `json:"as_of"`
}

// NewsItem is one news entry.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SearchDigest is a batch of web search results.
type SearchDigest struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Source  string         `json:"source"`
	AsOf    time.Time      `json:"as_of"`
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// FundFlowReport carries fund-flow and macro figures for a symbol.
type FundFlowReport struct {
	Symbol     string             `json:"symbol"`
	NetInflow  float64            `json:"net_inflow"`
	MainInflow float64            `json:"main_inflow"`
	Sectors    map[string]float64 `json:"sectors"`
	Source     string             `json:"source"`
	AsOf       time.Time          `json:"as_of"`
}
