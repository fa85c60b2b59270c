package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finsight-ai/finsight/pkg/agent"
	"github.com/finsight-ai/finsight/pkg/indicator"
)

// Providers bundles the external data collaborators the catalog is built on.
type Providers struct {
	Market       MarketDataProvider
	Fundamentals FundamentalsProvider
	News         NewsProvider
	Web          WebSearchProvider
	FundFlow     FundFlowProvider
}

// Tool names as exposed to the model.
const (
	ToolGetPriceHistory     = "get_price_history"
	ToolGetQuote            = "get_quote"
	ToolGetValuationCurve   = "get_valuation_curve"
	ToolGetFundamentals     = "get_fundamentals"
	ToolGetFinancialReports = "get_financial_reports"
	ToolComparePeers        = "compare_peers"
	ToolSearchNews          = "search_news"
	ToolSearchWeb           = "search_web"
	ToolGetFundFlow         = "get_fund_flow"
	ToolComputeIndicators   = "compute_indicators"
)

// NewCatalog builds a registry with the full built-in tool set. Every
// executor wraps one provider call and tags the payload with the provider's
// source and as-of timestamp.
func NewCatalog(p Providers, engine *indicator.Engine) (*Registry, error) {
	r := NewRegistry()

	register := func(def agent.ToolDefinition, fn ExecutorFunc) error {
		return r.Register(def, fn)
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetPriceHistory,
		Description: "Fetch OHLCV price history for a symbol over a period window.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"},
				"period": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 500}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		series, err := p.Market.GetKline(ctx,
			strArg(args, "symbol", ""),
			strArg(args, "market", ""),
			strArg(args, "period", "daily"),
			intArg(args, "limit", 90))
		if err != nil {
			return nil, fmt.Errorf("price history: %w", err)
		}
		return payloadFrom(series.Source, series, series.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetQuote,
		Description: "Fetch the latest quote snapshot for a symbol.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		quote, err := p.Market.GetQuote(ctx, strArg(args, "symbol", ""), strArg(args, "market", ""))
		if err != nil {
			return nil, fmt.Errorf("quote: %w", err)
		}
		return payloadFrom(quote.Source, quote, quote.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetValuationCurve,
		Description: "Fetch a named valuation or rate curve for a symbol.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"},
				"curve": {"type": "string"}
			},
			"required": ["symbol", "curve"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol", "curve"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		curve, err := p.Market.GetCurve(ctx,
			strArg(args, "symbol", ""),
			strArg(args, "market", ""),
			strArg(args, "curve", ""))
		if err != nil {
			return nil, fmt.Errorf("valuation curve: %w", err)
		}
		return payloadFrom(curve.Source, curve, curve.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetFundamentals,
		Description: "Fetch headline fundamental metrics (PE, PB, ROE, EPS, market cap).",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		f, err := p.Fundamentals.Fundamentals(ctx, strArg(args, "symbol", ""), strArg(args, "market", ""))
		if err != nil {
			return nil, fmt.Errorf("fundamentals: %w", err)
		}
		return payloadFrom(f.Source, f, f.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetFinancialReports,
		Description: "Fetch periodic financial report summaries (revenue, net income, margins).",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"},
				"period": {"type": "string", "enum": ["annual", "quarterly"]}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		d, err := p.Fundamentals.FinancialReports(ctx,
			strArg(args, "symbol", ""),
			strArg(args, "market", ""),
			strArg(args, "period", "quarterly"))
		if err != nil {
			return nil, fmt.Errorf("financial reports: %w", err)
		}
		return payloadFrom(d.Source, d, d.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolComparePeers,
		Description: "Compare valuation metrics against comparable companies.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 20}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		pc, err := p.Fundamentals.Peers(ctx,
			strArg(args, "symbol", ""),
			strArg(args, "market", ""),
			intArg(args, "limit", 5))
		if err != nil {
			return nil, fmt.Errorf("peers: %w", err)
		}
		return payloadFrom(pc.Source, pc, pc.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolSearchNews,
		Description: "Collect recent news items matching a query.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50}
			},
			"required": ["query"],
			"additionalProperties": false
		}`,
		Required: []string{"query"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		d, err := p.News.Collect(ctx, strArg(args, "query", ""), intArg(args, "limit", 10))
		if err != nil {
			return nil, fmt.Errorf("news: %w", err)
		}
		return payloadFrom(d.Source, d, d.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolSearchWeb,
		Description: "Run a general web search and return result snippets.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 20}
			},
			"required": ["query"],
			"additionalProperties": false
		}`,
		Required: []string{"query"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		d, err := p.Web.Search(ctx, strArg(args, "query", ""), intArg(args, "limit", 5))
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}
		return payloadFrom(d.Source, d, d.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolGetFundFlow,
		Description: "Fetch fund-flow and macro figures for a symbol.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		f, err := p.FundFlow.FundFlow(ctx, strArg(args, "symbol", ""), strArg(args, "market", ""))
		if err != nil {
			return nil, fmt.Errorf("fund flow: %w", err)
		}
		return payloadFrom(f.Source, f, f.AsOf)
	}); err != nil {
		return nil, err
	}

	if err := register(agent.ToolDefinition{
		Name:        ToolComputeIndicators,
		Description: "Compute the technical indicator bundle (trend, momentum, volume-price, patterns, support/resistance, strategy score, signal timeline) from price history.",
		ParametersSchema: `{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"market": {"type": "string"},
				"period": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 500}
			},
			"required": ["symbol"],
			"additionalProperties": false
		}`,
		Required: []string{"symbol"},
	}, func(ctx context.Context, args map[string]any) (*Payload, error) {
		series, err := p.Market.GetKline(ctx,
			strArg(args, "symbol", ""),
			strArg(args, "market", ""),
			strArg(args, "period", "daily"),
			intArg(args, "limit", 90))
		if err != nil {
			return nil, fmt.Errorf("price history for indicators: %w", err)
		}
		bundle, err := engine.Compute(series.Bars)
		if err != nil {
			return nil, fmt.Errorf("indicators: %w", err)
		}
		return payloadFrom("indicator-engine/"+series.Source, bundle, series.AsOf)
	}); err != nil {
		return nil, err
	}

	return r, nil
}

// payloadFrom wraps a provider result as a tagged payload. The result is
// flattened to a generic map so the registry can serialize it uniformly.
func payloadFrom(source string, v any, asOf time.Time) (*Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode provider result: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode provider result: %w", err)
	}
	return &Payload{Source: source, AsOf: asOf, Data: data}, nil
}

// strArg reads a string argument with a default.
func strArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// intArg reads an integer argument with a default. JSON numbers decode as
// float64.
func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}
