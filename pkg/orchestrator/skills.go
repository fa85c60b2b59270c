package orchestrator

import (
	"fmt"

	"github.com/finsight-ai/finsight/pkg/tools"
)

// Skill names.
const (
	SkillDeepAnalysis  = "deep_analysis"
	SkillBroadOverview = "broad_overview"
)

// gatherStep is one concurrent data-collection call made before the
// reasoning loop starts. Arguments is a Go template-free JSON string with
// %s/%d verbs filled from the request.
type gatherStep struct {
	topic string // context key shown to the model
	tool  string
	args  func(symbol, market string) string
}

// skill scopes the tool catalog and the initial gathering plan.
type skill struct {
	name   string
	tools  []string
	gather []gatherStep
}

var skills = map[string]skill{
	SkillDeepAnalysis: {
		name: SkillDeepAnalysis,
		tools: []string{
			tools.ToolGetPriceHistory,
			tools.ToolGetQuote,
			tools.ToolGetValuationCurve,
			tools.ToolGetFundamentals,
			tools.ToolGetFinancialReports,
			tools.ToolComparePeers,
			tools.ToolSearchNews,
			tools.ToolSearchWeb,
			tools.ToolGetFundFlow,
			tools.ToolComputeIndicators,
		},
		gather: []gatherStep{
			{
				topic: "price_daily",
				tool:  tools.ToolGetPriceHistory,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"symbol":%q,"market":%q,"period":"daily","limit":90}`, symbol, market)
				},
			},
			{
				topic: "price_weekly",
				tool:  tools.ToolGetPriceHistory,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"symbol":%q,"market":%q,"period":"weekly","limit":52}`, symbol, market)
				},
			},
			{
				topic: "fundamentals",
				tool:  tools.ToolGetFundamentals,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"symbol":%q,"market":%q}`, symbol, market)
				},
			},
			{
				topic: "news",
				tool:  tools.ToolSearchNews,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"query":%q,"limit":10}`, symbol)
				},
			},
			{
				topic: "peers",
				tool:  tools.ToolComparePeers,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"symbol":%q,"market":%q,"limit":5}`, symbol, market)
				},
			},
		},
	},
	SkillBroadOverview: {
		name: SkillBroadOverview,
		tools: []string{
			tools.ToolSearchNews,
			tools.ToolSearchWeb,
			tools.ToolGetFundFlow,
		},
		gather: []gatherStep{
			{
				topic: "news",
				tool:  tools.ToolSearchNews,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"query":%q,"limit":10}`, symbol)
				},
			},
			{
				topic: "fund_flow",
				tool:  tools.ToolGetFundFlow,
				args: func(symbol, market string) string {
					return fmt.Sprintf(`{"symbol":%q,"market":%q}`, symbol, market)
				},
			},
		},
	},
}

// lookupSkill resolves a skill by name. Unknown names fail before any data
// gathering or model work starts.
func lookupSkill(name string) (skill, error) {
	s, ok := skills[name]
	if !ok {
		return skill{}, fmt.Errorf("unknown skill %q (want %s or %s)", name, SkillDeepAnalysis, SkillBroadOverview)
	}
	return s, nil
}

// windows describes the time windows of a skill's gathering plan, included
// in the analysis input for transparency.
func (s skill) windows() map[string]string {
	w := make(map[string]string, len(s.gather))
	for _, g := range s.gather {
		switch g.topic {
		case "price_daily":
			w[g.topic] = "daily:90"
		case "price_weekly":
			w[g.topic] = "weekly:52"
		default:
			w[g.topic] = "latest"
		}
	}
	return w
}
