package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/pkg/indicator"
)

func newTestCatalog(t *testing.T) *Registry {
	t.Helper()
	stub := NewStubProviders()
	stub.Now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	r, err := NewCatalog(stub.AsProviders(), indicator.NewEngine())
	require.NoError(t, err)
	return r
}

func TestCatalogRegistersFullToolSet(t *testing.T) {
	r := newTestCatalog(t)

	want := []string{
		ToolGetPriceHistory,
		ToolGetQuote,
		ToolGetValuationCurve,
		ToolGetFundamentals,
		ToolGetFinancialReports,
		ToolComparePeers,
		ToolSearchNews,
		ToolSearchWeb,
		ToolGetFundFlow,
		ToolComputeIndicators,
	}
	defs := r.List()
	require.Len(t, defs, len(want))
	for i, name := range want {
		require.Equal(t, name, defs[i].Name)
	}
}

func TestCatalogToolsReturnTaggedPayloads(t *testing.T) {
	r := newTestCatalog(t)

	tests := []struct {
		tool string
		args string
	}{
		{ToolGetPriceHistory, `{"symbol":"ACME","period":"daily","limit":30}`},
		{ToolGetQuote, `{"symbol":"ACME"}`},
		{ToolGetValuationCurve, `{"symbol":"ACME","curve":"pe_band"}`},
		{ToolGetFundamentals, `{"symbol":"ACME"}`},
		{ToolGetFinancialReports, `{"symbol":"ACME","period":"quarterly"}`},
		{ToolComparePeers, `{"symbol":"ACME","limit":3}`},
		{ToolSearchNews, `{"query":"ACME","limit":5}`},
		{ToolSearchWeb, `{"query":"ACME outlook"}`},
		{ToolGetFundFlow, `{"symbol":"ACME"}`},
		{ToolComputeIndicators, `{"symbol":"ACME","limit":90}`},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			call := r.Execute(context.Background(), tt.tool, tt.args)
			require.False(t, call.IsError, call.ErrorMessage)
			require.NotEmpty(t, call.Source)
			require.False(t, call.AsOf.IsZero())

			var payload Payload
			require.NoError(t, json.Unmarshal([]byte(call.Result), &payload))
			require.NotEmpty(t, payload.Data)
		})
	}
}

func TestComputeIndicatorsPayloadHasAllSections(t *testing.T) {
	r := newTestCatalog(t)

	call := r.Execute(context.Background(), ToolComputeIndicators, `{"symbol":"ACME","limit":90}`)
	require.False(t, call.IsError, call.ErrorMessage)

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(call.Result), &payload))
	for _, section := range []string{"trend", "momentum", "volume_price", "patterns", "support_resistance", "strategy_score", "signal_timeline"} {
		require.Contains(t, payload.Data, section)
	}
}

func TestStubProvidersAreDeterministic(t *testing.T) {
	fixed := func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	a := NewStubProviders()
	a.Now = fixed
	b := NewStubProviders()
	b.Now = fixed

	ka, err := a.GetKline(context.Background(), "ACME", "US", "daily", 60)
	require.NoError(t, err)
	kb, err := b.GetKline(context.Background(), "ACME", "US", "daily", 60)
	require.NoError(t, err)
	require.Equal(t, ka, kb)

	other, err := a.GetKline(context.Background(), "ZETA", "US", "daily", 60)
	require.NoError(t, err)
	require.NotEqual(t, ka.Bars[0].Close, other.Bars[0].Close, "different symbols get different series")
}
