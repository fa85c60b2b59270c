package indicator

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// statsBackend is the secondary tier, built on montanaflynn/stats. Less
// demanding than the gonum tier but still refuses non-finite input.
type statsBackend struct{}

func (s *statsBackend) name() string { return "stats" }

func (s *statsBackend) compute(bars []Bar) (*Bundle, error) {
	if len(bars) < rsiPeriod+1 {
		return nil, fmt.Errorf("need at least %d bars, got %d", rsiPeriod+1, len(bars))
	}
	if !allFinite(bars) {
		return nil, errors.New("bars contain non-finite values")
	}

	cs := closes(bars)
	vs := volumes(bars)
	last := cs[len(cs)-1]

	ma5, err := stats.Mean(tail(cs, maShort))
	if err != nil {
		return nil, fmt.Errorf("ma5: %w", err)
	}
	ma10, err := stats.Mean(tail(cs, maMedium))
	if err != nil {
		return nil, fmt.Errorf("ma10: %w", err)
	}
	ma20, err := stats.Mean(tail(cs, maLong))
	if err != nil {
		return nil, fmt.Errorf("ma20: %w", err)
	}
	ma60, err := stats.Mean(tail(cs, maTrend))
	if err != nil {
		return nil, fmt.Errorf("ma60: %w", err)
	}

	trend := TrendSection{MA5: ma5, MA10: ma10, MA20: ma20, MA60: ma60, Last: last}
	trend.Direction = trendDirection(trend.MA5, trend.MA20)

	macd, signal, hist := macdValues(cs)
	momentum := MomentumSection{
		RSI:       rsi(cs, rsiPeriod),
		MACD:      macd,
		Signal:    signal,
		Histogram: hist,
	}

	avgVol, err := stats.Mean(tail(vs, srLookback))
	if err != nil {
		return nil, fmt.Errorf("avg volume: %w", err)
	}
	vp := VolumePriceSection{AvgVolume: avgVol}
	if avgVol > 0 {
		vp.VolumeRatio = vs[len(vs)-1] / avgVol
	}
	if len(cs) > 1 && cs[len(cs)-2] != 0 {
		vp.ChangePct = (last - cs[len(cs)-2]) / cs[len(cs)-2] * 100
	}

	window := bars[len(bars)-min(srLookback, len(bars)):]
	lows := make(stats.Float64Data, 0, len(window))
	highs := make(stats.Float64Data, 0, len(window))
	for _, b := range window {
		lows = append(lows, b.Low)
		highs = append(highs, b.High)
	}
	support, err := stats.Min(lows)
	if err != nil {
		return nil, fmt.Errorf("support: %w", err)
	}
	resistance, err := stats.Max(highs)
	if err != nil {
		return nil, fmt.Errorf("resistance: %w", err)
	}

	return &Bundle{
		Trend:             trend,
		Momentum:          momentum,
		VolumePrice:       vp,
		Patterns:          scanPatterns(bars),
		SupportResistance: SupportResistanceSection{Support: support, Resistance: resistance},
		StrategyScore:     strategyScore(trend, momentum, vp),
		SignalTimeline:    buildTimeline(bars),
	}, nil
}
