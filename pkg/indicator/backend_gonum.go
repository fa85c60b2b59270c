package indicator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// gonumBackend is the preferred tier. It demands the full analytics window
// and finite values; anything less falls through to the next tier.
type gonumBackend struct{}

func (g *gonumBackend) name() string { return "gonum" }

func (g *gonumBackend) compute(bars []Bar) (*Bundle, error) {
	if len(bars) < macdSlow+macdSignal {
		return nil, fmt.Errorf("need at least %d bars, got %d", macdSlow+macdSignal, len(bars))
	}
	if !allFinite(bars) {
		return nil, errors.New("bars contain non-finite values")
	}

	cs := closes(bars)
	vs := volumes(bars)
	last := cs[len(cs)-1]

	trend := TrendSection{
		MA5:  stat.Mean(tail(cs, maShort), nil),
		MA10: stat.Mean(tail(cs, maMedium), nil),
		MA20: stat.Mean(tail(cs, maLong), nil),
		MA60: stat.Mean(tail(cs, maTrend), nil),
		Last: last,
	}
	trend.Direction = trendDirection(trend.MA5, trend.MA20)

	macd, signal, hist := macdValues(cs)
	momentum := MomentumSection{
		RSI:       rsi(cs, rsiPeriod),
		MACD:      macd,
		Signal:    signal,
		Histogram: hist,
	}

	avgVol := stat.Mean(tail(vs, srLookback), nil)
	vp := VolumePriceSection{AvgVolume: avgVol}
	if avgVol > 0 {
		vp.VolumeRatio = vs[len(vs)-1] / avgVol
	}
	if len(cs) > 1 && cs[len(cs)-2] != 0 {
		vp.ChangePct = (last - cs[len(cs)-2]) / cs[len(cs)-2] * 100
	}

	lows := make([]float64, 0, srLookback)
	highs := make([]float64, 0, srLookback)
	for _, b := range bars[len(bars)-min(srLookback, len(bars)):] {
		lows = append(lows, b.Low)
		highs = append(highs, b.High)
	}
	sr := SupportResistanceSection{
		Support:    floats.Min(lows),
		Resistance: floats.Max(highs),
	}

	return &Bundle{
		Trend:             trend,
		Momentum:          momentum,
		VolumePrice:       vp,
		Patterns:          scanPatterns(bars),
		SupportResistance: sr,
		StrategyScore:     strategyScore(trend, momentum, vp),
		SignalTimeline:    buildTimeline(bars),
	}, nil
}
