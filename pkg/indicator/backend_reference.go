package indicator

import "math"

// referenceBackend is the last tier: plain loops, no dependencies, and it
// accepts anything — non-finite values are repaired and an empty series
// yields a zero-valued but structurally complete bundle.
type referenceBackend struct{}

func (r *referenceBackend) name() string { return "reference" }

func (r *referenceBackend) compute(bars []Bar) (*Bundle, error) {
	bars = sanitize(bars)
	if len(bars) == 0 {
		return &Bundle{
			Trend:          TrendSection{Direction: "flat"},
			Momentum:       MomentumSection{RSI: 50},
			StrategyScore:  50,
			SignalTimeline: []Signal{},
		}, nil
	}

	cs := closes(bars)
	vs := volumes(bars)
	last := cs[len(cs)-1]

	trend := TrendSection{
		MA5:  sma(cs, maShort),
		MA10: sma(cs, maMedium),
		MA20: sma(cs, maLong),
		MA60: sma(cs, maTrend),
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

	avgVol := sma(vs, srLookback)
	vp := VolumePriceSection{AvgVolume: avgVol}
	if avgVol > 0 {
		vp.VolumeRatio = vs[len(vs)-1] / avgVol
	}
	if len(cs) > 1 && cs[len(cs)-2] != 0 {
		vp.ChangePct = (last - cs[len(cs)-2]) / cs[len(cs)-2] * 100
	}

	window := bars[len(bars)-min(srLookback, len(bars)):]
	sr := SupportResistanceSection{Support: window[0].Low, Resistance: window[0].High}
	for _, b := range window {
		if b.Low < sr.Support {
			sr.Support = b.Low
		}
		if b.High > sr.Resistance {
			sr.Resistance = b.High
		}
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

// sanitize replaces non-finite values with the previous bar's close (or zero
// for a broken first bar) so downstream loops stay well-defined.
func sanitize(bars []Bar) []Bar {
	clean := make([]Bar, len(bars))
	prevClose := 0.0
	for i, b := range bars {
		fix := func(v float64) float64 {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return prevClose
			}
			return v
		}
		clean[i] = Bar{
			Date:   b.Date,
			Open:   fix(b.Open),
			High:   fix(b.High),
			Low:    fix(b.Low),
			Close:  fix(b.Close),
			Volume: fix(b.Volume),
		}
		prevClose = clean[i].Close
	}
	return clean
}
