package indicator

import (
	"math"
)

// Shared series math. EMA/RSI/MACD and the pattern/timeline scans are the
// same hand-rolled recurrences in every backend — the numeric libraries only
// differ in how summary statistics (means, extremes) are computed, keeping
// the tiers' outputs comparable.

func closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// tail returns the last n elements, or the whole slice when shorter.
func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func allFinite(bars []Bar) bool {
	for _, b := range bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// ema computes an exponential moving average series with the conventional
// 2/(n+1) smoothing factor, seeded with the first value.
func ema(xs []float64, period int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// rsi computes the Wilder-smoothed relative strength index of the last bar.
// Returns 50 when there is not enough data to form a single period.
func rsi(xs []float64, period int) float64 {
	if len(xs) < period+1 {
		return 50
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := xs[i] - xs[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macdValues returns the last MACD line, signal line and histogram values.
func macdValues(xs []float64) (macd, signal, hist float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	fast := ema(xs, macdFast)
	slow := ema(xs, macdSlow)
	line := make([]float64, len(xs))
	for i := range xs {
		line[i] = fast[i] - slow[i]
	}
	sig := ema(line, macdSignal)
	last := len(xs) - 1
	return line[last], sig[last], line[last] - sig[last]
}

// trendDirection classifies the MA stack. MA5 within flatThresholdPct of
// MA20 is "flat"; above is "up"; below is "down".
func trendDirection(ma5, ma20 float64) string {
	if ma20 == 0 {
		return "flat"
	}
	diffPct := (ma5 - ma20) / ma20 * 100
	switch {
	case diffPct > flatThresholdPct:
		return "up"
	case diffPct < -flatThresholdPct:
		return "down"
	default:
		return "flat"
	}
}

// scanPatterns counts streaks, gaps and dojis over the lookback window.
func scanPatterns(bars []Bar) PatternsSection {
	window := bars
	if len(window) > srLookback {
		window = window[len(window)-srLookback:]
	}
	var p PatternsSection
	up, down := 0, 0
	for i, b := range window {
		if i > 0 {
			prev := window[i-1]
			if b.Close > prev.Close {
				up++
				down = 0
			} else if b.Close < prev.Close {
				down++
				up = 0
			} else {
				up, down = 0, 0
			}
			if b.Low > prev.High || b.High < prev.Low {
				p.GapCount++
			}
		}
		rng := b.High - b.Low
		if rng > 0 && math.Abs(b.Close-b.Open) < rng*dojiBodyRatio {
			p.DojiCount++
		}
	}
	p.UpStreak = up
	p.DownStreak = down
	return p
}

// buildTimeline emits chronological crossing and gap signals.
func buildTimeline(bars []Bar) []Signal {
	signals := []Signal{}
	if len(bars) < maLong+1 {
		return signals
	}
	cs := closes(bars)
	for i := maLong; i < len(bars); i++ {
		prev5, cur5 := sma(cs[:i], maShort), sma(cs[:i+1], maShort)
		prev20, cur20 := sma(cs[:i], maLong), sma(cs[:i+1], maLong)
		if prev5 <= prev20 && cur5 > cur20 {
			signals = append(signals, Signal{Date: bars[i].Date, Kind: "golden_cross", Note: "MA5 crossed above MA20"})
		}
		if prev5 >= prev20 && cur5 < cur20 {
			signals = append(signals, Signal{Date: bars[i].Date, Kind: "death_cross", Note: "MA5 crossed below MA20"})
		}
		if bars[i].Low > bars[i-1].High {
			signals = append(signals, Signal{Date: bars[i].Date, Kind: "gap_up", Note: "opening gap above prior range"})
		}
		if bars[i].High < bars[i-1].Low {
			signals = append(signals, Signal{Date: bars[i].Date, Kind: "gap_down", Note: "opening gap below prior range"})
		}
	}
	return signals
}

// sma is the plain arithmetic mean of the last n values.
func sma(xs []float64, n int) float64 {
	w := tail(xs, n)
	if len(w) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}

// strategyScore folds the sections into one composite 0-100 value.
func strategyScore(trend TrendSection, momentum MomentumSection, vp VolumePriceSection) float64 {
	score := 50.0
	if trend.Last > trend.MA20 {
		score += 10
	}
	if trend.MA5 > trend.MA20 {
		score += 10
	}
	switch {
	case momentum.RSI >= 40 && momentum.RSI <= 70:
		score += 10
	case momentum.RSI > 80 || momentum.RSI < 20:
		score -= 10
	}
	if momentum.Histogram > 0 {
		score += 10
	}
	if vp.VolumeRatio > 1 {
		score += 10
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
