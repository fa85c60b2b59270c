// Package indicator computes technical-analysis bundles from OHLCV bars.
// Three backends share one output shape: a gonum-based backend (preferred),
// a montanaflynn/stats backend (secondary), and a hand-written reference
// algorithm that always succeeds. The engine tries them in order and returns
// the first result — callers never see which tier serviced the call.
package indicator

import "time"

// Bar is one OHLCV candle. Bars are expected in ascending date order.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bundle is the uniform output of every backend: the same six sections plus
// a composite strategy score, regardless of which tier produced them.
type Bundle struct {
	Trend             TrendSection             `json:"trend"`
	Momentum          MomentumSection          `json:"momentum"`
	VolumePrice       VolumePriceSection       `json:"volume_price"`
	Patterns          PatternsSection          `json:"patterns"`
	SupportResistance SupportResistanceSection `json:"support_resistance"`
	StrategyScore     float64                  `json:"strategy_score"`
	SignalTimeline    []Signal                 `json:"signal_timeline"`
}

// TrendSection carries the moving-average stack and its direction.
type TrendSection struct {
	MA5       float64 `json:"ma5"`
	MA10      float64 `json:"ma10"`
	MA20      float64 `json:"ma20"`
	MA60      float64 `json:"ma60"`
	Last      float64 `json:"last"`
	Direction string  `json:"direction"` // "up", "down" or "flat"
}

// MomentumSection carries RSI and MACD values.
type MomentumSection struct {
	RSI       float64 `json:"rsi"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// VolumePriceSection relates recent volume to price movement.
type VolumePriceSection struct {
	AvgVolume   float64 `json:"avg_volume"`
	VolumeRatio float64 `json:"volume_ratio"` // last volume / average volume
	ChangePct   float64 `json:"change_pct"`   // last close vs previous close
}

// PatternsSection counts simple candlestick structures over the lookback.
type PatternsSection struct {
	UpStreak   int `json:"up_streak"`
	DownStreak int `json:"down_streak"`
	GapCount   int `json:"gap_count"`
	DojiCount  int `json:"doji_count"`
}

// SupportResistanceSection carries the lookback extremes.
type SupportResistanceSection struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// Signal is one entry of the chronological signal timeline.
type Signal struct {
	Date time.Time `json:"date"`
	Kind string    `json:"kind"` // "golden_cross", "death_cross", "gap_up", "gap_down"
	Note string    `json:"note"`
}
