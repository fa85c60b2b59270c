package indicator

// Smoothing-window and tie-break conventions shared by all three backends.
// Fixed constants so the tiers produce comparable output for the same input.
const (
	maShort  = 5
	maMedium = 10
	maLong   = 20
	maTrend  = 60

	rsiPeriod = 14

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// srLookback bounds support/resistance, volume and pattern scans.
	srLookback = 20

	// dojiBodyRatio: a candle whose body is below this fraction of its range
	// counts as a doji.
	dojiBodyRatio = 0.1

	// flatThresholdPct: MA5 within this percentage of MA20 reads as "flat".
	flatThresholdPct = 0.2
)
