package model

import "time"

// Candle is the OHLC aggregate of the ticks inside one window.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64

	WindowStart time.Time
	WindowEnd   time.Time
	Ticks       int
}

// Body returns the absolute distance between open and close.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// RangePercent returns the candle range as a percentage of the open price.
// Returns 0 when the open price is not positive; such candles are never matched.
func (c Candle) RangePercent() float64 {
	if c.Open <= 0 {
		return 0
	}
	return c.Range() / c.Open * 100
}

// UpperShadow returns the distance from the top of the body to the high.
func (c Candle) UpperShadow() float64 {
	return c.High - max(c.Open, c.Close)
}

// LowerShadow returns the distance from the low to the bottom of the body.
func (c Candle) LowerShadow() float64 {
	return min(c.Open, c.Close) - c.Low
}
