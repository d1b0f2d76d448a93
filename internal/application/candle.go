package application

import (
	"time"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// Shadow multipliers that separate a gravestone doji from a plain doji.
const (
	gravestoneMaxLowerShadow = 1.5
	gravestoneMinUpperShadow = 2.0
)

// AggregateWindow folds the ticks whose wall-clock time falls in
// [start, start+width) into a single OHLC candle. Ticks must be in
// chronological order. It returns false when no tick falls inside the window.
func AggregateWindow(ticks []model.Tick, start time.Time, width time.Duration) (model.Candle, bool) {
	end := start.Add(width)
	candle := model.Candle{WindowStart: start, WindowEnd: end}

	for _, tick := range ticks {
		if tick.At.Before(start) || !tick.At.Before(end) {
			continue
		}

		if candle.Ticks == 0 {
			candle.Open = tick.Price
			candle.High = tick.Price
			candle.Low = tick.Price
		}
		candle.High = max(candle.High, tick.Price)
		candle.Low = min(candle.Low, tick.Price)
		candle.Close = tick.Price
		candle.Ticks++
	}

	return candle, candle.Ticks > 0
}

// ClassifyDoji reports whether the candle is a doji: a body no larger than
// bodyRatio of its range. A doji with a short lower shadow and a long upper
// shadow is a gravestone doji. Candles with a non-positive range never match.
func ClassifyDoji(c model.Candle, bodyRatio float64) (model.Pattern, bool) {
	rng := c.Range()
	if rng <= 0 {
		return "", false
	}

	body := c.Body()
	if body/rng > bodyRatio {
		return "", false
	}

	if c.LowerShadow() <= body*gravestoneMaxLowerShadow && c.UpperShadow() >= body*gravestoneMinUpperShadow {
		return model.PatternGravestoneDoji, true
	}
	return model.PatternDoji, true
}
