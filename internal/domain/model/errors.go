package model

import "errors"

// ErrNoTicks indicates the market data source returned no price series for a symbol.
var ErrNoTicks = errors.New("no tick data")

// ErrNonPositiveOpen indicates a candle whose open price cannot anchor a range percentage.
var ErrNonPositiveOpen = errors.New("non-positive open price")
