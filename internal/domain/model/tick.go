package model

import "time"

// Tick is a single traded price observation. At carries the exchange wall-clock
// time in the exchange's location.
type Tick struct {
	At    time.Time
	Price float64
}
