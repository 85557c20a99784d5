package shared

import (
	"fmt"
)

const (
	// MinSeriesSize is the minimum candle history required for actively
	// traded sub-daily intervals.
	MinSeriesSize = 200
	// MinSwingSeriesSize is the minimum candle history required for daily
	// swing data.
	MinSwingSeriesSize = 40
)

// Interval represents a candle interval supported by the exchange.
type Interval int

const (
	OneMinute Interval = iota
	FiveMinute
	FifteenMinute
	ThirtyMinute
	SixtyMinute
	FourHour
	EightHour
	TwelveHour
	OneDay
)

// String stringifies the provided interval.
func (i *Interval) String() string {
	switch *i {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case ThirtyMinute:
		return "30m"
	case SixtyMinute:
		return "60m"
	case FourHour:
		return "4h"
	case EightHour:
		return "8h"
	case TwelveHour:
		return "12h"
	case OneDay:
		return "1d"
	default:
		return "unknown"
	}
}

// ParseInterval parses an interval from the provided string.
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "30m":
		return ThirtyMinute, nil
	case "60m":
		return SixtyMinute, nil
	case "4h":
		return FourHour, nil
	case "8h":
		return EightHour, nil
	case "12h":
		return TwelveHour, nil
	case "1d":
		return OneDay, nil
	default:
		return 0, fmt.Errorf("unsupported interval: %s", s)
	}
}

// Valid reports whether the interval is one of the supported exchange intervals.
func (i *Interval) Valid() bool {
	return *i >= OneMinute && *i <= OneDay
}

// MinSize returns the minimum candle history required before the interval
// can be used for signal evaluation.
func (i *Interval) MinSize() int {
	if *i == OneDay {
		return MinSwingSeriesSize
	}

	return MinSeriesSize
}
