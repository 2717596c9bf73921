package model

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Timeframe is a bar period recognized by the scanner.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

// tfMinutes maps each recognized timeframe to its bar length in minutes.
var tfMinutes = map[Timeframe]int{
	TF5m:  5,
	TF15m: 15,
	TF1h:  60,
	TF1d:  1440,
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.TrimSpace(s))
	if _, ok := tfMinutes[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// ParseTimeframes parses a comma-separated timeframe list, skipping
// invalid entries with a warning. Returns nil if nothing valid remains.
func ParseTimeframes(s string) []Timeframe {
	var out []Timeframe
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tf, err := ParseTimeframe(p)
		if err != nil {
			log.Printf("[model] skipping invalid timeframe %q", p)
			continue
		}
		out = append(out, tf)
	}
	return out
}

// Minutes returns the bar length in minutes (0 for unknown timeframes).
func (tf Timeframe) Minutes() int {
	return tfMinutes[tf]
}

// Duration returns the bar length as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tfMinutes[tf]) * time.Minute
}

// Valid reports whether tf is one of the recognized timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := tfMinutes[tf]
	return ok
}

func (tf Timeframe) String() string { return string(tf) }
