// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package bandit

import (
	"fmt"
	"strings"
)

// Decay selects how epsilon shrinks after each update.
type Decay int

const (
	// DecayNone keeps epsilon fixed.
	DecayNone Decay = iota
	// DecayLinear subtracts a fixed step.
	DecayLinear
	// DecayExponential multiplies by a fixed factor.
	DecayExponential
)

// String returns the config name of the decay.
func (d Decay) String() string {
	switch d {
	case DecayNone:
		return "none"
	case DecayLinear:
		return "linear"
	case DecayExponential:
		return "exponential"
	default:
		return fmt.Sprintf("decay(%d)", int(d))
	}
}

// ParseDecay parses "none", "linear" or "exponential". An empty string is "none".
func ParseDecay(s string) (Decay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DecayNone, nil
	case "linear":
		return DecayLinear, nil
	case "exponential":
		return DecayExponential, nil
	default:
		return DecayNone, fmt.Errorf("unknown decay %q (expected none, linear or exponential)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Decay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decay) UnmarshalText(text []byte) error {
	parsed, err := ParseDecay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
