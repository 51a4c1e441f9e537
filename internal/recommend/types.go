// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// ArmMemory controls whether bandit arms survive across Recommend calls.
type ArmMemory int

const (
	// ArmMemoryPerRequest starts every call with a fresh seeded selector.
	ArmMemoryPerRequest ArmMemory = iota
	// ArmMemoryAccumulate keeps one selector per user for the engine lifetime.
	ArmMemoryAccumulate
)

// String returns the config name of the mode.
func (m ArmMemory) String() string {
	switch m {
	case ArmMemoryPerRequest:
		return "per_request"
	case ArmMemoryAccumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("arm_memory(%d)", int(m))
	}
}

// ParseArmMemory parses "per_request" or "accumulate". An empty string is "per_request".
func ParseArmMemory(s string) (ArmMemory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_request":
		return ArmMemoryPerRequest, nil
	case "accumulate":
		return ArmMemoryAccumulate, nil
	default:
		return ArmMemoryPerRequest, fmt.Errorf("unknown arm memory %q (expected per_request or accumulate)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ArmMemory) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ArmMemory) UnmarshalText(text []byte) error {
	parsed, err := ParseArmMemory(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Request asks for the top K items for one user. K <= 0 means the
// configured default.
type Request struct {
	UserID int `json:"user_id"`
	K      int `json:"k"`
}

// ScoredItem is one ranked recommendation.
type ScoredItem struct {
	ItemID       int     `json:"item_id"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`         // learned arm value
	ContentScore float64 `json:"content_score"` // genre/enrichment affinity
	Pulls        int     `json:"pulls"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	RequestID  string        `json:"request_id"`
	UserID     int           `json:"user_id"`
	K          int           `json:"k"`
	Epsilon    float64       `json:"epsilon"`
	Candidates int           `json:"candidates"`
	ArmMemory  string        `json:"arm_memory"`
	Latency    time.Duration `json:"latency_ns"`
}

// Response is a ranked list plus metadata. Items is never nil.
type Response struct {
	Items    []ScoredItem     `json:"items"`
	Metadata ResponseMetadata `json:"metadata"`
}
