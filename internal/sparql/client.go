// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package sparql is a client for the film lookup against a SPARQL endpoint
// such as DBpedia.
//
// Lookup sends one query for a batch of titles and returns the enrichment
// found for each title. HTTP 429 is reported as ErrRateLimited so callers can
// retry; every other failure is final for that request.
package sparql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/models"
)

// DefaultEndpoint is the public DBpedia SPARQL endpoint.
const DefaultEndpoint = "https://dbpedia.org/sparql"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "filminsight/1.0 (+https://github.com/tomtom215/filminsight)"
	resultsMediaType = "application/sparql-results+json"

	// maxResponseBytes bounds how much of a response body is decoded.
	maxResponseBytes = 32 << 20
	// maxErrorBody bounds how much of an error body is kept for logging.
	maxErrorBody = 512
)

// ErrRateLimited is returned when the endpoint answers HTTP 429.
var ErrRateLimited = errors.New("sparql: rate limited")

// StatusError is returned for non-200 responses other than 429.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sparql: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("sparql: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client queries a SPARQL endpoint for film metadata.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	breaker    *breaker
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCircuitBreaker wraps every request in a circuit breaker named name.
// Rate-limit responses do not count as failures.
func WithCircuitBreaker(name string) Option {
	return func(c *Client) {
		c.breaker = newBreaker(name, c.logger)
	}
}

// NewClient creates a client for endpoint. An empty endpoint selects DefaultEndpoint.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(endpoint string, logger zerolog.Logger, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With().Str("component", "sparql").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BreakerState returns the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.state()
}

// Lookup resolves titles in one request. The result is keyed by the title as
// given; titles the graph does not know are absent from it.
func (c *Client) Lookup(ctx context.Context, titles []string) (map[string]models.Enrichment, error) {
	if len(titles) == 0 {
		return map[string]models.Enrichment{}, nil
	}
	if c.breaker == nil {
		return c.lookup(ctx, titles)
	}
	return c.breaker.execute(func() (map[string]models.Enrichment, error) {
		return c.lookup(ctx, titles)
	})
}

func (c *Client) lookup(ctx context.Context, titles []string) (map[string]models.Enrichment, error) {
	form := url.Values{}
	form.Set("query", BuildLabelQuery(titles))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Int("titles", len(titles)).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("sparql request complete")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var doc resultsDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}

	found := fold(&doc)
	result := make(map[string]models.Enrichment, len(found))
	for _, t := range titles {
		if e, ok := found[t]; ok {
			result[t] = e
		}
	}
	return result, nil
}
