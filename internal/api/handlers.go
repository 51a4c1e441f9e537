// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/enrich"
	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/recommend"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 16
)

// Enrichment lookup states reported by GetEnrichment.
const (
	EnrichmentEnriched   = "enriched"
	EnrichmentNoResult   = "no_result"
	EnrichmentNotQueried = "not_queried"
)

// CacheReader is the read side of the enrichment cache.
type CacheReader interface {
	Lookup(title string) (models.Record, bool)
	Len() int
}

// RefreshTrigger schedules background enrichment runs.
type RefreshTrigger interface {
	// Trigger requests a run. It returns false if one is already pending.
	Trigger() bool
	Status() enrich.RefreshStatus
}

// BreakerReporter reports the knowledge-graph circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// Handler serves the FilmInsight HTTP API.
type Handler struct {
	engine    *recommend.Engine
	cache     CacheReader
	refresher RefreshTrigger
	breaker   BreakerReporter
	logger    zerolog.Logger
	started   time.Time
}

// NewHandler creates a Handler. refresher and breaker may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine *recommend.Engine, cache CacheReader, refresher RefreshTrigger, breaker BreakerReporter, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		cache:     cache,
		refresher: refresher,
		breaker:   breaker,
		logger:    logger.With().Str("component", "api").Logger(),
		started:   time.Now(),
	}
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status       string  `json:"status"`
	Items        int     `json:"items"`
	CachedTitles int     `json:"cached_titles"`
	Breaker      string  `json:"breaker"`
	Uptime       float64 `json:"uptime_seconds"`
}

// Health handles GET /api/v1/health. An open circuit breaker degrades the
// service but ranking keeps working from the cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := HealthResponse{
		Status:  "healthy",
		Items:   len(h.engine.Items()),
		Breaker: "disabled",
		Uptime:  time.Since(h.started).Seconds(),
	}
	if h.cache != nil {
		resp.CachedTitles = h.cache.Len()
	}
	if h.breaker != nil {
		resp.Breaker = h.breaker.BreakerState()
		if resp.Breaker == "open" {
			resp.Status = "degraded"
		}
	}
	respondSuccess(w, r, http.StatusOK, resp, start)
}

// GetRecommendations handles GET /api/v1/recommendations/user/{userID}?k=
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", nil)
		return
	}

	k := 0
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		k, err = strconv.Atoi(kStr)
		if err != nil || k <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_K", "k must be a positive integer", nil)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.Recommend(ctx, recommend.Request{UserID: userID, K: k})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to generate recommendations", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, resp, start)
}

// FeedbackRequest is the body of POST /api/v1/recommendations/feedback.
type FeedbackRequest struct {
	UserID int      `json:"user_id" validate:"gte=0"`
	ItemID int      `json:"item_id" validate:"gt=0"`
	Reward *float64 `json:"reward" validate:"required"`
}

// PostFeedback handles POST /api/v1/recommendations/feedback. It is only
// available when arms accumulate across requests.
func (h *Handler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON object", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	err := h.engine.Feedback(req.UserID, req.ItemID, *req.Reward)
	switch {
	case errors.Is(err, recommend.ErrArmMemoryDisabled):
		respondError(w, http.StatusConflict, "CONFLICT", "Feedback requires arm_memory=accumulate", nil)
		return
	case errors.Is(err, recommend.ErrUnknownItem):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown item", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record feedback", err)
		return
	}

	logger := logging.FromContext(r.Context(), h.logger)
	logger.Debug().
		Int("user_id", req.UserID).
		Int("item_id", req.ItemID).
		Msg("feedback accepted")

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"user_id": req.UserID,
		"item_id": req.ItemID,
		"reward":  *req.Reward,
	}, start)
}

// EnrichmentResponse is the body of GET /api/v1/enrichment/{movieID}.
type EnrichmentResponse struct {
	MovieID    int                `json:"movie_id"`
	Title      string             `json:"title"`
	State      string             `json:"state"`
	Enrichment *models.Enrichment `json:"enrichment,omitempty"`
}

// GetEnrichment handles GET /api/v1/enrichment/{movieID}.
func (h *Handler) GetEnrichment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	movieID, err := strconv.Atoi(chi.URLParam(r, "movieID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_MOVIE_ID", "Invalid movie ID", nil)
		return
	}
	item, ok := h.engine.Item(movieID)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown movie", nil)
		return
	}

	resp := EnrichmentResponse{MovieID: item.ID, Title: item.Title, State: EnrichmentNotQueried}
	if h.cache != nil {
		if rec, found := h.cache.Lookup(item.Title); found {
			if rec.IsNoResult() {
				resp.State = EnrichmentNoResult
			} else {
				resp.State = EnrichmentEnriched
				resp.Enrichment = rec.Enrichment
			}
		}
	}
	respondSuccess(w, r, http.StatusOK, resp, start)
}

// PostRefresh handles POST /api/v1/enrichment/refresh. The run happens in
// the background; 202 means it was scheduled.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.refresher == nil {
		respondError(w, http.StatusServiceUnavailable, "REFRESH_UNAVAILABLE", "Enrichment refresh is not running", nil)
		return
	}
	if !h.refresher.Trigger() {
		respondError(w, http.StatusConflict, "CONFLICT", "A refresh is already pending", nil)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, map[string]string{"refresh": "scheduled"}, start)
}

// GetRefreshStatus handles GET /api/v1/enrichment/refresh.
func (h *Handler) GetRefreshStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.refresher == nil {
		respondError(w, http.StatusServiceUnavailable, "REFRESH_UNAVAILABLE", "Enrichment refresh is not running", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.refresher.Status(), start)
}
