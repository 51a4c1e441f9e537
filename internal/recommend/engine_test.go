// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package recommend

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/recommend/bandit"
)

func newTestEngine(t *testing.T, cfg Config, items []models.CatalogItem, ratings []models.RatingEvent) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, items, ratings, logging.NewTestLogger(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func sampleCatalog() ([]models.CatalogItem, []models.RatingEvent) {
	items := []models.CatalogItem{
		{ID: 1, Title: "Heat (1995)", Genres: []string{"Action", "Crime"}},
		{ID: 2, Title: "Speed (1994)", Genres: []string{"Action"}},
		{ID: 3, Title: "Se7en (1995)", Genres: []string{"Crime", "Thriller"}},
		{ID: 4, Title: "Clueless (1995)", Genres: []string{"Comedy"}},
		{ID: 5, Title: "Casino (1995)", Genres: []string{"Crime"}},
		{ID: 6, Title: "Ronin (1998)", Genres: []string{"Action", "Crime", "Thriller"}},
		{ID: 7, Title: "Twister (1996)", Genres: []string{"Action"}},
	}
	ratings := []models.RatingEvent{
		{UserID: 1, MovieID: 1, Rating: 5},
		{UserID: 1, MovieID: 4, Rating: 1},
		{UserID: 2, MovieID: 2, Rating: 3},
	}
	return items, ratings
}

func ids(items []ScoredItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}

func TestRecommend_RanksByContentScore(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)

	resp, err := e.Recommend(context.Background(), Request{UserID: 1, K: 3})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	// Weights: Action 5, Crime 5, Comedy 1. Ronin scores 10, the rest 5 in catalog order.
	want := []int{6, 2, 3}
	got := ids(resp.Items)
	if len(got) != len(want) {
		t.Fatalf("Recommend() items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recommend() items = %v, want %v", got, want)
			break
		}
	}
	for _, it := range resp.Items {
		if it.ItemID == 1 || it.ItemID == 4 {
			t.Errorf("rated item %d recommended", it.ItemID)
		}
		if it.Score != it.ContentScore || it.Pulls != 1 {
			t.Errorf("item %+v: one pass should give value == content score and one pull", it)
		}
	}
	if resp.Items[0].Title != "Ronin (1998)" {
		t.Errorf("Title = %q", resp.Items[0].Title)
	}
	if resp.Metadata.Candidates != 5 || resp.Metadata.UserID != 1 || resp.Metadata.K != 3 {
		t.Errorf("Metadata = %+v", resp.Metadata)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("RequestID should be generated when the context has none")
	}
}

func TestRecommend_ActionComedyScenario(t *testing.T) {
	items, ratings := actionComedy()

	t.Run("genre match required", func(t *testing.T) {
		e := newTestEngine(t, DefaultConfig(), items, ratings)
		resp, err := e.Recommend(context.Background(), Request{UserID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Items) != 0 {
			t.Errorf("items = %v, want none", ids(resp.Items))
		}
	})

	t.Run("genre match optional", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RequireGenreMatch = false
		e := newTestEngine(t, cfg, items, ratings)
		resp, err := e.Recommend(context.Background(), Request{UserID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Items) != 1 || resp.Items[0].ItemID != 2 || resp.Items[0].ContentScore != 0 {
			t.Errorf("items = %+v, want item 2 with score 0", resp.Items)
		}
	})
}

func TestRecommend_UserWithoutHistory(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)

	resp, err := e.Recommend(context.Background(), Request{UserID: 42})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("Items = %#v, want empty non-nil slice", resp.Items)
	}
	if resp.Metadata.Candidates != 0 {
		t.Errorf("Candidates = %d, want 0", resp.Metadata.Candidates)
	}
}

func TestRecommend_DeterministicPerRequest(t *testing.T) {
	items, ratings := sampleCatalog()
	cfg := DefaultConfig()
	cfg.Bandit.Decay = bandit.DecayExponential
	e := newTestEngine(t, cfg, items, ratings)

	first, err := e.Recommend(context.Background(), Request{UserID: 1, K: 5})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Recommend(context.Background(), Request{UserID: 1, K: 5})
		if err != nil {
			t.Fatal(err)
		}
		a, b := ids(first.Items), ids(again.Items)
		if len(a) != len(b) {
			t.Fatalf("run %d: %v != %v", i, a, b)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("run %d: %v != %v", i, a, b)
			}
		}
		if again.Metadata.Epsilon != first.Metadata.Epsilon {
			t.Errorf("epsilon %f != %f across identical runs", again.Metadata.Epsilon, first.Metadata.Epsilon)
		}
	}
}

func TestRecommend_KDefaultsAndCap(t *testing.T) {
	items, ratings := sampleCatalog()
	cfg := DefaultConfig()
	cfg.DefaultK = 2
	cfg.MaxK = 3
	e := newTestEngine(t, cfg, items, ratings)

	tests := []struct {
		k    int
		want int
	}{
		{0, 2},
		{-1, 2},
		{1, 1},
		{50, 3},
	}
	for _, tt := range tests {
		resp, err := e.Recommend(context.Background(), Request{UserID: 1, K: tt.k})
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Items) != tt.want {
			t.Errorf("K=%d returned %d items, want %d", tt.k, len(resp.Items), tt.want)
		}
	}
}

func TestRecommend_CanceledContext(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Recommend(ctx, Request{UserID: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Recommend() error = %v, want context.Canceled", err)
	}
}

func TestRecommend_UsesContextRequestID(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)
	ctx := logging.ContextWithRequestID(context.Background(), "req-123")
	resp, err := e.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Metadata.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want req-123", resp.Metadata.RequestID)
	}
}

func TestAccumulate_ArmsPersistAcrossCalls(t *testing.T) {
	items, ratings := sampleCatalog()
	cfg := DefaultConfig()
	cfg.ArmMemory = ArmMemoryAccumulate
	e := newTestEngine(t, cfg, items, ratings)

	if _, err := e.Recommend(context.Background(), Request{UserID: 1}); err != nil {
		t.Fatal(err)
	}
	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range resp.Items {
		if it.Pulls != 2 {
			t.Errorf("item %d pulls = %d, want 2 after two passes", it.ItemID, it.Pulls)
		}
	}

	// Feedback lowers Ronin's mean below the others.
	for i := 0; i < 4; i++ {
		if err := e.Feedback(1, 6, 0); err != nil {
			t.Fatalf("Feedback() error = %v", err)
		}
	}
	st, ok := e.Snapshot(1)
	if !ok {
		t.Fatal("Snapshot() missing for user 1")
	}
	for _, a := range st.Arms {
		if a.ID == 6 && a.Pulls != 6 {
			t.Errorf("arm 6 pulls = %d, want 6", a.Pulls)
		}
	}

	resp, err = e.Recommend(context.Background(), Request{UserID: 1, K: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Items[0].ItemID == 6 {
		t.Errorf("item 6 still ranked first after zero-reward feedback: %v", ids(resp.Items))
	}

	if _, ok := e.Snapshot(2); ok {
		t.Error("user 2 should not have a selector yet")
	}
}

func TestAccumulate_FeedbackAndNext(t *testing.T) {
	items, ratings := sampleCatalog()
	cfg := DefaultConfig()
	cfg.ArmMemory = ArmMemoryAccumulate
	cfg.Bandit.Epsilon = 0
	cfg.Bandit.MinEpsilon = 0
	e := newTestEngine(t, cfg, items, ratings)

	if err := e.Feedback(1, 3, 4); err != nil {
		t.Fatal(err)
	}
	got, err := e.Next(1, []int{2, 3, 5})
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("Next() = %d, want 3", got)
	}
	if _, err := e.Next(1, nil); !errors.Is(err, bandit.ErrNoCandidates) {
		t.Errorf("Next(nil) error = %v, want ErrNoCandidates", err)
	}
	if err := e.Feedback(1, 999, 1); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Feedback(unknown) error = %v, want ErrUnknownItem", err)
	}
}

func TestAccumulate_ConcurrentUse(t *testing.T) {
	items, ratings := sampleCatalog()
	cfg := DefaultConfig()
	cfg.ArmMemory = ArmMemoryAccumulate
	e := newTestEngine(t, cfg, items, ratings)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Recommend(context.Background(), Request{UserID: 1}); err != nil {
				t.Errorf("Recommend() error = %v", err)
			}
			if err := e.Feedback(1, 2, float64(i)); err != nil {
				t.Errorf("Feedback() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	st, _ := e.Snapshot(1)
	for _, a := range st.Arms {
		if a.ID == 2 && a.Pulls != 16 {
			t.Errorf("arm 2 pulls = %d, want 16", a.Pulls)
		}
	}
}

func TestPerRequest_RejectsFeedback(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)
	if err := e.Feedback(1, 2, 1); !errors.Is(err, ErrArmMemoryDisabled) {
		t.Errorf("Feedback() error = %v, want ErrArmMemoryDisabled", err)
	}
	if _, err := e.Next(1, []int{2}); !errors.Is(err, ErrArmMemoryDisabled) {
		t.Errorf("Next() error = %v, want ErrArmMemoryDisabled", err)
	}
}

func TestSetItems(t *testing.T) {
	items, ratings := sampleCatalog()
	e := newTestEngine(t, DefaultConfig(), items, ratings)

	updated := e.Items()
	updated[1].Director = strPtr("Jan de Bont")
	e.SetItems(updated)

	got, ok := e.Item(2)
	if !ok || got.Director == nil || *got.Director != "Jan de Bont" {
		t.Errorf("Item(2) = %+v, %v", got, ok)
	}
	if _, ok := e.Item(100); ok {
		t.Error("Item(100) should be missing")
	}
	if got := e.Ratings(1); len(got) != 2 {
		t.Errorf("Ratings(1) = %v, want 2 events", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero K", func(c *Config) { c.DefaultK = 0 }, true},
		{"max below default", func(c *Config) { c.MaxK = 1 }, true},
		{"negative director weight", func(c *Config) { c.DirectorWeight = -1 }, true},
		{"negative cast weight", func(c *Config) { c.CastWeight = -1 }, true},
		{"unknown arm memory", func(c *Config) { c.ArmMemory = ArmMemory(7) }, true},
		{"bad bandit", func(c *Config) { c.Bandit.Epsilon = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseArmMemory(t *testing.T) {
	for in, want := range map[string]ArmMemory{"": ArmMemoryPerRequest, "per_request": ArmMemoryPerRequest, "ACCUMULATE": ArmMemoryAccumulate} {
		got, err := ParseArmMemory(in)
		if err != nil || got != want {
			t.Errorf("ParseArmMemory(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseArmMemory("forever"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
