// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/config"
	"github.com/tomtom215/filminsight/internal/evaluation"
	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/recommend"
	"github.com/tomtom215/filminsight/internal/recommend/bandit"
)

const testMovies = `movieId,title,genres
1,Heat (1995),Action|Crime
2,Speed (1994),Action
3,Se7en (1995),Crime|Thriller
4,Clueless (1995),Comedy
5,Casino (1995),Crime
6,Ronin (1998),Action|Crime|Thriller
7,Twister (1996),Action
`

const testRatings = `userId,movieId,rating,timestamp
1,1,5.0,964982703
1,4,1.0,964981247
1,6,4.5,964982224
2,2,3.0,964983815
`

const testCache = `{
  "Heat (1995)": {"abstract": null, "director": "Michael Mann", "starring": null, "genre": null},
  "Speed (1994)": null
}`

// writeFixture creates data files and a config file pointing at them, and
// returns the config path and cache path.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	movies := write("movies.csv", testMovies)
	ratings := write("ratings.csv", testRatings)
	cache := write("enrichment_cache.json", testCache)
	cfg := write("filminsight.yaml", "data:\n"+
		"  movies_path: "+movies+"\n"+
		"  ratings_path: "+ratings+"\n"+
		"cache:\n"+
		"  backend: json\n"+
		"  path: "+cache+"\n"+
		"logging:\n"+
		"  level: error\n")
	return cfg, cache
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := run(t, "--config", cfgPath, "recommend", "--user", "1", "--k", "2")
	if err != nil {
		t.Fatalf("recommend error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Se7en (1995)") || !strings.Contains(out, "Speed (1994)") {
		t.Errorf("recommend table missing expected rows:\n%s", out)
	}

	out, err = run(t, "--config", cfgPath, "--json", "recommend", "--user", "1", "--k", "2")
	if err != nil {
		t.Fatal(err)
	}
	var resp recommend.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("recommend --json output is not JSON: %v\n%s", err, out)
	}
	if len(resp.Items) != 2 || resp.Metadata.K != 2 {
		t.Errorf("response = %+v", resp)
	}
	for _, it := range resp.Items {
		if it.ItemID == 1 || it.ItemID == 4 || it.ItemID == 6 {
			t.Errorf("recommended already rated item %d", it.ItemID)
		}
	}
}

func TestRecommendCommand_UnknownUser(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	out, err := run(t, "--config", cfgPath, "recommend", "--user", "99")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No recommendations for user 99") {
		t.Errorf("output = %q", out)
	}
}

func TestRecommendCommand_RequiresUser(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	if _, err := run(t, "--config", cfgPath, "recommend"); err == nil {
		t.Error("expected error without --user")
	}
}

func TestEvaluateCommand(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	out, err := run(t, "--config", cfgPath, "--json", "evaluate", "--user", "1", "--k", "3", "--holdout", "0.3")
	if err != nil {
		t.Fatalf("evaluate error = %v\n%s", err, out)
	}
	var report evaluation.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("evaluate --json output is not JSON: %v\n%s", err, out)
	}
	// Heat (5.0) is hidden; Ronin and Clueless remain.
	if report.Relevant != 1 || report.K != 3 {
		t.Errorf("report = %+v", report)
	}

	if _, err := run(t, "--config", cfgPath, "evaluate", "--user", "2"); err == nil {
		t.Error("expected error for a user with a single rating")
	}
}

func TestCacheCommands(t *testing.T) {
	cfgPath, cachePath := writeFixture(t)

	out, err := run(t, "--config", cfgPath, "--json", "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats error = %v\n%s", err, out)
	}
	var stats CacheStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Titles != 2 || stats.Enriched != 1 || stats.NoResult != 1 {
		t.Errorf("stats = %+v", stats)
	}

	out, err = run(t, "--config", cfgPath, "cache", "invalidate", "Speed (1994)", "Unknown (2000)")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Invalidated 1 of 2") || !strings.Contains(out, "not cached: Unknown (2000)") {
		t.Errorf("invalidate output = %q", out)
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Speed") {
		t.Errorf("invalidated title still persisted: %s", data)
	}

	if _, err := run(t, "--config", cfgPath, "cache", "clear"); err == nil {
		t.Error("cache clear without --yes should fail")
	}
	out, err = run(t, "--config", cfgPath, "cache", "clear", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cleared 1 title") {
		t.Errorf("clear output = %q", out)
	}
}

func TestOpenStore_Locked(t *testing.T) {
	_, cachePath := writeFixture(t)
	cfg := config.CacheConfig{Backend: "json", Path: cachePath}

	first, err := openStore(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if _, err := openStore(context.Background(), cfg, testLogger()); err == nil {
		t.Error("second openStore should fail while the cache is locked")
	}
}

func TestRecommendConfig(t *testing.T) {
	cfg := config.Default().Recommend
	cfg.ArmMemory = "accumulate"
	cfg.Bandit.Decay = "exponential"

	got, err := recommendConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got.ArmMemory != recommend.ArmMemoryAccumulate || got.Bandit.Decay != bandit.DecayExponential {
		t.Errorf("recommendConfig() = %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("converted defaults do not validate: %v", err)
	}

	cfg.Bandit.Decay = "cosine"
	if _, err := recommendConfig(cfg); err == nil {
		t.Error("expected error for unknown decay")
	}
}

func TestDispatcherConfig(t *testing.T) {
	got := dispatcherConfig(config.Default().Enrich)
	if err := got.Validate(); err != nil {
		t.Errorf("converted defaults do not validate: %v", err)
	}
	if got.Seed != 42 || got.BatchSize != 10 {
		t.Errorf("dispatcherConfig() = %+v", got)
	}
}

func TestMiddlewareConfig(t *testing.T) {
	sc := config.Default().Server
	sc.RateLimitRequests = 0
	sc.CORSOrigins = []string{"https://a.example"}
	mw := middlewareConfig(sc)
	if !mw.RateLimitDisabled || len(mw.CORSAllowedOrigins) != 1 {
		t.Errorf("middlewareConfig() = %+v", mw)
	}
}

func testLogger() zerolog.Logger {
	return logging.NewTestLogger(&bytes.Buffer{})
}

func TestLogLevelFlag(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	if out, err := run(t, "--config", cfgPath, "--log-level", "debug", "cache", "stats"); err != nil {
		t.Fatalf("cache stats error = %v\n%s", err, out)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug from --log-level over the configured error", got)
	}

	_, err := run(t, "--config", cfgPath, "--log-level", "loud", "cache", "stats")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Errorf("error = %v, want an invalid --log-level error", err)
	}
}
