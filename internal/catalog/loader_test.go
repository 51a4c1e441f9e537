// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const moviesCSV = `movieId,title,genres
1,Toy Story (1995),Adventure|Animation|Children|Comedy|Fantasy
2,"American President, The (1995)",Comedy|Drama|Romance
3,Some Documentary (2010),(no genres listed)
`

func TestReadMovies(t *testing.T) {
	items, err := ReadMovies(strings.NewReader(moviesCSV))
	if err != nil {
		t.Fatalf("ReadMovies() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("ReadMovies() returned %d items, want 3", len(items))
	}
	if items[0].ID != 1 || items[0].Title != "Toy Story (1995)" || len(items[0].Genres) != 5 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Title != "American President, The (1995)" {
		t.Errorf("quoted title = %q", items[1].Title)
	}
	if items[2].Genres != nil {
		t.Errorf("no-genres item Genres = %v, want nil", items[2].Genres)
	}
	if !items[0].HasGenre("Animation") || items[0].HasGenre("Drama") {
		t.Error("HasGenre() mismatch on parsed genres")
	}
}

func TestReadMovies_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "header row required"},
		{"missing column", "movieId,title\n1,Heat\n", "genres"},
		{"bad id", "movieId,title,genres\nx,Heat,Action\n", "line 2"},
		{"duplicate id", "movieId,title,genres\n1,Heat,Action\n1,Up,Animation\n", "duplicate movieId 1"},
		{"short row", "movieId,title,genres\n1,Heat\n", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMovies(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	_, err := ReadMovies(strings.NewReader("movieId,title\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("error = %v, want ErrMissingColumn", err)
	}
}

func TestReadRatings(t *testing.T) {
	input := "userId,movieId,rating,timestamp\n1,1,4.0,964982703\n1,3,4.5,964981247\n2,1,0.5,835355493\n"
	ratings, err := ReadRatings(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRatings() error = %v", err)
	}
	if len(ratings) != 3 {
		t.Fatalf("ReadRatings() returned %d events, want 3", len(ratings))
	}
	if ratings[1].UserID != 1 || ratings[1].MovieID != 3 || ratings[1].Rating != 4.5 {
		t.Errorf("ratings[1] = %+v", ratings[1])
	}

	// Timestamp is optional and columns are found by name.
	ratings, err = ReadRatings(strings.NewReader("rating,movieId,userId\n3,7,9\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ratings[0].UserID != 9 || ratings[0].MovieID != 7 || ratings[0].Rating != 3 {
		t.Errorf("reordered columns parsed as %+v", ratings[0])
	}
}

func TestReadRatings_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad user", "userId,movieId,rating\nu,1,4\n"},
		{"bad movie", "userId,movieId,rating\n1,m,4\n"},
		{"bad rating", "userId,movieId,rating\n1,1,great\n"},
		{"missing rating column", "userId,movieId\n1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadRatings(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	moviesPath := filepath.Join(dir, "movies.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	if err := os.WriteFile(moviesPath, []byte(moviesCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ratingsPath, []byte("userId,movieId,rating\n1,2,5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	items, err := LoadMovies(moviesPath)
	if err != nil || len(items) != 3 {
		t.Errorf("LoadMovies() = %d items, %v", len(items), err)
	}
	ratings, err := LoadRatings(ratingsPath)
	if err != nil || len(ratings) != 1 {
		t.Errorf("LoadRatings() = %d events, %v", len(ratings), err)
	}

	if _, err := LoadMovies(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseGenres(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Action|Crime", 2},
		{"Action", 1},
		{"(no genres listed)", 0},
		{"", 0},
		{"Action||Crime ", 2},
		{"Action|Action|Crime", 2},
	}
	for _, tt := range tests {
		if got := ParseGenres(tt.in); len(got) != tt.want {
			t.Errorf("ParseGenres(%q) = %v, want %d genres", tt.in, got, tt.want)
		}
	}
}
