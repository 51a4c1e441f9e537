// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package catalog reads MovieLens movies and ratings files.
//
// Both readers require a header row and locate columns by name, so extra
// columns (such as the ratings timestamp) are ignored. Malformed rows are
// errors carrying their line number.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/tomtom215/filminsight/internal/models"
)

const (
	genreSeparator = "|"
	noGenres       = "(no genres listed)"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing required column")

// LoadMovies reads a movies.csv file.
func LoadMovies(path string) ([]models.CatalogItem, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open movies file: %w", err)
	}
	defer f.Close()

	items, err := ReadMovies(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ReadMovies parses movieId,title,genres rows.
func ReadMovies(r io.Reader) ([]models.CatalogItem, error) {
	reader, idx, err := open(r, "movieId", "title", "genres")
	if err != nil {
		return nil, err
	}

	var items []models.CatalogItem
	seen := make(map[int]int)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		id, err := strconv.Atoi(strings.TrimSpace(row[idx["movieId"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid movieId %q", line, row[idx["movieId"]])
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate movieId %d (first on line %d)", line, id, prev)
		}
		seen[id] = line

		items = append(items, models.CatalogItem{
			ID:     id,
			Title:  strings.TrimSpace(row[idx["title"]]),
			Genres: ParseGenres(row[idx["genres"]]),
		})
	}
	return items, nil
}

// ParseGenres splits a pipe-separated genre list, dropping repeated tags.
// "(no genres listed)" and blank input give nil.
func ParseGenres(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == noGenres {
		return nil
	}
	var out []string
	for _, g := range strings.Split(s, genreSeparator) {
		if g = strings.TrimSpace(g); g != "" && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}

// LoadRatings reads a ratings.csv file.
func LoadRatings(path string) ([]models.RatingEvent, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open ratings file: %w", err)
	}
	defer f.Close()

	ratings, err := ReadRatings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ratings, nil
}

// ReadRatings parses userId,movieId,rating rows. A timestamp column is
// allowed and ignored.
func ReadRatings(r io.Reader) ([]models.RatingEvent, error) {
	reader, idx, err := open(r, "userId", "movieId", "rating")
	if err != nil {
		return nil, err
	}

	var ratings []models.RatingEvent
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		userID, err := strconv.Atoi(strings.TrimSpace(row[idx["userId"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid userId %q", line, row[idx["userId"]])
		}
		movieID, err := strconv.Atoi(strings.TrimSpace(row[idx["movieId"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid movieId %q", line, row[idx["movieId"]])
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(row[idx["rating"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rating %q", line, row[idx["rating"]])
		}

		ratings = append(ratings, models.RatingEvent{UserID: userID, MovieID: movieID, Rating: rating})
	}
	return ratings, nil
}

// open reads the header and checks that every required column is present.
func open(r io.Reader, required ...string) (*csv.Reader, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("file is empty, header row required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return reader, idx, nil
}
