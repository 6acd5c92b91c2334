// Package project models the configured spreadsheet endpoints and their
// persistence.
package project

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Category decides which sheets under a project are relevant and which
// aggregation rules apply to its rows.
const (
	CategoryProduction = "production"
	CategoryHourly     = "hourly"
)

// ErrNotFound is returned when a project id is unknown.
var ErrNotFound = errors.New("project not found")

// Project is one configured remote spreadsheet endpoint.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// palette is the set of accent colors assigned round-robin-by-chance to new
// projects for the rendering layer.
var palette = []string{"#8B5CF6", "#EC4899", "#06B6D4"}

// New creates a project with a fresh id and a palette color.
func New(name, url, category string) Project {
	return Project{
		ID:       uuid.New().String(),
		Name:     name,
		URL:      url,
		Category: NormalizeCategory(category),
		Color:    palette[rand.Intn(len(palette))],
	}
}

// NormalizeCategory maps free-form category input to a known category,
// defaulting to production.
func NormalizeCategory(c string) string {
	if strings.EqualFold(strings.TrimSpace(c), CategoryHourly) {
		return CategoryHourly
	}
	return CategoryProduction
}

// Store is the narrow persistence interface for project configuration.
// Backed by Postgres when a database is configured, otherwise by the JSON
// snapshot store (local file or S3).
type Store interface {
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Save(ctx context.Context, p Project) error
	Delete(ctx context.Context, id string) error
	// Replace swaps the entire project list in one call, mirroring the
	// bulk sync the dashboard frontend performs.
	Replace(ctx context.Context, ps []Project) error
}
