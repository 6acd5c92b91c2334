// Package storage persists the project configuration as a JSON snapshot,
// either on local disk or in S3. It backs the project.Store interface for
// deployments without a database.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desicrew/annotation-monitor/internal/config"
	"github.com/desicrew/annotation-monitor/internal/pkg/logger"
	"github.com/desicrew/annotation-monitor/internal/project"
)

const snapshotKey = "projects/projects.json"

// Store holds the project list in memory and mirrors every mutation to the
// configured backend (local file by default, S3 when configured).
type Store struct {
	cfg config.StorageConfig
	aws *AWSStorage

	mu       sync.RWMutex
	projects []project.Project
}

// New creates a snapshot store and loads any existing snapshot.
func New(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	s := &Store{cfg: cfg}

	if cfg.Type == "s3" {
		a, err := NewAWSStorage(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing S3 storage: %w", err)
		}
		s.aws = a
	}

	if err := s.load(ctx); err != nil {
		// A missing snapshot is a fresh deployment, not an error
		logger.Warn("storage: no existing project snapshot", "error", err)
	}
	return s, nil
}

func (s *Store) localPath() string {
	dir := s.cfg.LocalPath
	if dir == "" {
		dir = "data"
	}
	return filepath.Join(dir, "projects.json")
}

func (s *Store) load(ctx context.Context) error {
	var projects []project.Project

	if s.aws != nil {
		if err := s.aws.GetJSON(ctx, snapshotKey, &projects); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(s.localPath())
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &projects); err != nil {
			return fmt.Errorf("parsing project snapshot: %w", err)
		}
	}

	s.mu.Lock()
	s.projects = projects
	s.mu.Unlock()
	logger.Info("storage: loaded project snapshot", "count", len(projects))
	return nil
}

func (s *Store) flush(ctx context.Context) error {
	s.mu.RLock()
	projects := make([]project.Project, len(s.projects))
	copy(projects, s.projects)
	s.mu.RUnlock()

	if s.aws != nil {
		return s.aws.PutJSON(ctx, snapshotKey, projects)
	}

	path := s.localPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating storage dir: %w", err)
	}
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling project snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project snapshot: %w", err)
	}
	return nil
}

// List returns all configured projects.
func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]project.Project, len(s.projects))
	copy(out, s.projects)
	return out, nil
}

// Get returns one project by id.
func (s *Store) Get(ctx context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return project.Project{}, project.ErrNotFound
}

// Save inserts or updates a project and flushes the snapshot.
func (s *Store) Save(ctx context.Context, p project.Project) error {
	s.mu.Lock()
	replaced := false
	for i := range s.projects {
		if s.projects[i].ID == p.ID {
			s.projects[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.projects = append(s.projects, p)
	}
	s.mu.Unlock()
	return s.flush(ctx)
}

// Delete removes a project and flushes the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	kept := s.projects[:0]
	for _, p := range s.projects {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	s.projects = kept
	s.mu.Unlock()

	if !found {
		return project.ErrNotFound
	}
	return s.flush(ctx)
}

// Replace swaps the entire project list and flushes the snapshot.
func (s *Store) Replace(ctx context.Context, ps []project.Project) error {
	s.mu.Lock()
	s.projects = make([]project.Project, len(ps))
	copy(s.projects, ps)
	s.mu.Unlock()
	return s.flush(ctx)
}
