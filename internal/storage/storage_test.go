package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desicrew/annotation-monitor/internal/config"
	"github.com/desicrew/annotation-monitor/internal/project"
)

func localStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := New(context.Background(), config.StorageConfig{Type: "local", LocalPath: dir})
	require.NoError(t, err)
	return s
}

func TestStoreFreshDeployment(t *testing.T) {
	s := localStore(t, t.TempDir())

	projects, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestStoreSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := localStore(t, dir)
	p := project.Project{ID: "p1", Name: "Segmentation",
		URL: "https://endpoint/1", Category: project.CategoryProduction, Color: "#8B5CF6"}
	require.NoError(t, s.Save(ctx, p))

	// The snapshot lands on disk.
	_, err := os.Stat(filepath.Join(dir, "projects.json"))
	require.NoError(t, err)

	// A second store picks it up.
	s2 := localStore(t, dir)
	got, err := s2.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestStoreSaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := localStore(t, t.TempDir())

	p := project.Project{ID: "p1", Name: "Before", URL: "https://endpoint/1"}
	require.NoError(t, s.Save(ctx, p))

	p.Name = "After"
	require.NoError(t, s.Save(ctx, p))

	projects, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "After", projects[0].Name)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := localStore(t, t.TempDir())

	require.NoError(t, s.Save(ctx, project.Project{ID: "p1", Name: "X", URL: "https://endpoint/1"}))
	require.NoError(t, s.Delete(ctx, "p1"))

	_, err := s.Get(ctx, "p1")
	assert.ErrorIs(t, err, project.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "p1"), project.ErrNotFound)
}

func TestStoreReplace(t *testing.T) {
	ctx := context.Background()
	s := localStore(t, t.TempDir())

	require.NoError(t, s.Save(ctx, project.Project{ID: "old", Name: "Old", URL: "https://endpoint/0"}))
	require.NoError(t, s.Replace(ctx, []project.Project{
		{ID: "p1", Name: "A", URL: "https://endpoint/1"},
		{ID: "p2", Name: "B", URL: "https://endpoint/2"},
	}))

	projects, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, project.ErrNotFound)
}
