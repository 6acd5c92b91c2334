package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desicrew/annotation-monitor/internal/aggregate"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// memStore is an in-memory project.Store for tests.
type memStore struct {
	mu       sync.Mutex
	projects map[string]project.Project
}

func newMemStore(ps ...project.Project) *memStore {
	s := &memStore{projects: make(map[string]project.Project)}
	for _, p := range ps {
		s.projects[p.ID] = p
	}
	return s
}

func (s *memStore) List(ctx context.Context) ([]project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []project.Project
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id string) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Save(ctx context.Context, p project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return project.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *memStore) Replace(ctx context.Context, ps []project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = make(map[string]project.Project)
	for _, p := range ps {
		s.projects[p.ID] = p
	}
	return nil
}

// blockingFetcher serves canned rows and can hold fetches until released.
type blockingFetcher struct {
	sheetNames []string
	rows       map[string][]sheets.Row
	hold       chan struct{}
}

func (f *blockingFetcher) ListSheets(ctx context.Context, endpointURL string) ([]string, error) {
	return f.sheetNames, nil
}

func (f *blockingFetcher) FetchRows(ctx context.Context, endpointURL, sheetName string) ([]sheets.Row, error) {
	if f.hold != nil {
		<-f.hold
	}
	return f.rows[sheetName], nil
}

func parseRows(t *testing.T, raw string) []sheets.Row {
	t.Helper()
	var rows []sheets.Row
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return rows
}

func prodProject() project.Project {
	return project.Project{ID: "p1", Name: "Segmentation",
		URL: "https://endpoint/1", Category: project.CategoryProduction}
}

func TestSetSelectionPublishesSnapshot(t *testing.T) {
	fetcher := &blockingFetcher{rows: map[string][]sheets.Row{
		"Production1": parseRows(t, `[
			{"Annotator Name":"Alice","Frame ID":"F1","Number of Object Annotated":"5","Date":"2025-09-01"}
		]`),
	}}
	svc := NewService(newMemStore(prodProject()), fetcher, aggregate.NewEngine())

	snap, err := svc.SetSelection(context.Background(),
		[]ingest.SheetRef{{ProjectID: "p1", SheetName: "Production1"}})
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Len(t, snap.Rows, 1)
	require.Len(t, snap.Result.Annotators, 1)
	assert.Equal(t, "Alice@rprocess.in", snap.Result.Annotators[0].Name)
	assert.Equal(t, 5.0, snap.Metrics.TotalObjects)

	assert.False(t, svc.Loading())
	assert.Equal(t, snap, svc.Snapshot())
}

func TestStaleCycleDoesNotOverwriteNewer(t *testing.T) {
	hold := make(chan struct{})
	fetcher := &blockingFetcher{
		hold: hold,
		rows: map[string][]sheets.Row{
			"Production1": parseRows(t, `[{"Annotator Name":"Old","Frame ID":"F1"}]`),
			"Production2": parseRows(t, `[{"Annotator Name":"New","Frame ID":"F2"}]`),
		},
	}
	svc := NewService(newMemStore(prodProject()), fetcher, aggregate.NewEngine())

	firstDone := make(chan *Snapshot)
	go func() {
		snap, _ := svc.SetSelection(context.Background(),
			[]ingest.SheetRef{{ProjectID: "p1", SheetName: "Production1"}})
		firstDone <- snap
	}()

	secondDone := make(chan *Snapshot)
	go func() {
		// Give the first cycle time to claim its token.
		time.Sleep(50 * time.Millisecond)
		snap, _ := svc.SetSelection(context.Background(),
			[]ingest.SheetRef{{ProjectID: "p1", SheetName: "Production2"}})
		secondDone <- snap
	}()

	time.Sleep(120 * time.Millisecond)
	close(hold)
	<-firstDone
	<-secondDone

	snap := svc.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Selection, 1)
	assert.Equal(t, "Production2", snap.Selection[0].SheetName)
}

func TestRefreshReusesSelection(t *testing.T) {
	fetcher := &blockingFetcher{rows: map[string][]sheets.Row{
		"Production1": parseRows(t, `[{"Annotator Name":"Alice","Frame ID":"F1"}]`),
	}}
	svc := NewService(newMemStore(prodProject()), fetcher, aggregate.NewEngine())

	_, err := svc.SetSelection(context.Background(),
		[]ingest.SheetRef{{ProjectID: "p1", SheetName: "Production1"}})
	require.NoError(t, err)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Selection, 1)
	assert.Equal(t, "Production1", snap.Selection[0].SheetName)
}

func TestAvailableSheets(t *testing.T) {
	fetcher := &blockingFetcher{
		sheetNames: []string{"Production1", "QC Review", "1ST SEP LOGIN", "Notes"},
	}
	svc := NewService(newMemStore(prodProject()), fetcher, aggregate.NewEngine())

	names, err := svc.AvailableSheets(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Production1", "QC Review"}, names)

	_, err = svc.AvailableSheets(context.Background(), "ghost")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestAllAvailableSheets(t *testing.T) {
	hourly := project.Project{ID: "p2", Name: "Attendance",
		URL: "https://endpoint/2", Category: project.CategoryHourly}
	fetcher := &blockingFetcher{
		sheetNames: []string{"Production1", "QC Review", "1ST SEP LOGIN", "Credentials Login"},
	}
	svc := NewService(newMemStore(prodProject(), hourly), fetcher, aggregate.NewEngine())

	byProject, err := svc.AllAvailableSheets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Production1", "QC Review"}, byProject["p1"])
	assert.Equal(t, []string{"1ST SEP LOGIN"}, byProject["p2"])
}

func TestScanBirthdays(t *testing.T) {
	hourly := project.Project{ID: "p2", Name: "Attendance",
		URL: "https://endpoint/2", Category: project.CategoryHourly}
	fetcher := &blockingFetcher{
		sheetNames: []string{"1ST SEP LOGIN", "Birthday List"},
		rows: map[string][]sheets.Row{
			"Birthday List": parseRows(t, `[
				{"SNO":1,"Name":"Alice","DOB":"1998-09-15"},
				{"SNO":2,"Name":"Bob","DOB":"1995-03-02"},
				{"SNO":3,"Name":"Alice","DOB":"1998-09-15"}
			]`),
		},
	}
	svc := NewService(newMemStore(hourly), fetcher, aggregate.NewEngine())

	greeting, err := svc.ScanBirthdays(context.Background(),
		time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, greeting.Names)
	assert.Equal(t, "Happy birthday, Alice!", greeting.Message)

	greeting, err = svc.ScanBirthdays(context.Background(),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, greeting.Names)
	assert.Empty(t, greeting.Message)
}
