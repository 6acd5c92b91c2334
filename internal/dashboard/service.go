// Package dashboard holds the selection state and orchestrates refresh
// cycles: fetch and merge the selected sheets, aggregate, and publish an
// immutable snapshot for the API layer.
package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/desicrew/annotation-monitor/internal/aggregate"
	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/pkg/logger"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// topPerformerCount bounds the ranking slice published in snapshots.
const topPerformerCount = 5

// Snapshot is one published refresh cycle's output. Read-only once built.
type Snapshot struct {
	Selection         []ingest.SheetRef             `json:"selection"`
	Rows              []sheets.Row                  `json:"rows"`
	Production        []sheets.Row                  `json:"production"`
	ProductionHeaders []string                      `json:"productionHeaders"`
	Result            aggregate.Result              `json:"result"`
	Metrics           aggregate.Metrics             `json:"metrics"`
	TopPerformers     []aggregate.PerformanceRecord `json:"topPerformers"`
	GeneratedAt       time.Time                     `json:"generatedAt"`
}

// Service owns the dashboard's selection and latest snapshot.
type Service struct {
	store   project.Store
	fetcher sheets.Fetcher
	merger  *ingest.Merger
	engine  *aggregate.Engine

	mu        sync.Mutex
	seq       uint64
	loading   bool
	selection []ingest.SheetRef
	snapshot  *Snapshot
}

// NewService creates the dashboard service.
func NewService(store project.Store, fetcher sheets.Fetcher, engine *aggregate.Engine) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		merger:  ingest.NewMerger(fetcher),
		engine:  engine,
	}
}

// Loading reports whether a refresh cycle is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Selection returns the current sheet selection.
func (s *Service) Selection() []ingest.SheetRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ingest.SheetRef, len(s.selection))
	copy(out, s.selection)
	return out
}

// Snapshot returns the latest published snapshot, or nil before the first
// completed refresh.
func (s *Service) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// SetSelection replaces the selection and runs a refresh cycle. When the
// selection changes again before the cycle finishes, the stale cycle's
// results are discarded instead of overwriting the newer selection's.
func (s *Service) SetSelection(ctx context.Context, selection []ingest.SheetRef) (*Snapshot, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.selection = selection
	s.loading = true
	s.mu.Unlock()

	return s.refresh(ctx, token, selection)
}

// Refresh re-runs the current selection's cycle.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	selection := make([]ingest.SheetRef, len(s.selection))
	copy(selection, s.selection)
	s.loading = true
	s.mu.Unlock()

	return s.refresh(ctx, token, selection)
}

func (s *Service) refresh(ctx context.Context, token uint64, selection []ingest.SheetRef) (*Snapshot, error) {
	started := time.Now()

	projects, err := s.projectIndex(ctx)
	if err != nil {
		s.finishCycle(token)
		return nil, err
	}

	rows := s.merger.Merge(ctx, selection, projects)
	result := s.engine.Aggregate(rows)
	metrics := aggregate.Summarize(rows)
	production, productionHeaders := aggregate.ProductionView(rows)

	snap := &Snapshot{
		Selection:         selection,
		Rows:              rows,
		Production:        production,
		ProductionHeaders: productionHeaders,
		Result:            result,
		Metrics:           metrics,
		TopPerformers:     aggregate.TopPerformers(result.CombinedPerformance, topPerformerCount),
		GeneratedAt:       time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		logger.Debug("Discarding stale refresh cycle", "token", token, "current", s.seq)
		return snap, nil
	}
	s.snapshot = snap
	s.loading = false
	logger.Info("Refresh cycle complete",
		"sheets", len(selection), "rows", len(rows),
		"duration_ms", time.Since(started).Milliseconds())
	return snap, nil
}

func (s *Service) finishCycle(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.seq {
		s.loading = false
	}
}

func (s *Service) projectIndex(ctx context.Context) (map[string]project.Project, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]project.Project, len(list))
	for _, p := range list {
		index[p.ID] = p
	}
	return index, nil
}

// AvailableSheets lists the sheets under a project that are relevant to its
// category.
func (s *Service) AvailableSheets(ctx context.Context, projectID string) ([]string, error) {
	proj, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	names, err := s.fetcher.ListSheets(ctx, proj.URL)
	if err != nil {
		return nil, err
	}
	return sheets.FilterSheets(proj.Category, names), nil
}

// AllAvailableSheets lists the relevant sheets of every configured project
// concurrently, keyed by project id. A project whose endpoint fails lists as
// empty rather than failing the whole call.
func (s *Service) AllAvailableSheets(ctx context.Context) (map[string][]string, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(projects))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, proj := range projects {
		wg.Add(1)
		go func(proj project.Project) {
			defer wg.Done()
			names, err := s.fetcher.ListSheets(ctx, proj.URL)
			if err != nil {
				logger.Warn("Sheet listing failed", "project", proj.Name, "error", err.Error())
				names = nil
			}
			filtered := sheets.FilterSheets(proj.Category, names)
			mu.Lock()
			out[proj.ID] = filtered
			mu.Unlock()
		}(proj)
	}
	wg.Wait()
	return out, nil
}

// BirthdayGreeting is the result of a birthday scan.
type BirthdayGreeting struct {
	Names   []string `json:"names"`
	Message string   `json:"message,omitempty"`
}

// ScanBirthdays looks through every configured project for sheets whose name
// mentions "birthday" and collects the distinct people whose date of birth
// matches today's month and day. Endpoint failures skip that project.
func (s *Service) ScanBirthdays(ctx context.Context, now time.Time) (BirthdayGreeting, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return BirthdayGreeting{}, err
	}

	seen := make(map[string]bool)
	var greeting BirthdayGreeting
	for _, proj := range projects {
		names, err := s.fetcher.ListSheets(ctx, proj.URL)
		if err != nil {
			logger.Warn("Birthday scan: sheet listing failed", "project", proj.Name, "error", err.Error())
			continue
		}
		for _, sheetName := range names {
			if !strings.Contains(strings.ToLower(sheetName), "birthday") {
				continue
			}
			rows, err := s.fetcher.FetchRows(ctx, proj.URL, sheetName)
			if err != nil {
				logger.Warn("Birthday scan: fetch failed", "project", proj.Name, "sheet", sheetName, "error", err.Error())
				continue
			}
			for _, row := range rows {
				name, ok := birthdayMatch(row, now)
				if !ok || seen[name] {
					continue
				}
				seen[name] = true
				greeting.Names = append(greeting.Names, name)
			}
		}
	}

	if len(greeting.Names) > 0 {
		greeting.Message = "Happy birthday, " + strings.Join(greeting.Names, ", ") + "!"
	}
	return greeting, nil
}

// birthdayMatch reads a birthday-sheet row: the person's name from a resolved
// Name column (second column as fallback) and their date of birth, matched
// against today's month and day.
func birthdayMatch(row sheets.Row, now time.Time) (string, bool) {
	headers := row.Columns()

	dobKey, ok := datanorm.FindKey(headers, "DOB")
	if !ok {
		return "", false
	}
	dob := datanorm.NormalizeDate(row.Get(dobKey))
	d, err := time.Parse("2006/01/02", dob)
	if err != nil || d.Month() != now.Month() || d.Day() != now.Day() {
		return "", false
	}

	name := ""
	if key, ok := datanorm.FindKey(headers, "Name"); ok {
		name = strings.TrimSpace(datanorm.String(row.Get(key)))
	}
	if name == "" && len(headers) > 1 {
		name = strings.TrimSpace(datanorm.String(row.Get(headers[1])))
	}
	if name == "" {
		return "", false
	}
	return name, true
}
