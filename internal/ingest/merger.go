// Package ingest fetches the selected sheets concurrently and merges their
// rows into one tagged, date-resolved collection for aggregation.
package ingest

import (
	"context"
	"strings"
	"sync"

	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/pkg/logger"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// Provenance columns stamped on every merged row.
const (
	ColProjectSource   = "__projectSource"
	ColProjectCategory = "__projectCategory"
	ColSheetSource     = "__sheetSource"
	ColDate            = "DATE"
)

// SheetRef names one sheet under one configured project.
type SheetRef struct {
	ProjectID string `json:"projectId"`
	SheetName string `json:"sheetName"`
}

// Merger fetches and merges sheet rows.
type Merger struct {
	fetcher sheets.Fetcher
}

// NewMerger creates a merger on top of a sheet fetcher.
func NewMerger(fetcher sheets.Fetcher) *Merger {
	return &Merger{fetcher: fetcher}
}

// Merge fetches every selected sheet concurrently and returns the flattened
// row set. Each row is stamped with its project name, project category, and
// sheet name, and carries a resolved DATE column. A failed fetch contributes
// an empty batch; it never aborts the cycle.
func (m *Merger) Merge(ctx context.Context, selection []SheetRef, projects map[string]project.Project) []sheets.Row {
	batches := make([][]sheets.Row, len(selection))

	var wg sync.WaitGroup
	for i, ref := range selection {
		proj, ok := projects[ref.ProjectID]
		if !ok {
			logger.Warn("Skipping sheet for unknown project", "project_id", ref.ProjectID, "sheet", ref.SheetName)
			continue
		}

		wg.Add(1)
		go func(i int, ref SheetRef, proj project.Project) {
			defer wg.Done()

			rows, err := m.fetcher.FetchRows(ctx, proj.URL, ref.SheetName)
			if err != nil {
				logger.Warn("Sheet fetch failed, continuing with empty batch",
					"project", proj.Name, "sheet", ref.SheetName, "error", err.Error())
				return
			}
			batches[i] = tagRows(rows, proj, ref.SheetName)
		}(i, ref, proj)
	}
	wg.Wait()

	var merged []sheets.Row
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	return merged
}

// tagRows resolves each row's date and stamps provenance columns.
func tagRows(rows []sheets.Row, proj project.Project, sheetName string) []sheets.Row {
	if len(rows) == 0 {
		return nil
	}

	headers := rows[0].Columns()
	dateKey := resolveDateKey(headers)
	fallback := sheetFallbackDate(rows, dateKey, sheetName)

	out := make([]sheets.Row, 0, len(rows))
	for _, row := range rows {
		tagged := row.Clone()
		localDate := ""

		for _, header := range tagged.Columns() {
			if header != dateKey && !strings.Contains(strings.ToLower(header), "date") {
				continue
			}
			normalized := datanorm.NormalizeDate(tagged.Get(header))
			if normalized == "" {
				continue
			}
			tagged.Set(header, normalized)
			localDate = normalized
		}

		if localDate == "" {
			localDate = fallback
		}
		tagged.Set(ColDate, localDate)
		tagged.Set(ColProjectSource, proj.Name)
		tagged.Set(ColProjectCategory, proj.Category)
		tagged.Set(ColSheetSource, sheetName)
		out = append(out, tagged)
	}
	return out
}

// resolveDateKey finds the date column, falling back to the third positional
// column when no header resolves.
func resolveDateKey(headers []string) string {
	if key, ok := datanorm.FindKey(headers, datanorm.FieldDate); ok {
		return key
	}
	if len(headers) > 2 {
		return headers[2]
	}
	return ""
}

// sheetFallbackDate is the date rows without their own date inherit: the
// first row whose date column normalizes cleanly, else a date derived from
// the sheet's display name, else the "-" placeholder.
func sheetFallbackDate(rows []sheets.Row, dateKey, sheetName string) string {
	if dateKey != "" {
		for _, row := range rows {
			if d := datanorm.NormalizeDate(row.Get(dateKey)); d != "" {
				return d
			}
		}
	}
	if ts := datanorm.SheetNameOrdinal(sheetName); ts > 0 {
		return datanorm.FormatOrdinal(ts)
	}
	return "-"
}
