package aggregate

import (
	"strings"

	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// ProductionView returns the production-category rows plus their header
// union for the raw data table. Provenance columns are left off the header
// list; the attendance grid has its own pivot so hourly rows are excluded.
func ProductionView(rows []sheets.Row) ([]sheets.Row, []string) {
	var out []sheets.Row
	seen := make(map[string]bool)
	var headers []string

	for _, row := range rows {
		if datanorm.String(row.Get(ingest.ColProjectCategory)) != project.CategoryProduction {
			continue
		}
		out = append(out, row)
		for _, h := range row.Columns() {
			if strings.HasPrefix(h, "__") || seen[h] {
				continue
			}
			seen[h] = true
			headers = append(headers, h)
		}
	}
	return out, headers
}
