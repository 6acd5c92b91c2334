package aggregate

import (
	"math"
	"strings"

	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// Metrics are the top-line scalars shown above the dashboard views.
type Metrics struct {
	TotalFrames        int     `json:"totalFrames"`
	TotalObjects       float64 `json:"totalObjects"`
	QCTotalObjects     float64 `json:"qcTotalObjects"`
	TotalErrors        float64 `json:"totalErrors"`
	QualityRatePercent float64 `json:"qualityRatePercent"`
}

// Summarize derives the top-line metrics from the merged row set, restricted
// to production rows. Frame ids are counted as a set, so the same frame seen
// across sheets counts once.
func Summarize(rows []sheets.Row) Metrics {
	cols := resolveColumns(rows)

	frames := make(map[string]bool)
	var m Metrics

	for _, row := range rows {
		if datanorm.String(row.Get(ingest.ColProjectCategory)) != project.CategoryProduction {
			continue
		}

		if cols.frameID != "" {
			if id := strings.TrimSpace(datanorm.String(row.Get(cols.frameID))); id != "" {
				frames[id] = true
			}
		}

		objects := 0.0
		if cols.objects != "" {
			objects = datanorm.Float(row.Get(cols.objects))
		}
		m.TotalObjects += objects

		if cols.qcName == "" || !ValidQCName(row.Get(cols.qcName)) {
			continue
		}
		m.QCTotalObjects += objects
		if cols.errors != "" {
			m.TotalErrors += datanorm.Float(row.Get(cols.errors))
		}
	}

	m.TotalFrames = len(frames)
	if m.QCTotalObjects > 0 {
		rate := (m.QCTotalObjects - m.TotalErrors) / m.QCTotalObjects * 100
		m.QualityRatePercent = math.Round(rate*100) / 100
	}
	return m
}
