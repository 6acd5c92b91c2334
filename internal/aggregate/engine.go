// Package aggregate derives the dashboard's summary views from the merged,
// provenance-tagged row set. Everything here is a pure function of the full
// row collection and is recomputed from scratch on every refresh.
package aggregate

import (
	"sort"
	"strings"

	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// SummaryRecord is one row of the annotator or user summary view.
type SummaryRecord struct {
	Name        string  `json:"name"`
	FrameCount  int     `json:"frameCount"`
	ObjectCount float64 `json:"objectCount"`
}

// QCRecord is one row of a QC summary view.
type QCRecord struct {
	Name        string  `json:"name"`
	ObjectCount float64 `json:"objectCount"`
	ErrorCount  float64 `json:"errorCount"`
}

// PerformanceRecord is one entry of the combined top-performer ranking.
type PerformanceRecord struct {
	Name        string  `json:"name"`
	ObjectCount float64 `json:"objectCount"`
}

// Result bundles every derived view for one merged row set.
type Result struct {
	Annotators          []SummaryRecord     `json:"annotators"`
	Users               []SummaryRecord     `json:"users"`
	QCAnnotators        []QCRecord          `json:"qcAnnotators"`
	QCUsers             []QCRecord          `json:"qcUsers"`
	CombinedPerformance []PerformanceRecord `json:"combinedPerformance"`
	Attendance          []sheets.Row        `json:"attendance"`
	AttendanceHeaders   []string            `json:"attendanceHeaders"`
}

// Engine computes the summary views. IdentityDomain is appended to bare
// annotator and user names so identities match across sheets; empty disables
// canonicalization.
type Engine struct {
	IdentityDomain string
}

// NewEngine creates an engine with the default identity domain.
func NewEngine() *Engine {
	return &Engine{IdentityDomain: datanorm.DefaultIdentityDomain}
}

// columns holds the per-call header resolution, done once against the union
// of all observed headers rather than per row.
type columns struct {
	annotator string
	user      string
	frameID   string
	objects   string
	qcName    string
	errors    string
}

func resolveColumns(rows []sheets.Row) columns {
	seen := make(map[string]bool)
	var union []string
	for _, row := range rows {
		for _, h := range row.Columns() {
			if !seen[h] {
				seen[h] = true
				union = append(union, h)
			}
		}
	}

	var c columns
	c.annotator, _ = datanorm.FindKey(union, datanorm.FieldAnnotatorName)
	c.user, _ = datanorm.FindKey(union, datanorm.FieldUserName)
	c.frameID, _ = datanorm.FindKey(union, datanorm.FieldFrameID)
	c.objects, _ = datanorm.FindKey(union, datanorm.FieldObjectCount)
	c.qcName, _ = datanorm.FindKey(union, datanorm.FieldQCName)
	c.errors, _ = datanorm.FindKey(union, datanorm.FieldErrorCount)
	return c
}

// summaryAcc accumulates frame ids and object counts per identity, keeping
// first-seen insertion order so repeated runs over the same data produce the
// same record order.
type summaryAcc struct {
	order  []string
	frames map[string]map[string]bool
	objs   map[string]float64
}

func newSummaryAcc() *summaryAcc {
	return &summaryAcc{
		frames: make(map[string]map[string]bool),
		objs:   make(map[string]float64),
	}
}

func (a *summaryAcc) add(key, frameID string, objects float64) {
	if _, ok := a.objs[key]; !ok {
		a.order = append(a.order, key)
		a.frames[key] = make(map[string]bool)
	}
	if frameID != "" {
		a.frames[key][frameID] = true
	}
	a.objs[key] += objects
}

// records flattens the accumulator. bare strips the identity domain for the
// user-keyed views; annotator-keyed views keep the canonical form.
func (a *summaryAcc) records(bare bool) []SummaryRecord {
	out := make([]SummaryRecord, 0, len(a.order))
	for _, key := range a.order {
		name := key
		if bare {
			name = datanorm.BareName(key)
		}
		out = append(out, SummaryRecord{
			Name:        name,
			FrameCount:  len(a.frames[key]),
			ObjectCount: a.objs[key],
		})
	}
	return out
}

// qcAcc accumulates QC object and error totals per identity.
type qcAcc struct {
	order []string
	objs  map[string]float64
	errs  map[string]float64
}

func newQCAcc() *qcAcc {
	return &qcAcc{objs: make(map[string]float64), errs: make(map[string]float64)}
}

func (a *qcAcc) add(key string, objects, errors float64) {
	if _, ok := a.objs[key]; !ok {
		a.order = append(a.order, key)
	}
	a.objs[key] += objects
	a.errs[key] += errors
}

func (a *qcAcc) records(bare bool) []QCRecord {
	out := make([]QCRecord, 0, len(a.order))
	for _, key := range a.order {
		name := key
		if bare {
			name = datanorm.BareName(key)
		}
		out = append(out, QCRecord{
			Name:        name,
			ObjectCount: a.objs[key],
			ErrorCount:  a.errs[key],
		})
	}
	return out
}

// qcNameInvalid lists the placeholder values that mean "no QC reviewed this
// row" even though the cell is non-empty.
var qcNameInvalid = map[string]bool{"nil": true, "undefined": true, "-": true, "0": true}

// ValidQCName reports whether a raw QC-name cell names a real reviewer.
func ValidQCName(v any) bool {
	s := strings.TrimSpace(datanorm.String(v))
	if s == "" {
		return false
	}
	return !qcNameInvalid[strings.ToLower(s)]
}

// qcSheet reports whether a sheet name looks like a dedicated QC sheet. Rows
// on those sheets are reviews, not production being reviewed, and must not
// double-count into the QC accumulators.
func qcSheet(name string) bool {
	return strings.Contains(strings.ToLower(name), "qc")
}

// Aggregate computes every summary view from the merged row set.
func (e *Engine) Aggregate(rows []sheets.Row) Result {
	cols := resolveColumns(rows)

	annotators := newSummaryAcc()
	users := newSummaryAcc()
	qcAnnotators := newQCAcc()
	qcUsers := newQCAcc()
	combined := newSummaryAcc()

	for _, row := range rows {
		if datanorm.String(row.Get(ingest.ColProjectCategory)) != project.CategoryProduction {
			continue
		}

		annotator := ""
		if cols.annotator != "" {
			annotator = datanorm.CanonicalIdentity(row.Get(cols.annotator), e.IdentityDomain)
		}
		user := ""
		if cols.user != "" {
			user = datanorm.CanonicalIdentity(row.Get(cols.user), e.IdentityDomain)
		}

		frameID := ""
		if cols.frameID != "" {
			frameID = strings.TrimSpace(datanorm.String(row.Get(cols.frameID)))
		}
		objects := 0.0
		if cols.objects != "" {
			objects = datanorm.Float(row.Get(cols.objects))
		}

		primary := annotator
		if primary == "" {
			primary = user
		}
		if primary != "" {
			annotators.add(primary, frameID, objects)
			combined.add(primary, "", objects)
		}
		if user != "" {
			users.add(user, frameID, objects)
		}

		// QC review rows on a QC-named sheet are the reviews themselves,
		// not production under review.
		if cols.qcName == "" || !ValidQCName(row.Get(cols.qcName)) {
			continue
		}
		if qcSheet(datanorm.String(row.Get(ingest.ColSheetSource))) {
			continue
		}
		errCount := 0.0
		if cols.errors != "" {
			errCount = datanorm.Float(row.Get(cols.errors))
		}
		if primary != "" {
			qcAnnotators.add(primary, objects, errCount)
		}
		if user != "" {
			qcUsers.add(user, objects, errCount)
		}
	}

	attendance, attendanceHeaders := e.attendance(rows)

	return Result{
		Annotators:          annotators.records(false),
		Users:               users.records(true),
		QCAnnotators:        qcAnnotators.records(false),
		QCUsers:             qcUsers.records(true),
		CombinedPerformance: ranking(combined),
		Attendance:          attendance,
		AttendanceHeaders:   attendanceHeaders,
	}
}

// ranking flattens the combined accumulator into a list sorted by object
// count descending, ties kept in insertion order.
func ranking(acc *summaryAcc) []PerformanceRecord {
	out := make([]PerformanceRecord, 0, len(acc.order))
	for _, key := range acc.order {
		out = append(out, PerformanceRecord{
			Name:        key,
			ObjectCount: acc.objs[key],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ObjectCount > out[j].ObjectCount
	})
	return out
}

// TopPerformers returns the first n entries of the combined ranking.
func TopPerformers(ranked []PerformanceRecord, n int) []PerformanceRecord {
	if len(ranked) < n {
		n = len(ranked)
	}
	return ranked[:n]
}
