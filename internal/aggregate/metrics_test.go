package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desicrew/annotation-monitor/internal/project"
)

func TestSummarize(t *testing.T) {
	rows := taggedRows(t, project.CategoryProduction, "Production1", `[
		{"Annotator Name":"Alice","Frame ID":"F1","Number of Object Annotated":"5","Internal QC Name":"Carol","Internal Polygon Error Count":"1"},
		{"Annotator Name":"Alice","Frame ID":"F1","Number of Object Annotated":"3","Internal QC Name":"","Internal Polygon Error Count":""},
		{"Annotator Name":"Bob","Frame ID":"F2","Number of Object Annotated":"10","Internal QC Name":"Carol","Internal Polygon Error Count":"2"}
	]`)

	m := Summarize(rows)

	assert.Equal(t, 2, m.TotalFrames)
	assert.Equal(t, 18.0, m.TotalObjects)
	assert.Equal(t, 15.0, m.QCTotalObjects)
	assert.Equal(t, 3.0, m.TotalErrors)
	assert.Equal(t, 80.0, m.QualityRatePercent)
}

func TestSummarizeZeroQCObjects(t *testing.T) {
	rows := taggedRows(t, project.CategoryProduction, "Production1", `[
		{"Annotator Name":"Alice","Frame ID":"F1","Number of Object Annotated":"5","Internal QC Name":"nil"}
	]`)

	m := Summarize(rows)

	assert.Equal(t, 0.0, m.QCTotalObjects)
	// Never NaN: the rate is a defined zero when nothing was QC'd.
	assert.Equal(t, 0.0, m.QualityRatePercent)
}

func TestSummarizeRounding(t *testing.T) {
	rows := taggedRows(t, project.CategoryProduction, "Production1", `[
		{"Annotator Name":"Alice","Frame ID":"F1","Number of Object Annotated":"3","Internal QC Name":"Carol","Internal Polygon Error Count":"1"}
	]`)

	m := Summarize(rows)
	// (3-1)/3*100 = 66.666... rounds to two decimals.
	assert.Equal(t, 66.67, m.QualityRatePercent)
}

func TestSummarizeIgnoresHourlyRows(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"}
	]`)

	m := Summarize(rows)
	require.Equal(t, Metrics{}, m)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Metrics{}, Summarize(nil))
}
