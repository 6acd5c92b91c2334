package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desicrew/annotation-monitor/internal/project"
)

func TestAttendanceStatuses(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":2,"Name":"Bob","Emp Code":"E2","Hours":3,"Break":"","Login":"11:00"},
		{"SNO":3,"Name":"Cara","Emp Code":"E3","Hours":0,"Break":"","Login":""}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 3)
	assert.Equal(t, []string{"SNO", "NAME", "EMP CODE", "1ST SEP LOGIN"}, result.AttendanceHeaders)
	assert.Equal(t, StatusPresent, result.Attendance[0].Get("1ST SEP LOGIN"))
	assert.Equal(t, StatusHalfDay, result.Attendance[1].Get("1ST SEP LOGIN"))
	assert.Equal(t, StatusAbsent, result.Attendance[2].Get("1ST SEP LOGIN"))
}

func TestAttendanceBestStatusRetained(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":0,"Break":"","Login":""},
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":2,"Break":"","Login":"15:00"}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 1)
	assert.Equal(t, StatusPresent, result.Attendance[0].Get("1ST SEP LOGIN"))
}

func TestAttendanceSheetOrdering(t *testing.T) {
	raw := `[{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"}]`
	var rows = taggedRows(t, project.CategoryHourly, "5TH SEP LOGIN", raw)
	rows = append(rows, taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", raw)...)
	rows = append(rows, taggedRows(t, project.CategoryHourly, "25TH SEP LOGIN", raw)...)

	result := NewEngine().Aggregate(rows)

	assert.Equal(t,
		[]string{"SNO", "NAME", "EMP CODE", "1ST SEP LOGIN", "5TH SEP LOGIN", "25TH SEP LOGIN"},
		result.AttendanceHeaders)
}

func TestAttendanceMissingVsAbsent(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":2,"Name":"Bob","Emp Code":"E2","Hours":0,"Break":"","Login":""}
	]`)
	rows = append(rows, taggedRows(t, project.CategoryHourly, "2ND SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":6,"Break":"","Login":"9:45"}
	]`)...)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 2)
	byName := map[string]int{}
	for i, row := range result.Attendance {
		byName[row.Get("NAME").(string)] = i
	}
	bob := result.Attendance[byName["Bob"]]
	// Bob has an explicit Absent on the 1st but no record at all on the 2nd.
	assert.Equal(t, StatusAbsent, bob.Get("1ST SEP LOGIN"))
	assert.Equal(t, StatusMissing, bob.Get("2ND SEP LOGIN"))
}

func TestAttendanceRenumbersSerials(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":7,"Name":"Zed","Emp Code":"E9","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":2,"Name":"Amy","Emp Code":"E2","Hours":8,"Break":"","Login":"9:30"}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 2)
	// Sorted by original serial, then renumbered 1..N.
	assert.Equal(t, "Amy", result.Attendance[0].Get("NAME"))
	assert.Equal(t, 1, result.Attendance[0].Get("SNO"))
	assert.Equal(t, "Zed", result.Attendance[1].Get("NAME"))
	assert.Equal(t, 2, result.Attendance[1].Get("SNO"))
}

func TestAttendanceNameFallbackWhenSerialUnparseable(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":9,"Name":"Zed","Emp Code":"E9","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":"x","Name":"Amy","Emp Code":"E2","Hours":8,"Break":"","Login":"9:30"}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 2)
	// With one serial unparseable the pair falls back to name order.
	assert.Equal(t, "Amy", result.Attendance[0].Get("NAME"))
	assert.Equal(t, "Zed", result.Attendance[1].Get("NAME"))
}

func TestAttendanceSkipsUndefinedNames(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"undefined","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"},
		{"SNO":2,"Name":"Alice","Emp Code":"E2","Hours":8,"Break":"","Login":"9:30"}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 1)
	assert.Equal(t, "Alice", result.Attendance[0].Get("NAME"))
}

func TestAttendanceIgnoresNonLoginSheets(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "Credentials", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"9:30"}
	]`)

	result := NewEngine().Aggregate(rows)
	assert.Empty(t, result.Attendance)
}

func TestAttendanceNilLoginMeansAbsent(t *testing.T) {
	rows := taggedRows(t, project.CategoryHourly, "1ST SEP LOGIN", `[
		{"SNO":1,"Name":"Alice","Emp Code":"E1","Hours":8,"Break":"","Login":"nil"}
	]`)

	result := NewEngine().Aggregate(rows)

	require.Len(t, result.Attendance, 1)
	assert.Equal(t, StatusAbsent, result.Attendance[0].Get("1ST SEP LOGIN"))
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("2 SEP", "10 SEP"))
	assert.False(t, naturalLess("10 SEP", "2 SEP"))
	assert.True(t, naturalLess("1ST SEP LOGIN", "1ST SEP LOGIN B"))
	assert.True(t, naturalLess("A2", "A10"))
}
