package sheets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowPreservesColumnOrder(t *testing.T) {
	raw := `{"SNO":1,"Name":"Alice","Emp Code":"E7","Hours":8,"Break":"","Login":"9:30"}`

	var row Row
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	assert.Equal(t, []string{"SNO", "Name", "Emp Code", "Hours", "Break", "Login"}, row.Columns())
	assert.Equal(t, "Alice", row.Get("Name"))
	assert.Equal(t, json.Number("8"), row.Get("Hours"))
}

func TestRowRoundTrip(t *testing.T) {
	raw := `{"z":"last?","a":"first?","m":42}`

	var row Row
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last?","a":"first?","m":42}`, string(out))
}

func TestRowLargeNumbersSurvive(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"Frame ID":90071992547409923}`), &row))

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"Frame ID":90071992547409923}`, string(out))
}

func TestRowSetAndClone(t *testing.T) {
	row := NewRow()
	row.Set("a", 1)
	row.Set("b", 2)
	row.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, row.Columns())
	assert.Equal(t, 3, row.Get("a"))

	clone := row.Clone()
	clone.Set("c", 4)
	assert.Equal(t, 2, row.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestRowRejectsNonObject(t *testing.T) {
	var row Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &row))
}

func TestFilterSheets(t *testing.T) {
	names := []string{"1ST SEP LOGIN", "Credentials Login", "Production1", "QC Review", "Summary"}

	assert.Equal(t, []string{"1ST SEP LOGIN"}, FilterSheets("hourly", names))
	assert.Equal(t, []string{"Production1", "QC Review"}, FilterSheets("production", names))
	assert.Empty(t, FilterSheets("other", names))
}
