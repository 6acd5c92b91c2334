package aggregate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/desicrew/annotation-monitor/internal/datanorm"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// Attendance statuses, strongest first. A later weaker observation never
// overwrites a stronger one already recorded for the same employee and sheet.
const (
	StatusPresent = "Present"
	StatusHalfDay = "P(1/2)"
	StatusAbsent  = "Absent"
	// StatusMissing marks an employee with no record at all in a sheet,
	// distinct from an explicit Absent.
	StatusMissing = "NIL"
)

var statusRank = map[string]int{StatusPresent: 3, StatusHalfDay: 2, StatusAbsent: 1}

// minPresentHours is the working-hours threshold separating a full day from a
// half day.
const minPresentHours = 5

// loginRecord is one decoded hourly login row.
type loginRecord struct {
	serial  string
	name    string
	empCode string
	status  string
}

// decodeLoginRow reads an hourly login row by column position. The login
// sheets carry no stable headers, so this is the one place that depends on
// spreadsheet layout: serial at column 0, name at column 1, employee code at
// column 2 (unless a header resolves), working hours at column 3, login time
// at column 5.
func decodeLoginRow(row sheets.Row) (loginRecord, bool) {
	headers := row.Columns()
	at := func(i int) any {
		if i < len(headers) {
			return row.Get(headers[i])
		}
		return nil
	}

	rec := loginRecord{
		serial: strings.TrimSpace(datanorm.String(at(0))),
		name:   strings.TrimSpace(datanorm.String(at(1))),
	}
	if rec.name == "" || strings.EqualFold(rec.name, "undefined") {
		return loginRecord{}, false
	}

	if key, ok := datanorm.FindKey(headers, "Employee Code"); ok {
		rec.empCode = strings.TrimSpace(datanorm.String(row.Get(key)))
	} else {
		rec.empCode = strings.TrimSpace(datanorm.String(at(2)))
	}

	loginTime := strings.TrimSpace(datanorm.String(at(5)))
	loggedIn := loginTime != "" && !strings.EqualFold(loginTime, "nil")
	switch {
	case !loggedIn:
		rec.status = StatusAbsent
	case datanorm.Float(at(3)) >= minPresentHours:
		rec.status = StatusPresent
	default:
		rec.status = StatusHalfDay
	}
	return rec, true
}

// attendance builds the pivot grid: one row per employee, one column per
// login sheet in calendar order, cells holding the best status observed.
func (e *Engine) attendance(rows []sheets.Row) ([]sheets.Row, []string) {
	type employee struct {
		serial   string
		empCode  string
		statuses map[string]string
	}

	var nameOrder []string
	employees := make(map[string]*employee)
	sheetSeen := make(map[string]bool)
	var sheetNames []string

	for _, row := range rows {
		if datanorm.String(row.Get(ingest.ColProjectCategory)) != project.CategoryHourly {
			continue
		}
		sheetName := datanorm.String(row.Get(ingest.ColSheetSource))
		if !strings.HasSuffix(strings.ToLower(sheetName), "login") {
			continue
		}

		rec, ok := decodeLoginRow(row)
		if !ok {
			continue
		}

		if !sheetSeen[sheetName] {
			sheetSeen[sheetName] = true
			sheetNames = append(sheetNames, sheetName)
		}

		emp, ok := employees[rec.name]
		if !ok {
			emp = &employee{serial: rec.serial, statuses: make(map[string]string)}
			employees[rec.name] = emp
			nameOrder = append(nameOrder, rec.name)
		}
		if emp.empCode == "" {
			emp.empCode = rec.empCode
		}
		if statusRank[rec.status] > statusRank[emp.statuses[sheetName]] {
			emp.statuses[sheetName] = rec.status
		}
	}

	sortSheetNames(sheetNames)

	// Order employees by original serial number when both parse, else by name.
	sort.SliceStable(nameOrder, func(i, j int) bool {
		si, errI := strconv.Atoi(employees[nameOrder[i]].serial)
		sj, errJ := strconv.Atoi(employees[nameOrder[j]].serial)
		if errI == nil && errJ == nil {
			return si < sj
		}
		return nameOrder[i] < nameOrder[j]
	})

	headers := append([]string{"SNO", "NAME", "EMP CODE"}, sheetNames...)

	out := make([]sheets.Row, 0, len(nameOrder))
	for i, name := range nameOrder {
		emp := employees[name]
		row := sheets.NewRow()
		row.Set("SNO", i+1)
		row.Set("NAME", name)
		row.Set("EMP CODE", emp.empCode)
		for _, sheetName := range sheetNames {
			status := emp.statuses[sheetName]
			if status == "" {
				status = StatusMissing
			}
			row.Set(sheetName, status)
		}
		out = append(out, row)
	}
	return out, headers
}

// sortSheetNames orders login sheet names by the date embedded in the name,
// ties broken by numeric-aware lexical order.
func sortSheetNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		oi := datanorm.SheetNameOrdinal(names[i])
		oj := datanorm.SheetNameOrdinal(names[j])
		if oi != oj {
			return oi < oj
		}
		return naturalLess(names[i], names[j])
	})
}

// naturalLess compares strings treating digit runs as numbers, so "2 SEP"
// sorts before "10 SEP".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := leadingInt(a)
			nb, rb := leadingInt(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingInt(s string) (int, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}
