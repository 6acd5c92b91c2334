// Package datanorm resolves heterogeneous spreadsheet headers to canonical
// field names and normalizes raw cell values. Sheets belonging to the same
// project routinely disagree on header spelling ("Annotator Name" vs
// "annotator_name" vs "Worker"), so every consumer resolves columns through
// FindKey instead of assuming a fixed header.
package datanorm

import (
	"regexp"
	"strings"
)

// Canonical field names used across the aggregation pipeline.
const (
	FieldAnnotatorName = "Annotator Name"
	FieldUserName      = "UserName"
	FieldFrameID       = "Frame ID"
	FieldObjectCount   = "Number of Object Annotated"
	FieldQCName        = "Internal QC Name"
	FieldErrorCount    = "Internal Polygon Error Count"
	FieldDate          = "Date"
)

var keySeparators = regexp.MustCompile(`[\s\-_]+`)

// NormalizeKey collapses a header name for comparison: lowercase with all
// whitespace, hyphen, and underscore runs removed.
func NormalizeKey(s string) string {
	return strings.TrimSpace(keySeparators.ReplaceAllString(strings.ToLower(s), ""))
}

// columnAliases maps a normalized canonical name to the normalized header
// spellings that mean the same thing. Exact matches always win over aliases,
// so a short alias can never steal a column that literally matches.
var columnAliases = map[string][]string{
	"username":      {"username", "user", "userid"},
	"annotatorname": {"annotatorname", "annotator", "name", "worker"},
	"frameid":       {"frameid", "frame", "id", "imageid"},
	"numberofobjectannotated": {
		"numberofobjectannotated", "objects", "objectcount",
		"totalobjects", "annotatedobjects",
	},
	"internalqcname":           {"internalqcname", "qcname", "qc"},
	"internalpolygonerrorcount": {"internalpolygonerrorcount", "errorcount", "errors", "polygonerrors"},
	"date":                      {"date", "timestamp", "createdat", "day", "time", "period", "entrydate"},
	"employeecode":              {"employeecode", "empcode", "empid"},
	"dob":                       {"dob", "dateofbirth", "birthdate", "birthday"},
}

// FindKey returns the observed header that best matches the canonical field
// name. Exact normalized matches take priority; the alias table is a
// fallback. When two observed keys normalize identically the first occurrence
// wins. A false result means the column is absent — callers degrade the
// dependent computation, they do not fail.
func FindKey(keys []string, canonical string) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}

	target := NormalizeKey(canonical)

	for _, k := range keys {
		if NormalizeKey(k) == target {
			return k, true
		}
	}

	candidates, ok := columnAliases[target]
	if !ok {
		candidates = []string{target}
	}
	for _, k := range keys {
		nk := NormalizeKey(k)
		for _, c := range candidates {
			if nk == c {
				return k, true
			}
		}
	}

	return "", false
}
