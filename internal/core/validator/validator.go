package validator

import (
	"regexp"
	"strconv"
	"time"

	"excel-import-service/internal/core/importer"
)

// Fixed column order of the source sheet.
const (
	colID = iota
	colName
	colDate
)

// DateLayout is the external date format the sheet uses (d.m.Y, zero-padded).
const DateLayout = "02.01.2006"

const (
	msgIDRequired   = "ID is required"
	msgIDInvalid    = "ID must be a positive integer"
	msgDateRequired = "Date is required"
	msgDateInvalid  = "Date must be valid and in format d.m.Y"
	msgNameInvalid  = "Name must contain only English letters and spaces"
)

var (
	// Strictly positive decimal integer: no leading zeros, signs or decimals.
	idPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

	// One or more ASCII letters or spaces. Empty names fail this rule.
	namePattern = regexp.MustCompile(`^[A-Za-z ]+$`)
)

// RowValidator checks and normalizes one raw row into a canonical record.
// It is pure: no I/O, no shared state.
type RowValidator struct{}

// New creates a row validator.
func New() *RowValidator {
	return &RowValidator{}
}

// Validate evaluates every rule independently so all applicable errors for a
// row are collected before rejecting. Reasons are ordered ID, date, name.
// On success the identifier is an integer and the date is a calendar date
// (rendered canonically as year-month-day downstream).
func (v *RowValidator) Validate(row importer.RawRow) (importer.ValidatedRow, *importer.RejectionRecord) {
	var reasons []string

	var fileID int64
	idCell, ok := row.Cell(colID)
	switch {
	case !ok || idCell == "":
		reasons = append(reasons, msgIDRequired)
	case !idPattern.MatchString(idCell):
		reasons = append(reasons, msgIDInvalid)
	default:
		parsed, err := strconv.ParseInt(idCell, 10, 64)
		if err != nil {
			// Digits only but out of int64 range.
			reasons = append(reasons, msgIDInvalid)
		} else {
			fileID = parsed
		}
	}

	var date time.Time
	dateCell, ok := row.Cell(colDate)
	if !ok || dateCell == "" {
		reasons = append(reasons, msgDateRequired)
	} else if parsed, valid := parseStrictDate(dateCell); !valid {
		reasons = append(reasons, msgDateInvalid)
	} else {
		date = parsed
	}

	// An absent name cell defaults to empty, which fails the pattern:
	// names are required to be non-empty.
	name, _ := row.Cell(colName)
	if !namePattern.MatchString(name) {
		reasons = append(reasons, msgNameInvalid)
	}

	if len(reasons) > 0 {
		return importer.ValidatedRow{}, &importer.RejectionRecord{
			Line:    row.Line,
			Reasons: reasons,
		}
	}

	return importer.ValidatedRow{
		Line:   row.Line,
		FileID: fileID,
		Name:   name,
		Date:   date,
	}, nil
}

// parseStrictDate parses under the fixed d.m.Y layout and requires the value
// to round-trip exactly, guarding against lenient parsing of impossible
// calendar dates and under-padded inputs.
func parseStrictDate(value string) (time.Time, bool) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	if parsed.Format(DateLayout) != value {
		return time.Time{}, false
	}
	return parsed, true
}
