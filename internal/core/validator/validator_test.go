package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excel-import-service/internal/core/importer"
)

func row(line int, cells ...string) importer.RawRow {
	return importer.RawRow{Line: line, Cells: cells}
}

func TestRowValidator_Validate_AcceptsWellFormedRow(t *testing.T) {
	v := New()

	validated, rejection := v.Validate(row(2, "42", "John Smith", "05.03.2024"))

	require.Nil(t, rejection)
	assert.Equal(t, 2, validated.Line)
	assert.Equal(t, int64(42), validated.FileID)
	assert.Equal(t, "John Smith", validated.Name)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), validated.Date)
}

func TestRowValidator_Validate_IDRules(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		id     string
		reason string
	}{
		{"empty", "", "ID is required"},
		{"zero", "0", "ID must be a positive integer"},
		{"negative", "-5", "ID must be a positive integer"},
		{"leading zeros", "007", "ID must be a positive integer"},
		{"decimal", "1.5", "ID must be a positive integer"},
		{"alphanumeric", "12a", "ID must be a positive integer"},
		{"plus sign", "+3", "ID must be a positive integer"},
		{"whitespace", " 1", "ID must be a positive integer"},
		{"overflow", "99999999999999999999", "ID must be a positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rejection := v.Validate(row(2, tt.id, "Anna", "01.01.2024"))
			require.NotNil(t, rejection)
			assert.Equal(t, []string{tt.reason}, rejection.Reasons)
		})
	}
}

func TestRowValidator_Validate_DateRules(t *testing.T) {
	v := New()

	valid := []string{"01.01.2024", "29.02.2024", "31.12.1999"}
	for _, d := range valid {
		_, rejection := v.Validate(row(2, "1", "Anna", d))
		assert.Nil(t, rejection, "expected %q to be accepted", d)
	}

	invalid := []struct {
		name   string
		date   string
		reason string
	}{
		{"empty", "", "Date is required"},
		{"iso format", "2024-03-05", "Date must be valid and in format d.m.Y"},
		{"slashes", "05/03/2024", "Date must be valid and in format d.m.Y"},
		{"unpadded", "5.3.2024", "Date must be valid and in format d.m.Y"},
		{"impossible day", "32.01.2024", "Date must be valid and in format d.m.Y"},
		{"impossible month", "01.13.2024", "Date must be valid and in format d.m.Y"},
		{"nonleap february", "29.02.2023", "Date must be valid and in format d.m.Y"},
		{"garbage", "yesterday", "Date must be valid and in format d.m.Y"},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, rejection := v.Validate(row(2, "1", "Anna", tt.date))
			require.NotNil(t, rejection)
			assert.Equal(t, []string{tt.reason}, rejection.Reasons)
		})
	}
}

func TestRowValidator_Validate_NameRules(t *testing.T) {
	v := New()

	valid := []string{"Anna", "John Smith", "a", "MARY ANN"}
	for _, n := range valid {
		_, rejection := v.Validate(row(2, "1", n, "01.01.2024"))
		assert.Nil(t, rejection, "expected %q to be accepted", n)
	}

	invalid := []string{"", "Anna1", "José", "O'Brien", "Anne-Marie", "Анна", "name!"}
	for _, n := range invalid {
		_, rejection := v.Validate(row(2, "1", n, "01.01.2024"))
		require.NotNil(t, rejection, "expected %q to be rejected", n)
		assert.Equal(t, []string{"Name must contain only English letters and spaces"}, rejection.Reasons)
	}
}

func TestRowValidator_Validate_CollectsAllReasonsInOrder(t *testing.T) {
	v := New()

	_, rejection := v.Validate(row(7, "abc", "Anna1", "not a date"))

	require.NotNil(t, rejection)
	assert.Equal(t, 7, rejection.Line)
	assert.Equal(t, []string{
		"ID must be a positive integer",
		"Date must be valid and in format d.m.Y",
		"Name must contain only English letters and spaces",
	}, rejection.Reasons)
}

func TestRowValidator_Validate_ShortRowMissingCells(t *testing.T) {
	v := New()

	// Only the ID cell present: date and name are both missing.
	_, rejection := v.Validate(row(3, "10"))

	require.NotNil(t, rejection)
	assert.Equal(t, []string{
		"Date is required",
		"Name must contain only English letters and spaces",
	}, rejection.Reasons)
}

func TestRowValidator_Validate_EmptyRowAllReasons(t *testing.T) {
	v := New()

	_, rejection := v.Validate(row(4))

	require.NotNil(t, rejection)
	assert.Equal(t, []string{
		"ID is required",
		"Date is required",
		"Name must contain only English letters and spaces",
	}, rejection.Reasons)
}
