package domain

import (
	"time"
)

// Row is a persisted spreadsheet row. Rows are insert-only: the import
// pipeline never updates or deletes them, and a duplicate FileID is rejected
// upstream rather than merged. The unique index is the storage-level backstop
// for the inserter's explicit duplicate check.
type Row struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	FileID int64     `gorm:"column:file_id;uniqueIndex:idx_rows_file_id;not null" json:"file_id"`
	Name   string    `gorm:"type:varchar(255);not null" json:"name"`
	Date   time.Time `gorm:"type:date;not null" json:"date"`
}

// TableName specifies the table name for GORM
func (Row) TableName() string {
	return "rows"
}
