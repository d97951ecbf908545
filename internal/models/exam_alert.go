package models

import (
	"time"

	"github.com/lib/pq"
)

// ExamAlert is an administrator-defined scheduling window. Exams must
// fall within [StartDate, EndDate]; Holidays lists dates inside the
// window that are excluded from scheduling.
type ExamAlert struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	StartDate time.Time      `db:"start_date" json:"start_date"`
	EndDate   time.Time      `db:"end_date" json:"end_date"`
	Year      int            `db:"year" json:"year"`
	Semester  int            `db:"semester" json:"semester"`
	Holidays  pq.StringArray `db:"holidays" json:"holidays"`
	CreatedBy string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ExamAlertFilter captures filters for listing alerts.
type ExamAlertFilter struct {
	Year      int
	Semester  int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
