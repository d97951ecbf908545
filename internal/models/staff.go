package models

import "time"

// Staff is a teaching staff record carrying an informally declared
// subject (name + code + department). The declared subject is not a
// canonical Subject row; the two are reconciled at scheduling time.
type Staff struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Email       string    `db:"email" json:"email"`
	Department  string    `db:"department" json:"department"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter captures filtering options for listing staff.
type StaffFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
