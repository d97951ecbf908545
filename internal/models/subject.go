package models

import "time"

// Subject is a canonical teachable unit owned by one department. A
// shared subject is taught under the same name, possibly under a
// different code, by several departments; SharedSubjectCode correlates
// those instances.
type Subject struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Name              string    `db:"name" json:"name"`
	Department        string    `db:"department" json:"department"`
	Year              int       `db:"year" json:"year"`
	IsShared          bool      `db:"is_shared" json:"is_shared"`
	SharedSubjectCode *string   `db:"shared_subject_code" json:"shared_subject_code,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Department string
	Year       int
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
