package models

import (
	"strings"
	"time"
)

// Department is an academic department referenced by name from
// subjects and staff records.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentFilter captures filtering options for listing departments.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// NormalizeKey folds a name into the canonical comparison key used for
// every cross-entity match on department or subject names. Upstream
// data references departments by display name, so all comparisons go
// through this one function.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
