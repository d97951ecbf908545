package models

import "time"

// ExamSchedule is one scheduling commitment per (subject, department)
// pair. At most one row exists per pair; repeated scheduling updates
// the row in place. PriorityDepartment is set only on rows created as
// a side effect of a shared-subject fan-out and records the department
// whose action triggered the row.
type ExamSchedule struct {
	ID                 string    `db:"id" json:"id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	DepartmentID       string    `db:"department_id" json:"department_id"`
	ExamDate           time.Time `db:"exam_date" json:"exam_date"`
	ExamTime           *string   `db:"exam_time" json:"exam_time,omitempty"`
	AssignedBy         string    `db:"assigned_by" json:"assigned_by"`
	PriorityDepartment *string   `db:"priority_department" json:"priority_department,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledExam is the joined read view consumed by dashboards and the
// circular generator.
type ScheduledExam struct {
	ID                 string    `db:"id" json:"id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	SubjectName        string    `db:"subject_name" json:"subject_name"`
	SubjectCode        string    `db:"subject_code" json:"subject_code"`
	DepartmentID       string    `db:"department_id" json:"department_id"`
	DepartmentName     string    `db:"department_name" json:"department_name"`
	ExamDate           time.Time `db:"exam_date" json:"exam_date"`
	ExamTime           *string   `db:"exam_time" json:"exam_time,omitempty"`
	AssignedBy         string    `db:"assigned_by" json:"assigned_by"`
	PriorityDepartment *string   `db:"priority_department" json:"priority_department,omitempty"`
}

// VerdictStatus classifies the outcome of a pre-submission conflict check.
type VerdictStatus string

const (
	VerdictOK       VerdictStatus = "ok"
	VerdictConflict VerdictStatus = "conflict"
	VerdictInfo     VerdictStatus = "info"
)

// ScheduleVerdict is the conflict checker's answer for a candidate
// (department, date, subject) assignment. A conflict blocks
// submission; an info verdict is advisory only.
type ScheduleVerdict struct {
	Status     VerdictStatus `json:"status"`
	Message    string        `json:"message,omitempty"`
	PinnedDate *time.Time    `json:"pinned_date,omitempty"`
	PinnedBy   string        `json:"pinned_by,omitempty"`
}

// ScheduleResult reports the departments affected by a committed
// schedule and the date they converged on.
type ScheduleResult struct {
	SubjectID           string    `json:"subject_id"`
	SubjectName         string    `json:"subject_name"`
	ExamDate            time.Time `json:"exam_date"`
	ExamTime            *string   `json:"exam_time,omitempty"`
	ActingDepartment    string    `json:"acting_department"`
	AffectedDepartments []string  `json:"affected_departments"`
}

// DateOnly is the wire format for exam dates.
const DateOnly = "2006-01-02"
