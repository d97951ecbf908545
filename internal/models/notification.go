package models

import "time"

// SharedScheduleNotice is the payload of a notification job emitted
// after a shared subject is committed. Staff teaching the subject in
// other departments are informed that the exam date is now pinned.
type SharedScheduleNotice struct {
	SubjectName      string    `json:"subject_name"`
	ExamDate         time.Time `json:"exam_date"`
	ActingDepartment string    `json:"acting_department"`
}
