package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type conflictScheduleRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error)
	ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error)
}

// CheckScheduleRequest is a candidate assignment to vet before submission.
type CheckScheduleRequest struct {
	Department  string `json:"department" validate:"required"`
	SubjectName string `json:"subject_name" validate:"required"`
	ExamDate    string `json:"exam_date" validate:"required,datetime=2006-01-02"`
}

// ConflictService answers whether a candidate (department, date,
// subject) assignment would violate a scheduling invariant. It reads a
// snapshot and never mutates state; the committer re-validates at
// commit time because this snapshot may be stale by then.
type ConflictService struct {
	schedules conflictScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(schedules conflictScheduleRepository, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{schedules: schedules, validator: validate, logger: logger}
}

// Check classifies the candidate assignment.
//
// A hard conflict means the department already sits an exam on the
// candidate date and submission must be blocked. An info verdict means
// the subject is shared and another department has already pinned a
// different date; it never blocks submission, but the committer will
// reject any date other than the pinned one.
func (s *ConflictService) Check(ctx context.Context, req CheckScheduleRequest) (*models.ScheduleVerdict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}

	date, err := time.Parse(models.DateOnly, req.ExamDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam date")
	}

	deptKey := models.NormalizeKey(req.Department)
	subjectKey := models.NormalizeKey(req.SubjectName)

	onDate, err := s.schedules.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules for date")
	}

	for _, row := range onDate {
		if models.NormalizeKey(row.DepartmentName) != deptKey {
			continue
		}
		if models.NormalizeKey(row.SubjectName) == subjectKey {
			// Re-submitting the department's own assignment for this
			// subject overwrites at commit, so it is not a conflict.
			continue
		}
		return &models.ScheduleVerdict{
			Status:  models.VerdictConflict,
			Message: fmt.Sprintf("another exam is already scheduled for %s on %s", row.DepartmentName, req.ExamDate),
		}, nil
	}

	existing, err := s.schedules.ListBySubjectName(ctx, req.SubjectName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules for subject")
	}

	for _, row := range existing {
		if !sameDate(row.ExamDate, date) {
			pinned := row.ExamDate
			return &models.ScheduleVerdict{
				Status:     models.VerdictInfo,
				Message:    fmt.Sprintf("subject %q is a shared subject already scheduled by %s on %s; all departments teaching it must use that date", req.SubjectName, row.DepartmentName, pinned.Format(models.DateOnly)),
				PinnedDate: &pinned,
				PinnedBy:   row.DepartmentName,
			}, nil
		}
	}

	return &models.ScheduleVerdict{Status: models.VerdictOK}, nil
}

// sameDate compares calendar days ignoring time-of-day and zone drift
// introduced by DATE column scanning.
func sameDate(a, b time.Time) bool {
	return a.Format(models.DateOnly) == b.Format(models.DateOnly)
}
