package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type schedulingScheduleRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error)
	ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error)
	Upsert(ctx context.Context, schedule *models.ExamSchedule) error
}

type schedulingSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByName(ctx context.Context, name string) ([]models.Subject, error)
}

type schedulingStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type schedulingDepartmentRepository interface {
	FindByName(ctx context.Context, name string) (*models.Department, error)
}

type staffSubjectResolver interface {
	Resolve(ctx context.Context, staff *models.Staff) (*models.Subject, error)
}

type noticePublisher interface {
	Publish(notice models.SharedScheduleNotice) error
}

type scheduleCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Schedule target kinds accepted by ScheduleExamRequest.
const (
	TargetStaff   = "staff"
	TargetSubject = "subject"
)

// ScheduleTarget identifies what is being scheduled: a staff member
// (scheduling their declared subject) or a subject directly.
type ScheduleTarget struct {
	Kind string `json:"kind" validate:"required,oneof=staff subject"`
	ID   string `json:"id" validate:"required"`
}

// ScheduleExamRequest is a submission to commit an exam assignment.
type ScheduleExamRequest struct {
	Target     ScheduleTarget `json:"target" validate:"required"`
	ExamDate   string         `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ExamTime   string         `json:"exam_time" validate:"omitempty"`
	AssignedBy string         `json:"assigned_by" validate:"required"`
}

// SchedulingService commits exam schedule assignments. It re-validates
// conflicts against current state at commit time, resolves staff
// targets onto canonical subjects, and fans a shared-subject date out
// to every department teaching that subject.
type SchedulingService struct {
	schedules   schedulingScheduleRepository
	subjects    schedulingSubjectRepository
	staff       schedulingStaffRepository
	departments schedulingDepartmentRepository
	resolver    staffSubjectResolver
	publisher   noticePublisher
	cache       scheduleCacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSchedulingService instantiates SchedulingService. publisher,
// cache, and metrics may be nil; the corresponding side effects are
// then skipped.
func NewSchedulingService(
	schedules schedulingScheduleRepository,
	subjects schedulingSubjectRepository,
	staff schedulingStaffRepository,
	departments schedulingDepartmentRepository,
	resolver staffSubjectResolver,
	publisher noticePublisher,
	cache scheduleCacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingService{
		schedules:   schedules,
		subjects:    subjects,
		staff:       staff,
		departments: departments,
		resolver:    resolver,
		publisher:   publisher,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Schedule commits the assignment described by req.
//
// The submission is rejected with a conflict error when the acting
// department already sits an exam on the date, or when the subject is
// shared and pinned to a different date by an earlier assignment. For
// staff targets the committed date is propagated to every other
// department teaching the same subject name; committing the same
// assignment twice updates rows in place rather than duplicating them.
func (s *SchedulingService) Schedule(ctx context.Context, req ScheduleExamRequest) (*models.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	date, err := time.Parse(models.DateOnly, req.ExamDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam date")
	}

	var (
		targetStaff *models.Staff
		subject     *models.Subject
		actingDept  string
		subjectName string
	)

	switch req.Target.Kind {
	case TargetStaff:
		targetStaff, err = s.staff.FindByID(ctx, req.Target.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
		}
		if strings.TrimSpace(targetStaff.SubjectName) == "" || strings.TrimSpace(targetStaff.SubjectCode) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "staff member has no declared subject")
		}
		actingDept = strings.TrimSpace(targetStaff.Department)
		subjectName = strings.TrimSpace(targetStaff.SubjectName)
	case TargetSubject:
		subject, err = s.subjects.FindByID(ctx, req.Target.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		actingDept = strings.TrimSpace(subject.Department)
		subjectName = strings.TrimSpace(subject.Name)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown schedule target kind")
	}

	if err := s.ensureDepartmentFree(ctx, subjectName, actingDept, date); err != nil {
		return nil, err
	}
	if err := s.ensureDateNotPinnedElsewhere(ctx, subjectName, actingDept, date); err != nil {
		return nil, err
	}

	if targetStaff != nil {
		subject, err = s.resolver.Resolve(ctx, targetStaff)
		if err != nil {
			return nil, err
		}
	}

	actingRow, err := s.departments.FindByName(ctx, actingDept)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("department %q not found", actingDept))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}

	var examTime *string
	if trimmed := strings.TrimSpace(req.ExamTime); trimmed != "" {
		examTime = &trimmed
	}

	type upsertTarget struct {
		subjectID string
		deptID    string
		deptName  string
		priority  *string
	}

	targets := []upsertTarget{{subjectID: subject.ID, deptID: actingRow.ID, deptName: actingRow.Name}}

	// Staff-driven assignments pin the date for every department that
	// teaches the same subject name. Subject-only assignments stay
	// scoped to the one department.
	if targetStaff != nil {
		peers, err := s.subjects.ListByName(ctx, subjectName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects sharing name")
		}
		deptKey := models.NormalizeKey(actingDept)
		for _, peer := range peers {
			if peer.ID == subject.ID || models.NormalizeKey(peer.Department) == deptKey {
				continue
			}
			peerDept, err := s.departments.FindByName(ctx, peer.Department)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("department %q not found", peer.Department))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
			}
			priority := actingRow.ID
			targets = append(targets, upsertTarget{subjectID: peer.ID, deptID: peerDept.ID, deptName: peerDept.Name, priority: &priority})
		}
	}

	affected := make([]string, 0, len(targets))
	for _, t := range targets {
		schedule := &models.ExamSchedule{
			ID:                 uuid.NewString(),
			SubjectID:          t.subjectID,
			DepartmentID:       t.deptID,
			ExamDate:           date,
			ExamTime:           examTime,
			AssignedBy:         req.AssignedBy,
			PriorityDepartment: t.priority,
		}
		if err := s.schedules.Upsert(ctx, schedule); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exam schedule")
		}
		affected = append(affected, t.deptName)
	}

	s.metrics.IncScheduleCommitted()

	// Side effects after commit are best effort and never fail the
	// request.
	if s.publisher != nil && targetStaff != nil && len(targets) > 1 {
		notice := models.SharedScheduleNotice{
			SubjectName:      subject.Name,
			ExamDate:         date,
			ActingDepartment: actingRow.Name,
		}
		if err := s.publisher.Publish(notice); err != nil {
			s.logger.Warn("failed to enqueue shared schedule notice", zap.Error(err), zap.String("subject", subject.Name))
		}
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
			s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
		}
	}

	return &models.ScheduleResult{
		SubjectID:           subject.ID,
		SubjectName:         subject.Name,
		ExamDate:            date,
		ExamTime:            examTime,
		ActingDepartment:    actingRow.Name,
		AffectedDepartments: affected,
	}, nil
}

// ensureDepartmentFree rejects a second exam for the department on the
// same day. The department's existing row for the acting subject itself
// is exempt: re-submitting it lands on the upsert and overwrites in
// place, so only a different subject collides.
func (s *SchedulingService) ensureDepartmentFree(ctx context.Context, subjectName, department string, date time.Time) error {
	onDate, err := s.schedules.ListByDate(ctx, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules for date")
	}
	deptKey := models.NormalizeKey(department)
	subjectKey := models.NormalizeKey(subjectName)
	for _, row := range onDate {
		if models.NormalizeKey(row.DepartmentName) != deptKey {
			continue
		}
		if models.NormalizeKey(row.SubjectName) == subjectKey {
			continue
		}
		s.metrics.IncScheduleConflict()
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already has an exam scheduled on %s", row.DepartmentName, date.Format(models.DateOnly)))
	}
	return nil
}

// ensureDateNotPinnedElsewhere enforces shared-subject date pinning:
// once any department has committed a date for a subject name, every
// later submission for that name must use the same date. The oldest
// surviving row holds the pin.
func (s *SchedulingService) ensureDateNotPinnedElsewhere(ctx context.Context, subjectName, department string, date time.Time) error {
	existing, err := s.schedules.ListBySubjectName(ctx, subjectName)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules for subject")
	}
	deptKey := models.NormalizeKey(department)
	for _, row := range existing {
		if sameDate(row.ExamDate, date) {
			continue
		}
		if models.NormalizeKey(row.DepartmentName) == deptKey {
			// The acting department rescheduling its own subject is an
			// update, not a pin violation, as long as no other
			// department holds a row.
			continue
		}
		s.metrics.IncScheduleConflict()
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf(
			"subject %q is already scheduled by %s on %s; shared subjects must share that date",
			subjectName, row.DepartmentName, row.ExamDate.Format(models.DateOnly)))
	}
	return nil
}
