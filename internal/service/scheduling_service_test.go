package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

// mockSchedulingScheduleRepo is stateful: rows written through Upsert
// are visible to the list methods, so re-commits read their own earlier
// writes just as they would against Postgres.
type mockSchedulingScheduleRepo struct {
	byDate       map[string][]models.ScheduledExam
	bySubject    map[string][]models.ScheduledExam
	upserts      map[string]*models.ExamSchedule
	calls        int
	subjectNames map[string]string
	deptNames    map[string]string
}

func (m *mockSchedulingScheduleRepo) committed() []models.ScheduledExam {
	rows := make([]models.ScheduledExam, 0, len(m.upserts))
	for _, u := range m.upserts {
		rows = append(rows, models.ScheduledExam{
			ID:                 u.ID,
			SubjectID:          u.SubjectID,
			SubjectName:        m.subjectNames[u.SubjectID],
			DepartmentID:       u.DepartmentID,
			DepartmentName:     m.deptNames[u.DepartmentID],
			ExamDate:           u.ExamDate,
			ExamTime:           u.ExamTime,
			AssignedBy:         u.AssignedBy,
			PriorityDepartment: u.PriorityDepartment,
		})
	}
	return rows
}

func (m *mockSchedulingScheduleRepo) ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error) {
	key := date.Format(models.DateOnly)
	rows := append([]models.ScheduledExam{}, m.byDate[key]...)
	for _, row := range m.committed() {
		if row.ExamDate.Format(models.DateOnly) == key {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockSchedulingScheduleRepo) ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error) {
	key := models.NormalizeKey(name)
	rows := append([]models.ScheduledExam{}, m.bySubject[key]...)
	for _, row := range m.committed() {
		if models.NormalizeKey(row.SubjectName) == key {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockSchedulingScheduleRepo) Upsert(ctx context.Context, sched *models.ExamSchedule) error {
	if m.upserts == nil {
		m.upserts = make(map[string]*models.ExamSchedule)
	}
	m.upserts[sched.SubjectID+"|"+sched.DepartmentID] = sched
	m.calls++
	return nil
}

type mockSchedulingSubjectRepo struct {
	byID   map[string]*models.Subject
	byName map[string][]models.Subject
}

func (m *mockSchedulingSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSchedulingSubjectRepo) ListByName(ctx context.Context, name string) ([]models.Subject, error) {
	return m.byName[models.NormalizeKey(name)], nil
}

type mockSchedulingStaffRepo struct {
	byID map[string]*models.Staff
}

func (m *mockSchedulingStaffRepo) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockSchedulingDeptRepo struct {
	byName map[string]*models.Department
}

func (m *mockSchedulingDeptRepo) FindByName(ctx context.Context, name string) (*models.Department, error) {
	if d, ok := m.byName[models.NormalizeKey(name)]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type mockResolver struct {
	subject *models.Subject
}

func (m *mockResolver) Resolve(ctx context.Context, staff *models.Staff) (*models.Subject, error) {
	return m.subject, nil
}

type mockPublisher struct {
	notices []models.SharedScheduleNotice
}

func (m *mockPublisher) Publish(notice models.SharedScheduleNotice) error {
	m.notices = append(m.notices, notice)
	return nil
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func sharedSchedulingFixture() (*mockSchedulingScheduleRepo, *mockSchedulingSubjectRepo, *mockSchedulingStaffRepo, *mockSchedulingDeptRepo, *mockResolver, *mockPublisher, *mockInvalidator) {
	cseSubject := &models.Subject{ID: "sub-cse", Code: "MA8351", Name: "Discrete Mathematics", Department: "CSE"}
	eceSubject := models.Subject{ID: "sub-ece", Code: "MA8351E", Name: "Discrete Mathematics", Department: "ECE"}

	schedules := &mockSchedulingScheduleRepo{
		subjectNames: map[string]string{"sub-cse": "Discrete Mathematics", "sub-ece": "Discrete Mathematics"},
		deptNames:    map[string]string{"dept-cse": "CSE", "dept-ece": "ECE"},
	}
	subjects := &mockSchedulingSubjectRepo{
		byID:   map[string]*models.Subject{"sub-cse": cseSubject, "sub-ece": &eceSubject},
		byName: map[string][]models.Subject{"discrete mathematics": {*cseSubject, eceSubject}},
	}
	staff := &mockSchedulingStaffRepo{byID: map[string]*models.Staff{
		"staff-1": {ID: "staff-1", FullName: "R. Kumar", Email: "rkumar@cit.edu", Department: "CSE", SubjectName: "Discrete Mathematics", SubjectCode: "MA8351"},
	}}
	departments := &mockSchedulingDeptRepo{byName: map[string]*models.Department{
		"cse": {ID: "dept-cse", Code: "CSE", Name: "CSE"},
		"ece": {ID: "dept-ece", Code: "ECE", Name: "ECE"},
	}}
	resolver := &mockResolver{subject: cseSubject}
	return schedules, subjects, staff, departments, resolver, &mockPublisher{}, &mockInvalidator{}
}

func TestSchedulingServiceStaffFanOut(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	result, err := svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		ExamTime:   "10:00 - 13:00",
		AssignedBy: "staff-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "ECE"}, result.AffectedDepartments)
	require.Len(t, schedules.upserts, 2)

	own := schedules.upserts["sub-cse|dept-cse"]
	require.NotNil(t, own)
	assert.Nil(t, own.PriorityDepartment)

	derived := schedules.upserts["sub-ece|dept-ece"]
	require.NotNil(t, derived)
	require.NotNil(t, derived.PriorityDepartment)
	assert.Equal(t, "dept-cse", *derived.PriorityDepartment)
	assert.Equal(t, "2026-03-10", derived.ExamDate.Format(models.DateOnly))

	require.Len(t, publisher.notices, 1)
	assert.Equal(t, "Discrete Mathematics", publisher.notices[0].SubjectName)
	assert.Equal(t, "CSE", publisher.notices[0].ActingDepartment)
	assert.Contains(t, invalidator.patterns, "timetable:*")
}

func TestSchedulingServiceSubjectTargetNoFanOut(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	result, err := svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetSubject, ID: "sub-cse"},
		ExamDate:   "2026-03-10",
		AssignedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE"}, result.AffectedDepartments)
	assert.Len(t, schedules.upserts, 1)
	assert.Empty(t, publisher.notices)
}

func TestSchedulingServiceRejectsBusyDepartment(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	schedules.byDate = map[string][]models.ScheduledExam{
		"2026-03-10": {{DepartmentName: "CSE", SubjectName: "Operating Systems"}},
	}
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	_, err := svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		AssignedBy: "staff-1",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, schedules.upserts)
}

func TestSchedulingServiceRejectsPinnedDateMismatch(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	pinned, err := time.Parse(models.DateOnly, "2026-03-12")
	require.NoError(t, err)
	schedules.bySubject = map[string][]models.ScheduledExam{
		"discrete mathematics": {{DepartmentName: "ECE", SubjectName: "Discrete Mathematics", ExamDate: pinned}},
	}
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	_, err = svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		AssignedBy: "staff-1",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "2026-03-12")
	assert.Empty(t, schedules.upserts)
}

func TestSchedulingServiceAcceptsPinnedDateMatch(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	pinned, err := time.Parse(models.DateOnly, "2026-03-10")
	require.NoError(t, err)
	schedules.bySubject = map[string][]models.ScheduledExam{
		"discrete mathematics": {{DepartmentName: "ECE", SubjectName: "Discrete Mathematics", ExamDate: pinned}},
	}
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	_, err = svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		AssignedBy: "staff-1",
	})
	require.NoError(t, err)
	assert.Len(t, schedules.upserts, 2)
}

func TestSchedulingServiceIdempotentRecommit(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	req := ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		ExamTime:   "10:00 - 13:00",
		AssignedBy: "staff-1",
	}
	_, err := svc.Schedule(context.Background(), req)
	require.NoError(t, err)

	// The second submission reads the rows the first one wrote; it must
	// overwrite them in place rather than collide with them.
	req.ExamTime = "14:00 - 17:00"
	_, err = svc.Schedule(context.Background(), req)
	require.NoError(t, err)

	// Four upsert calls, but still only one row per (subject, department) pair.
	assert.Equal(t, 4, schedules.calls)
	assert.Len(t, schedules.upserts, 2)

	own := schedules.upserts["sub-cse|dept-cse"]
	require.NotNil(t, own)
	require.NotNil(t, own.ExamTime)
	assert.Equal(t, "14:00 - 17:00", *own.ExamTime)
}

func TestSchedulingServiceRecommitDifferentSubjectStillConflicts(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	_, err := svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-1"},
		ExamDate:   "2026-03-10",
		AssignedBy: "staff-1",
	})
	require.NoError(t, err)

	// A different subject for a department that already sits an exam
	// that day is still a hard conflict.
	osSubject := &models.Subject{ID: "sub-os", Code: "CS8493", Name: "Operating Systems", Department: "CSE"}
	subjects.byID["sub-os"] = osSubject
	schedules.subjectNames["sub-os"] = "Operating Systems"

	_, err = svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetSubject, ID: "sub-os"},
		ExamDate:   "2026-03-10",
		AssignedBy: "admin-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSchedulingServiceStaffWithoutSubject(t *testing.T) {
	schedules, subjects, staff, departments, resolver, publisher, invalidator := sharedSchedulingFixture()
	staff.byID["staff-2"] = &models.Staff{ID: "staff-2", FullName: "A. Devi", Department: "CSE"}
	svc := NewSchedulingService(schedules, subjects, staff, departments, resolver, publisher, invalidator, nil, validator.New(), zap.NewNop())

	_, err := svc.Schedule(context.Background(), ScheduleExamRequest{
		Target:     ScheduleTarget{Kind: TargetStaff, ID: "staff-2"},
		ExamDate:   "2026-03-10",
		AssignedBy: "staff-2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
