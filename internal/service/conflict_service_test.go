package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
)

type mockConflictScheduleRepo struct {
	byDate    map[string][]models.ScheduledExam
	bySubject map[string][]models.ScheduledExam
}

func (m *mockConflictScheduleRepo) ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error) {
	return m.byDate[date.Format(models.DateOnly)], nil
}

func (m *mockConflictScheduleRepo) ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error) {
	return m.bySubject[models.NormalizeKey(name)], nil
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(models.DateOnly, value)
	require.NoError(t, err)
	return date
}

func TestConflictServiceCheckClean(t *testing.T) {
	repo := &mockConflictScheduleRepo{}
	svc := NewConflictService(repo, validator.New(), zap.NewNop())

	verdict, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictOK, verdict.Status)
}

func TestConflictServiceCheckDepartmentBusy(t *testing.T) {
	repo := &mockConflictScheduleRepo{
		byDate: map[string][]models.ScheduledExam{
			"2026-03-10": {{DepartmentName: "CSE", SubjectName: "Operating Systems", ExamDate: mustDate(t, "2026-03-10")}},
		},
	}
	svc := NewConflictService(repo, validator.New(), zap.NewNop())

	verdict, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "cse ",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictConflict, verdict.Status)
	assert.Contains(t, verdict.Message, "CSE")
}

func TestConflictServiceCheckOwnAssignmentNotBusy(t *testing.T) {
	existing := models.ScheduledExam{DepartmentName: "CSE", SubjectName: "Discrete Mathematics", ExamDate: mustDate(t, "2026-03-10")}
	repo := &mockConflictScheduleRepo{
		byDate:    map[string][]models.ScheduledExam{"2026-03-10": {existing}},
		bySubject: map[string][]models.ScheduledExam{"discrete mathematics": {existing}},
	}
	svc := NewConflictService(repo, validator.New(), zap.NewNop())

	// Re-checking the assignment the department already holds is an
	// overwrite at commit, not a collision.
	verdict, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictOK, verdict.Status)
}

func TestConflictServiceCheckSharedSubjectPinned(t *testing.T) {
	pinned := mustDate(t, "2026-03-12")
	repo := &mockConflictScheduleRepo{
		bySubject: map[string][]models.ScheduledExam{
			"discrete mathematics": {{DepartmentName: "ECE", SubjectName: "Discrete Mathematics", ExamDate: pinned}},
		},
	}
	svc := NewConflictService(repo, validator.New(), zap.NewNop())

	verdict, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictInfo, verdict.Status)
	require.NotNil(t, verdict.PinnedDate)
	assert.Equal(t, "2026-03-12", verdict.PinnedDate.Format(models.DateOnly))
	assert.Equal(t, "ECE", verdict.PinnedBy)
}

func TestConflictServiceCheckSharedSubjectSameDate(t *testing.T) {
	repo := &mockConflictScheduleRepo{
		bySubject: map[string][]models.ScheduledExam{
			"discrete mathematics": {{DepartmentName: "ECE", SubjectName: "Discrete Mathematics", ExamDate: mustDate(t, "2026-03-10")}},
		},
	}
	svc := NewConflictService(repo, validator.New(), zap.NewNop())

	verdict, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictOK, verdict.Status)
}

func TestConflictServiceCheckRejectsBadDate(t *testing.T) {
	svc := NewConflictService(&mockConflictScheduleRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Check(context.Background(), CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "10-03-2026",
	})
	assert.Error(t, err)
}
