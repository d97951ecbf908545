package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/middleware"
	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/internal/service"
)

type scheduleRepoStub struct {
	byDate    []models.ScheduledExam
	bySubject []models.ScheduledExam
	upserts   []*models.ExamSchedule
}

func (s *scheduleRepoStub) ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error) {
	return s.byDate, nil
}

func (s *scheduleRepoStub) ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error) {
	return s.bySubject, nil
}

func (s *scheduleRepoStub) Upsert(ctx context.Context, sched *models.ExamSchedule) error {
	s.upserts = append(s.upserts, sched)
	return nil
}

type subjectRepoStub struct {
	subject *models.Subject
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s.subject != nil && s.subject.ID == id {
		return s.subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) ListByName(ctx context.Context, name string) ([]models.Subject, error) {
	if s.subject == nil {
		return nil, nil
	}
	return []models.Subject{*s.subject}, nil
}

func (s *subjectRepoStub) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	if s.subject != nil && s.subject.Code == code {
		return s.subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	s.subject = subject
	return nil
}

type staffRepoStub struct {
	staff *models.Staff
}

func (s *staffRepoStub) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if s.staff != nil && s.staff.ID == id {
		return s.staff, nil
	}
	return nil, sql.ErrNoRows
}

type deptRepoStub struct {
	departments map[string]*models.Department
}

func (s *deptRepoStub) FindByName(ctx context.Context, name string) (*models.Department, error) {
	if d, ok := s.departments[models.NormalizeKey(name)]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type alertRepoStub struct {
	alert *models.ExamAlert
}

func (s *alertRepoStub) List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, int, error) {
	return nil, 0, nil
}

func (s *alertRepoStub) FindByID(ctx context.Context, id string) (*models.ExamAlert, error) {
	if s.alert != nil && s.alert.ID == id {
		return s.alert, nil
	}
	return nil, sql.ErrNoRows
}

func (s *alertRepoStub) FindCoveringDate(ctx context.Context, date time.Time) (*models.ExamAlert, error) {
	if s.alert != nil && !date.Before(s.alert.StartDate) && !date.After(s.alert.EndDate) {
		return s.alert, nil
	}
	return nil, sql.ErrNoRows
}

func (s *alertRepoStub) Create(ctx context.Context, alert *models.ExamAlert) error { return nil }
func (s *alertRepoStub) Update(ctx context.Context, alert *models.ExamAlert) error { return nil }
func (s *alertRepoStub) Delete(ctx context.Context, id string) error               { return nil }

func schedulingHandlerFixture(t *testing.T, schedules *scheduleRepoStub) *SchedulingHandler {
	t.Helper()
	subject := &models.Subject{ID: "sub-1", Code: "MA8351", Name: "Discrete Mathematics", Department: "CSE"}
	subjects := &subjectRepoStub{subject: subject}
	staff := &staffRepoStub{staff: &models.Staff{ID: "staff-1", FullName: "R. Kumar", Department: "CSE", SubjectName: "Discrete Mathematics", SubjectCode: "MA8351"}}
	departments := &deptRepoStub{departments: map[string]*models.Department{
		"cse": {ID: "dept-cse", Code: "CSE", Name: "CSE"},
	}}

	start, err := time.Parse(models.DateOnly, "2026-03-09")
	require.NoError(t, err)
	end, err := time.Parse(models.DateOnly, "2026-03-20")
	require.NoError(t, err)
	alerts := service.NewExamAlertService(&alertRepoStub{alert: &models.ExamAlert{ID: "alert-1", StartDate: start, EndDate: end}}, validator.New(), zap.NewNop())

	resolver := service.NewSubjectResolver(subjects, zap.NewNop())
	scheduling := service.NewSchedulingService(schedules, subjects, staff, departments, resolver, nil, nil, nil, validator.New(), zap.NewNop())
	conflicts := service.NewConflictService(schedules, validator.New(), zap.NewNop())
	return NewSchedulingHandler(conflicts, scheduling, alerts)
}

func postJSON(t *testing.T, target string, payload interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleTeacher})
	return w, c
}

func TestSchedulingHandlerCommit(t *testing.T) {
	schedules := &scheduleRepoStub{}
	handler := schedulingHandlerFixture(t, schedules)

	w, c := postJSON(t, "/scheduling/commit", service.ScheduleExamRequest{
		Target:   service.ScheduleTarget{Kind: service.TargetStaff, ID: "staff-1"},
		ExamDate: "2026-03-10",
	})
	handler.Commit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, schedules.upserts, 1)
	assert.Equal(t, "staff-1", schedules.upserts[0].AssignedBy)

	var envelope struct {
		Data models.ScheduleResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"CSE"}, envelope.Data.AffectedDepartments)
}

func TestSchedulingHandlerCommitOutsideWindow(t *testing.T) {
	schedules := &scheduleRepoStub{}
	handler := schedulingHandlerFixture(t, schedules)

	w, c := postJSON(t, "/scheduling/commit", service.ScheduleExamRequest{
		Target:   service.ScheduleTarget{Kind: service.TargetStaff, ID: "staff-1"},
		ExamDate: "2026-05-01",
	})
	handler.Commit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, schedules.upserts)
}

func TestSchedulingHandlerCheckConflict(t *testing.T) {
	schedules := &scheduleRepoStub{byDate: []models.ScheduledExam{{DepartmentName: "CSE", SubjectName: "Operating Systems"}}}
	handler := schedulingHandlerFixture(t, schedules)

	w, c := postJSON(t, "/scheduling/check", service.CheckScheduleRequest{
		Department:  "CSE",
		SubjectName: "Discrete Mathematics",
		ExamDate:    "2026-03-10",
	})
	handler.Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.ScheduleVerdict `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.VerdictConflict, envelope.Data.Status)
}

func TestSchedulingHandlerCommitInvalidBody(t *testing.T) {
	handler := schedulingHandlerFixture(t, &scheduleRepoStub{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/scheduling/commit", bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Commit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
