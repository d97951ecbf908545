package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type mockExamAlertRepo struct {
	alerts  map[string]models.ExamAlert
	created *models.ExamAlert
}

func (m *mockExamAlertRepo) List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, int, error) {
	return nil, 0, nil
}

func (m *mockExamAlertRepo) FindByID(ctx context.Context, id string) (*models.ExamAlert, error) {
	if a, ok := m.alerts[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamAlertRepo) FindCoveringDate(ctx context.Context, date time.Time) (*models.ExamAlert, error) {
	for _, a := range m.alerts {
		if !date.Before(a.StartDate) && !date.After(a.EndDate) {
			alert := a
			return &alert, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamAlertRepo) Create(ctx context.Context, alert *models.ExamAlert) error {
	if m.alerts == nil {
		m.alerts = make(map[string]models.ExamAlert)
	}
	if alert.ID == "" {
		alert.ID = "alert-1"
	}
	m.alerts[alert.ID] = *alert
	m.created = alert
	return nil
}

func (m *mockExamAlertRepo) Update(ctx context.Context, alert *models.ExamAlert) error {
	m.alerts[alert.ID] = *alert
	return nil
}

func (m *mockExamAlertRepo) Delete(ctx context.Context, id string) error {
	delete(m.alerts, id)
	return nil
}

func windowFixture(t *testing.T) *mockExamAlertRepo {
	t.Helper()
	return &mockExamAlertRepo{alerts: map[string]models.ExamAlert{
		"alert-1": {
			ID:        "alert-1",
			Title:     "Internal Assessment I",
			StartDate: mustDate(t, "2026-03-09"),
			EndDate:   mustDate(t, "2026-03-20"),
			Year:      3,
			Semester:  6,
			Holidays:  pq.StringArray{"2026-03-12"},
		},
	}}
}

func TestExamAlertServiceWindowForDate(t *testing.T) {
	svc := NewExamAlertService(windowFixture(t), validator.New(), zap.NewNop())

	alert, err := svc.WindowForDate(context.Background(), mustDate(t, "2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, "alert-1", alert.ID)
}

func TestExamAlertServiceWindowForDateOutside(t *testing.T) {
	svc := NewExamAlertService(windowFixture(t), validator.New(), zap.NewNop())

	_, err := svc.WindowForDate(context.Background(), mustDate(t, "2026-04-01"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamAlertServiceWindowForDateWeekend(t *testing.T) {
	svc := NewExamAlertService(windowFixture(t), validator.New(), zap.NewNop())

	// 2026-03-14 is a Saturday inside the window.
	_, err := svc.WindowForDate(context.Background(), mustDate(t, "2026-03-14"))
	assert.Error(t, err)
}

func TestExamAlertServiceWindowForDateHoliday(t *testing.T) {
	svc := NewExamAlertService(windowFixture(t), validator.New(), zap.NewNop())

	_, err := svc.WindowForDate(context.Background(), mustDate(t, "2026-03-12"))
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "holiday")
}

func TestExamAlertServiceCreateRejectsInvertedWindow(t *testing.T) {
	svc := NewExamAlertService(&mockExamAlertRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateExamAlertRequest{
		Title:     "Internal Assessment I",
		StartDate: "2026-03-20",
		EndDate:   "2026-03-09",
		Year:      3,
		Semester:  6,
		CreatedBy: "admin-1",
	})
	assert.Error(t, err)
}

func TestExamAlertServiceCreateRejectsHolidayOutsideWindow(t *testing.T) {
	svc := NewExamAlertService(&mockExamAlertRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateExamAlertRequest{
		Title:     "Internal Assessment I",
		StartDate: "2026-03-09",
		EndDate:   "2026-03-20",
		Year:      3,
		Semester:  6,
		Holidays:  []string{"2026-04-01"},
		CreatedBy: "admin-1",
	})
	assert.Error(t, err)
}

func TestAvailableDatesSkipsWeekendsAndHolidays(t *testing.T) {
	alert := &models.ExamAlert{
		StartDate: mustDate(t, "2026-03-09"),
		EndDate:   mustDate(t, "2026-03-13"),
		Holidays:  pq.StringArray{"2026-03-11"},
	}

	dates := AvailableDates(alert)
	assert.Equal(t, []string{"2026-03-09", "2026-03-10", "2026-03-12", "2026-03-13"}, dates)
}

func TestTimeSlots(t *testing.T) {
	slots := TimeSlots()
	require.Len(t, slots, 2)
	assert.Equal(t, "Morning", slots[0].Label)
	assert.Equal(t, "Afternoon", slots[1].Label)
}
