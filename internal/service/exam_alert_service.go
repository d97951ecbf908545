package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type examAlertRepository interface {
	List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamAlert, error)
	FindCoveringDate(ctx context.Context, date time.Time) (*models.ExamAlert, error)
	Create(ctx context.Context, alert *models.ExamAlert) error
	Update(ctx context.Context, alert *models.ExamAlert) error
	Delete(ctx context.Context, id string) error
}

// CreateExamAlertRequest captures fields for opening an exam window.
type CreateExamAlertRequest struct {
	Title     string   `json:"title" validate:"required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Year      int      `json:"year" validate:"required,min=1,max=5"`
	Semester  int      `json:"semester" validate:"required,min=1,max=10"`
	Holidays  []string `json:"holidays" validate:"omitempty,dive,datetime=2006-01-02"`
	CreatedBy string   `json:"created_by" validate:"required"`
}

// UpdateExamAlertRequest modifies an exam window.
type UpdateExamAlertRequest struct {
	Title     string   `json:"title" validate:"required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Year      int      `json:"year" validate:"required,min=1,max=5"`
	Semester  int      `json:"semester" validate:"required,min=1,max=10"`
	Holidays  []string `json:"holidays" validate:"omitempty,dive,datetime=2006-01-02"`
}

// TimeSlot is a selectable exam sitting within a day.
type TimeSlot struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExamAlertService manages exam windows and answers which dates are
// open for scheduling.
type ExamAlertService struct {
	repo      examAlertRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamAlertService creates a new exam alert service.
func NewExamAlertService(repo examAlertRepository, validate *validator.Validate, logger *zap.Logger) *ExamAlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamAlertService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated exam alerts.
func (s *ExamAlertService) List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, *models.Pagination, error) {
	alerts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam alerts")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return alerts, pagination, nil
}

// Get returns an exam alert by identifier.
func (s *ExamAlertService) Get(ctx context.Context, id string) (*models.ExamAlert, error) {
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam alert")
	}
	return alert, nil
}

// Create opens a new exam window.
func (s *ExamAlertService) Create(ctx context.Context, req CreateExamAlertRequest) (*models.ExamAlert, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam alert payload")
	}

	start, end, holidays, err := parseWindow(req.StartDate, req.EndDate, req.Holidays)
	if err != nil {
		return nil, err
	}

	alert := &models.ExamAlert{
		Title:     strings.TrimSpace(req.Title),
		StartDate: start,
		EndDate:   end,
		Year:      req.Year,
		Semester:  req.Semester,
		Holidays:  holidays,
		CreatedBy: req.CreatedBy,
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam alert")
	}
	return alert, nil
}

// Update modifies an existing exam window.
func (s *ExamAlertService) Update(ctx context.Context, id string, req UpdateExamAlertRequest) (*models.ExamAlert, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam alert payload")
	}

	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end, holidays, err := parseWindow(req.StartDate, req.EndDate, req.Holidays)
	if err != nil {
		return nil, err
	}

	alert.Title = strings.TrimSpace(req.Title)
	alert.StartDate = start
	alert.EndDate = end
	alert.Year = req.Year
	alert.Semester = req.Semester
	alert.Holidays = holidays

	if err := s.repo.Update(ctx, alert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam alert")
	}
	return alert, nil
}

// Delete removes an exam window.
func (s *ExamAlertService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam alert")
	}
	return nil
}

// WindowForDate returns the exam window covering date, or a validation
// error when no window is open or the date falls on a weekend or a
// declared holiday.
func (s *ExamAlertService) WindowForDate(ctx context.Context, date time.Time) (*models.ExamAlert, error) {
	alert, err := s.repo.FindCoveringDate(ctx, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date is outside every announced exam window")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam window")
	}

	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return nil, appErrors.Clone(appErrors.ErrValidation, "exams cannot be scheduled on weekends")
	}

	day := date.Format(models.DateOnly)
	for _, holiday := range alert.Holidays {
		if holiday == day {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date falls on a declared holiday")
		}
	}
	return alert, nil
}

// AvailableDates lists the schedulable days of a window: weekdays
// between start and end excluding declared holidays.
func AvailableDates(alert *models.ExamAlert) []string {
	holidaySet := make(map[string]struct{}, len(alert.Holidays))
	for _, holiday := range alert.Holidays {
		holidaySet[holiday] = struct{}{}
	}

	var dates []string
	for day := alert.StartDate; !day.After(alert.EndDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		formatted := day.Format(models.DateOnly)
		if _, skip := holidaySet[formatted]; skip {
			continue
		}
		dates = append(dates, formatted)
	}
	return dates
}

// TimeSlots lists the fixed sittings an exam may occupy.
func TimeSlots() []TimeSlot {
	return []TimeSlot{
		{Label: "Morning", Start: "10:00", End: "13:00"},
		{Label: "Afternoon", Start: "14:00", End: "17:00"},
	}
}

func parseWindow(startDate, endDate string, holidays []string) (time.Time, time.Time, pq.StringArray, error) {
	start, err := time.Parse(models.DateOnly, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := time.Parse(models.DateOnly, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	normalized := make(pq.StringArray, 0, len(holidays))
	for _, holiday := range holidays {
		day, err := time.Parse(models.DateOnly, holiday)
		if err != nil {
			return time.Time{}, time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday date")
		}
		if day.Before(start) || day.After(end) {
			return time.Time{}, time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "holiday falls outside the exam window")
		}
		normalized = append(normalized, day.Format(models.DateOnly))
	}
	return start, end, normalized, nil
}
