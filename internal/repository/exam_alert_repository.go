package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coe-exam-api/internal/models"
)

// ExamAlertRepository handles persistence for scheduling windows.
type ExamAlertRepository struct {
	db *sqlx.DB
}

// NewExamAlertRepository creates a new repository instance.
func NewExamAlertRepository(db *sqlx.DB) *ExamAlertRepository {
	return &ExamAlertRepository{db: db}
}

const alertColumns = "id, title, start_date, end_date, year, semester, holidays, created_by, created_at, updated_at"

// List returns alerts matching filters with pagination metadata.
func (r *ExamAlertRepository) List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, int, error) {
	base := "FROM exam_alerts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_date": true,
		"end_date":   true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", alertColumns, base, sortBy, order, size, offset)
	var alerts []models.ExamAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exam alerts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exam alerts: %w", err)
	}

	return alerts, total, nil
}

// FindByID loads an alert by id.
func (r *ExamAlertRepository) FindByID(ctx context.Context, id string) (*models.ExamAlert, error) {
	query := fmt.Sprintf("SELECT %s FROM exam_alerts WHERE id = $1", alertColumns)
	var alert models.ExamAlert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindCoveringDate returns the most recent alert whose window contains
// the date. sql.ErrNoRows surfaces when no window covers it.
func (r *ExamAlertRepository) FindCoveringDate(ctx context.Context, date time.Time) (*models.ExamAlert, error) {
	query := fmt.Sprintf("SELECT %s FROM exam_alerts WHERE start_date <= $1 AND end_date >= $1 ORDER BY created_at DESC LIMIT 1", alertColumns)
	var alert models.ExamAlert
	if err := r.db.GetContext(ctx, &alert, query, date.Format(models.DateOnly)); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Create persists a new alert window.
func (r *ExamAlertRepository) Create(ctx context.Context, alert *models.ExamAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now

	const query = `INSERT INTO exam_alerts (id, title, start_date, end_date, year, semester, holidays, created_by, created_at, updated_at) VALUES (:id, :title, :start_date, :end_date, :year, :semester, :holidays, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create exam alert: %w", err)
	}
	return nil
}

// Update modifies an alert window.
func (r *ExamAlertRepository) Update(ctx context.Context, alert *models.ExamAlert) error {
	alert.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_alerts SET title = :title, start_date = :start_date, end_date = :end_date, year = :year, semester = :semester, holidays = :holidays, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("update exam alert: %w", err)
	}
	return nil
}

// Delete removes an alert window.
func (r *ExamAlertRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exam_alerts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam alert: %w", err)
	}
	return nil
}
