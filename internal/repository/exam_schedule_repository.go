package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coe-exam-api/internal/models"
)

// ExamScheduleRepository provides persistence for exam scheduling
// commitments. All writes go through Upsert so the at-most-one-row
// per (subject, department) invariant holds.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository creates a new schedule repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

const scheduledExamSelect = `SELECT es.id, es.subject_id, s.name AS subject_name, s.code AS subject_code, es.department_id, d.name AS department_name, es.exam_date, es.exam_time, es.assigned_by, es.priority_department FROM exam_schedules es JOIN subjects s ON s.id = es.subject_id JOIN departments d ON d.id = es.department_id`

// ListByDate returns the joined schedule rows for one exam date.
func (r *ExamScheduleRepository) ListByDate(ctx context.Context, date time.Time) ([]models.ScheduledExam, error) {
	query := scheduledExamSelect + " WHERE es.exam_date = $1"
	var rows []models.ScheduledExam
	if err := r.db.SelectContext(ctx, &rows, query, date.Format(models.DateOnly)); err != nil {
		return nil, fmt.Errorf("list schedules by date: %w", err)
	}
	return rows, nil
}

// ListBySubjectName returns every schedule whose subject carries the
// normalized name, oldest first. The first row's date is the pinned
// date for a shared subject.
func (r *ExamScheduleRepository) ListBySubjectName(ctx context.Context, name string) ([]models.ScheduledExam, error) {
	query := scheduledExamSelect + " WHERE LOWER(TRIM(s.name)) = $1 ORDER BY es.created_at ASC"
	var rows []models.ScheduledExam
	if err := r.db.SelectContext(ctx, &rows, query, models.NormalizeKey(name)); err != nil {
		return nil, fmt.Errorf("list schedules by subject name: %w", err)
	}
	return rows, nil
}

// ListScheduled returns all commitments ordered by date then time.
func (r *ExamScheduleRepository) ListScheduled(ctx context.Context) ([]models.ScheduledExam, error) {
	query := scheduledExamSelect + " ORDER BY es.exam_date ASC, es.exam_time ASC NULLS LAST"
	var rows []models.ScheduledExam
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list scheduled exams: %w", err)
	}
	return rows, nil
}

// FindBySubjectAndDepartment loads the single commitment for a pair.
func (r *ExamScheduleRepository) FindBySubjectAndDepartment(ctx context.Context, subjectID, departmentID string) (*models.ExamSchedule, error) {
	const query = `SELECT id, subject_id, department_id, exam_date, exam_time, assigned_by, priority_department, created_at, updated_at FROM exam_schedules WHERE subject_id = $1 AND department_id = $2`
	var sched models.ExamSchedule
	if err := r.db.GetContext(ctx, &sched, query, subjectID, departmentID); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Upsert inserts or updates the commitment keyed by
// (subject_id, department_id). Safe to retry with identical input.
func (r *ExamScheduleRepository) Upsert(ctx context.Context, sched *models.ExamSchedule) error {
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = now
	}
	sched.UpdatedAt = now

	const query = `INSERT INTO exam_schedules (id, subject_id, department_id, exam_date, exam_time, assigned_by, priority_department, created_at, updated_at)
		VALUES (:id, :subject_id, :department_id, :exam_date, :exam_time, :assigned_by, :priority_department, :created_at, :updated_at)
		ON CONFLICT (subject_id, department_id) DO UPDATE SET exam_date = EXCLUDED.exam_date, exam_time = EXCLUDED.exam_time, assigned_by = EXCLUDED.assigned_by, priority_department = EXCLUDED.priority_department, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, sched); err != nil {
		return fmt.Errorf("upsert exam schedule: %w", err)
	}
	return nil
}
