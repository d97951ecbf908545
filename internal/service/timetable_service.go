package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
	"github.com/noah-isme/coe-exam-api/pkg/export"
)

const timetableCacheKey = "timetable:scheduled"

type timetableScheduleRepository interface {
	ListScheduled(ctx context.Context) ([]models.ScheduledExam, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimetableService serves the consolidated exam timetable, cached in
// Redis because dashboards poll it far more often than it changes.
type TimetableService struct {
	schedules timetableScheduleRepository
	cache     timetableCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewTimetableService creates a new timetable service. cache may be
// nil, which disables caching entirely.
func NewTimetableService(schedules timetableScheduleRepository, cache timetableCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *TimetableService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{schedules: schedules, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// ListScheduled returns every committed exam ordered by date then
// time. Cache failures fall through to the database.
func (s *TimetableService) ListScheduled(ctx context.Context) ([]models.ScheduledExam, error) {
	if s.cache != nil {
		var cached []models.ScheduledExam
		err := s.cache.Get(ctx, timetableCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.Error(err))
		}
	}

	exams, err := s.schedules.ListScheduled(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, timetableCacheKey, exams, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.Error(err))
		}
	}
	return exams, nil
}

// BuildExportDataset flattens the timetable into the tabular form
// shared by the CSV and PDF exporters.
func (s *TimetableService) BuildExportDataset(ctx context.Context) (*export.Dataset, error) {
	exams, err := s.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}

	dataset := &export.Dataset{
		Headers: []string{"Exam Date", "Exam Time", "Subject Code", "Subject Name", "Department", "Assigned By"},
		Rows:    make([][]string, 0, len(exams)),
	}
	for _, exam := range exams {
		examTime := ""
		if exam.ExamTime != nil {
			examTime = *exam.ExamTime
		}
		dataset.Rows = append(dataset.Rows, []string{
			exam.ExamDate.Format(models.DateOnly),
			examTime,
			exam.SubjectCode,
			exam.SubjectName,
			exam.DepartmentName,
			exam.AssignedBy,
		})
	}
	return dataset, nil
}
