package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type mockTimetableRepo struct {
	exams []models.ScheduledExam
	calls int
}

func (m *mockTimetableRepo) ListScheduled(ctx context.Context) ([]models.ScheduledExam, error) {
	m.calls++
	return m.exams, nil
}

type mockTimetableCache struct {
	store map[string][]models.ScheduledExam
	sets  int
}

func (m *mockTimetableCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.ScheduledExam)) = cached
	return nil
}

func (m *mockTimetableCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]models.ScheduledExam)
	}
	m.store[key] = value.([]models.ScheduledExam)
	m.sets++
	return nil
}

func timetableFixture(t *testing.T) []models.ScheduledExam {
	t.Helper()
	morning := "10:00 - 13:00"
	return []models.ScheduledExam{
		{ID: "es-1", SubjectCode: "MA8351", SubjectName: "Discrete Mathematics", DepartmentName: "CSE", ExamDate: mustDate(t, "2026-03-10"), ExamTime: &morning, AssignedBy: "staff-1"},
		{ID: "es-2", SubjectCode: "CS8451", SubjectName: "Design and Analysis of Algorithms", DepartmentName: "CSE", ExamDate: mustDate(t, "2026-03-11"), AssignedBy: "staff-1"},
	}
}

func TestTimetableServiceCachesListing(t *testing.T) {
	repo := &mockTimetableRepo{exams: timetableFixture(t)}
	cache := &mockTimetableCache{}
	svc := NewTimetableService(repo, cache, time.Minute, nil, zap.NewNop())

	first, err := svc.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 2)
	// Served from cache; the repository is not hit again.
	assert.Equal(t, 1, repo.calls)
}

func TestTimetableServiceWithoutCache(t *testing.T) {
	repo := &mockTimetableRepo{exams: timetableFixture(t)}
	svc := NewTimetableService(repo, nil, time.Minute, nil, zap.NewNop())

	_, err := svc.ListScheduled(context.Background())
	require.NoError(t, err)
	_, err = svc.ListScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestTimetableServiceBuildExportDataset(t *testing.T) {
	repo := &mockTimetableRepo{exams: timetableFixture(t)}
	svc := NewTimetableService(repo, nil, time.Minute, nil, zap.NewNop())

	dataset, err := svc.BuildExportDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Exam Date", "Exam Time", "Subject Code", "Subject Name", "Department", "Assigned By"}, dataset.Headers)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, []string{"2026-03-10", "10:00 - 13:00", "MA8351", "Discrete Mathematics", "CSE", "staff-1"}, dataset.Rows[0])
	assert.Equal(t, "", dataset.Rows[1][1])
}
