package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/pkg/config"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

func circularExams(t *testing.T) []models.ScheduledExam {
	t.Helper()
	morning := "10:00 AM - 01:00 PM"
	return []models.ScheduledExam{
		{
			ID:             "sched-1",
			SubjectName:    "Discrete Mathematics",
			SubjectCode:    "MA8351",
			DepartmentName: "CSE",
			ExamDate:       mustDate(t, "2026-03-10"),
			ExamTime:       &morning,
		},
		{
			ID:             "sched-2",
			SubjectName:    "Discrete Mathematics",
			SubjectCode:    "MA8351",
			DepartmentName: "ECE",
			ExamDate:       mustDate(t, "2026-03-10"),
			ExamTime:       &morning,
		},
		{
			ID:             "sched-3",
			SubjectName:    "Operating Systems",
			SubjectCode:    "CS8493",
			DepartmentName: "CSE",
			ExamDate:       mustDate(t, "2026-03-12"),
		},
	}
}

func TestCircularService_GenerateRendersPDF(t *testing.T) {
	repo := &mockTimetableRepo{exams: circularExams(t)}
	svc := NewCircularService(repo, nil, config.CircularConfig{
		Institution:    "Coimbatore Institute of Technology",
		Office:         "Office of the Controller of Examinations",
		RefPrefix:      "CIT/COE",
		Signatory:      "Dr. S. Ramesh",
		SignatoryTitle: "Controller of Examinations",
	}, nil)

	pdf, err := svc.Generate(context.Background(), 2, 4)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestCircularService_GenerateEmptyTimetable(t *testing.T) {
	repo := &mockTimetableRepo{}
	svc := NewCircularService(repo, nil, config.CircularConfig{}, nil)

	_, err := svc.Generate(context.Background(), 2, 4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBuildCircularSchedule(t *testing.T) {
	sched := buildCircularSchedule(circularExams(t))

	assert.Equal(t, []string{"CSE", "ECE"}, sched.Departments)
	assert.Equal(t, []string{"2026-03-10", "2026-03-12"}, sched.Dates)

	cell := sched.Cells["2026-03-10"]["ECE"]
	assert.Equal(t, "MA8351", cell.SubjectCode)
	assert.Equal(t, "10:00 AM - 01:00 PM", cell.ExamTime)

	// no exam for ECE on the second date
	_, ok := sched.Cells["2026-03-12"]["ECE"]
	assert.False(t, ok)
}
