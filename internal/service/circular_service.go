package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/pkg/config"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
	"github.com/noah-isme/coe-exam-api/pkg/export"
)

type circularTimetable interface {
	ListScheduled(ctx context.Context) ([]models.ScheduledExam, error)
}

// CircularService assembles the official examination circular from the
// committed timetable and the configured letterhead.
type CircularService struct {
	timetable  circularTimetable
	renderer   *export.CircularRenderer
	letterhead config.CircularConfig
	logger     *zap.Logger
}

// NewCircularService creates a new circular service.
func NewCircularService(timetable circularTimetable, renderer *export.CircularRenderer, letterhead config.CircularConfig, logger *zap.Logger) *CircularService {
	if renderer == nil {
		renderer = export.NewCircularRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircularService{timetable: timetable, renderer: renderer, letterhead: letterhead, logger: logger}
}

// Generate renders the circular PDF for the given academic year and
// semester labels. The schedule matrix is built from every committed
// exam: one row per date, one column per department.
func (s *CircularService) Generate(ctx context.Context, year, semester int) ([]byte, error) {
	exams, err := s.timetable.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no exams have been scheduled yet")
	}

	sched := buildCircularSchedule(exams)

	now := time.Now()
	head := export.CircularLetterhead{
		Institution:    s.letterhead.Institution,
		Office:         s.letterhead.Office,
		RefNumber:      fmt.Sprintf("%s/%d/%02d", s.letterhead.RefPrefix, now.Year(), now.Month()),
		IssuedOn:       now.Format("02-01-2006"),
		Signatory:      s.letterhead.Signatory,
		SignatoryTitle: s.letterhead.SignatoryTitle,
		Address:        s.letterhead.Address,
	}

	subjectLine := fmt.Sprintf("Internal Assessment Examination Time Table - Year %d, Semester %d", year, semester)
	body := "All the Heads of Departments are hereby informed that the internal assessment examinations " +
		"will be conducted as per the schedule given below. Staff members are requested to inform the " +
		"students concerned and make necessary arrangements."
	notes := []string{
		"1. Students should be seated in the examination hall 10 minutes before commencement.",
		"2. Shared subjects are conducted on the same date for all departments.",
		"3. Any change in the schedule will be communicated through a revised circular.",
	}

	pdf, err := s.renderer.Render(head, subjectLine, body, sched, notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render circular")
	}
	return pdf, nil
}

func buildCircularSchedule(exams []models.ScheduledExam) export.CircularSchedule {
	deptSet := make(map[string]struct{})
	dateSet := make(map[string]struct{})
	cells := make(map[string]map[string]export.CircularCell)

	for _, exam := range exams {
		date := exam.ExamDate.Format(models.DateOnly)
		deptSet[exam.DepartmentName] = struct{}{}
		dateSet[date] = struct{}{}

		examTime := ""
		if exam.ExamTime != nil {
			examTime = *exam.ExamTime
		}
		if cells[date] == nil {
			cells[date] = make(map[string]export.CircularCell)
		}
		cells[date][exam.DepartmentName] = export.CircularCell{
			SubjectCode: exam.SubjectCode,
			SubjectName: exam.SubjectName,
			ExamTime:    examTime,
		}
	}

	departments := make([]string, 0, len(deptSet))
	for dept := range deptSet {
		departments = append(departments, dept)
	}
	sort.Strings(departments)

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	return export.CircularSchedule{Departments: departments, Dates: dates, Cells: cells}
}
