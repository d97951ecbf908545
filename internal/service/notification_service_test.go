package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/pkg/jobs"
	"github.com/noah-isme/coe-exam-api/pkg/mail"
)

type mockNotificationStaffRepo struct {
	recipients []models.Staff
	err        error
}

func (m *mockNotificationStaffRepo) ListBySubjectName(ctx context.Context, subjectName, excludeDepartment string) ([]models.Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recipients, nil
}

type mockMailer struct {
	sent    []mail.Message
	failFor map[string]error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	if err, ok := m.failFor[msg.ToAddress]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testNotice(t *testing.T) models.SharedScheduleNotice {
	t.Helper()
	date, err := time.Parse(models.DateOnly, "2026-03-10")
	require.NoError(t, err)
	return models.SharedScheduleNotice{
		SubjectName:      "Discrete Mathematics",
		ExamDate:         date,
		ActingDepartment: "CSE",
	}
}

func TestNotificationServiceNotifiesOtherDepartments(t *testing.T) {
	staff := &mockNotificationStaffRepo{recipients: []models.Staff{
		{FullName: "S. Priya", Email: "spriya@cit.edu", Department: "ECE"},
		{FullName: "M. Raj", Email: "mraj@cit.edu", Department: "IT"},
	}}
	mailer := &mockMailer{}
	svc := NewNotificationService(staff, mailer, nil, zap.NewNop())

	svc.Notify(context.Background(), testNotice(t))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "spriya@cit.edu", mailer.sent[0].ToAddress)
	assert.Contains(t, mailer.sent[0].Subject, "Discrete Mathematics")
	assert.Contains(t, mailer.sent[0].TextBody, "2026-03-10")
	assert.Contains(t, mailer.sent[0].TextBody, "CSE")
}

func TestNotificationServiceHandleJobSwallowsFailures(t *testing.T) {
	staff := &mockNotificationStaffRepo{recipients: []models.Staff{
		{FullName: "S. Priya", Email: "spriya@cit.edu", Department: "ECE"},
		{FullName: "M. Raj", Email: "mraj@cit.edu", Department: "IT"},
	}}
	mailer := &mockMailer{failFor: map[string]error{"spriya@cit.edu": errors.New("smtp down")}}
	svc := NewNotificationService(staff, mailer, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Type: JobTypeSharedScheduleNotice, Payload: testNotice(t)})
	require.NoError(t, err)
	// The failed recipient does not stop delivery to the rest.
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "mraj@cit.edu", mailer.sent[0].ToAddress)
}

func TestNotificationServiceNoRecipientsIsNoOp(t *testing.T) {
	staff := &mockNotificationStaffRepo{}
	mailer := &mockMailer{}
	svc := NewNotificationService(staff, mailer, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Type: JobTypeSharedScheduleNotice, Payload: testNotice(t)})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestNotificationServiceHandleJobBadPayload(t *testing.T) {
	svc := NewNotificationService(&mockNotificationStaffRepo{}, &mockMailer{}, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Type: JobTypeSharedScheduleNotice, Payload: "not a notice"})
	assert.NoError(t, err)
}

func TestNotificationServiceRepoFailureIsSilent(t *testing.T) {
	staff := &mockNotificationStaffRepo{err: errors.New("db down")}
	mailer := &mockMailer{}
	svc := NewNotificationService(staff, mailer, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Type: JobTypeSharedScheduleNotice, Payload: testNotice(t)})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}
