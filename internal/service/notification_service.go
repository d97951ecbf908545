package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/pkg/jobs"
	"github.com/noah-isme/coe-exam-api/pkg/mail"
)

// JobTypeSharedScheduleNotice labels queue jobs carrying a
// models.SharedScheduleNotice payload.
const JobTypeSharedScheduleNotice = "shared_schedule_notice"

type notificationStaffRepository interface {
	ListBySubjectName(ctx context.Context, subjectName, excludeDepartment string) ([]models.Staff, error)
}

// NotificationService emails staff in other departments when a shared
// subject's exam date is committed. Delivery is best effort: every
// failure is logged and counted but never surfaces to the scheduling
// request or triggers a queue retry.
type NotificationService struct {
	staff   notificationStaffRepository
	mailer  mail.Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService instantiates NotificationService.
func NewNotificationService(staff notificationStaffRepository, mailer mail.Mailer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{staff: staff, mailer: mailer, metrics: metrics, logger: logger}
}

// HandleJob consumes a queued shared-schedule notice. It always
// returns nil so the queue never retries a notice; partial delivery is
// acceptable and retrying would double-send to recipients that already
// got theirs.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(models.SharedScheduleNotice)
	if !ok {
		s.logger.Error("unexpected notification payload type", zap.String("job_id", job.ID), zap.String("job_type", job.Type))
		return nil
	}
	s.Notify(ctx, notice)
	return nil
}

// Notify emails every staff member teaching the shared subject outside
// the acting department.
func (s *NotificationService) Notify(ctx context.Context, notice models.SharedScheduleNotice) {
	recipients, err := s.staff.ListBySubjectName(ctx, notice.SubjectName, notice.ActingDepartment)
	if err != nil {
		s.logger.Error("failed to load notification recipients", zap.Error(err), zap.String("subject", notice.SubjectName))
		return
	}

	subjectLine := fmt.Sprintf("Exam date fixed for %s", notice.SubjectName)
	body := fmt.Sprintf(
		"The exam for %s has been scheduled on %s by the %s department. As this is a shared subject, the date applies to your department as well.",
		notice.SubjectName, notice.ExamDate.Format(models.DateOnly), notice.ActingDepartment)

	for _, recipient := range recipients {
		msg := mail.Message{
			ToName:    recipient.FullName,
			ToAddress: recipient.Email,
			Subject:   subjectLine,
			TextBody:  body,
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.metrics.IncNotificationFailed()
			s.logger.Warn("failed to send shared schedule notice",
				zap.Error(err),
				zap.String("recipient", recipient.Email),
				zap.String("subject", notice.SubjectName))
			continue
		}
		s.metrics.IncNotificationSent()
	}
}

// QueueNoticePublisher enqueues shared-schedule notices onto the
// background job queue for asynchronous delivery.
type QueueNoticePublisher struct {
	queue *jobs.Queue
}

// NewQueueNoticePublisher instantiates QueueNoticePublisher.
func NewQueueNoticePublisher(queue *jobs.Queue) *QueueNoticePublisher {
	return &QueueNoticePublisher{queue: queue}
}

// Publish enqueues the notice. A nil publisher drops notices, which
// lets callers wire an unconfigured notification pipeline safely.
func (p *QueueNoticePublisher) Publish(notice models.SharedScheduleNotice) error {
	if p == nil || p.queue == nil {
		return nil
	}
	return p.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeSharedScheduleNotice,
		Payload: notice,
	})
}
