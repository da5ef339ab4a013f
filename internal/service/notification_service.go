package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/config"
	"github.com/skyward/fts-api/pkg/jobs"
)

// Notification event types dispatched through the queue.
const (
	NotificationBookingCreated   = "booking.created"
	NotificationBookingCancelled = "booking.cancelled"
)

// NotificationPayload is the queued message body.
type NotificationPayload struct {
	Event     string         `json:"event"`
	Booking   models.Booking `json:"booking"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sender delivers a rendered notification to its recipients.
type Sender interface {
	Send(ctx context.Context, payload NotificationPayload) error
}

// logSender is the default Sender: it writes the event to the log. Real
// deployments swap in an email or push implementation.
type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(_ context.Context, payload NotificationPayload) error {
	s.logger.Info("notification dispatched",
		zap.String("event", payload.Event),
		zap.String("booking_id", payload.Booking.ID),
		zap.String("student_id", payload.Booking.StudentID),
	)
	return nil
}

// NotificationService fans booking lifecycle events out to students and
// instructors through a background worker queue. Enqueue failures are logged
// and dropped: notifications never fail the booking flow that triggered
// them.
type NotificationService struct {
	queue  *jobs.Queue
	sender Sender
	cfg    config.NotificationsConfig
	logger *zap.Logger
}

// NewNotificationService builds the dispatcher and its backing queue.
func NewNotificationService(sender Sender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = &logSender{logger: logger}
	}
	s := &NotificationService{sender: sender, cfg: cfg, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Stop()
}

// BookingCreated queues a creation notice for both parties.
func (s *NotificationService) BookingCreated(booking models.Booking) {
	s.enqueue(NotificationBookingCreated, booking)
}

// BookingCancelled queues a cancellation notice for both parties.
func (s *NotificationService) BookingCancelled(booking models.Booking) {
	s.enqueue(NotificationBookingCancelled, booking)
}

func (s *NotificationService) enqueue(event string, booking models.Booking) {
	if !s.cfg.Enabled {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: event,
		Payload: NotificationPayload{
			Event:     event,
			Booking:   booking,
			Timestamp: time.Now().UTC(),
		},
	})
	if err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.sender.Send(ctx, payload)
}
