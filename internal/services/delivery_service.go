package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/Dias221467/Sales_CRM/internal/push"
	"github.com/Dias221467/Sales_CRM/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultBatchSize bounds how many due reminders one run processes. It caps
// per-run latency and provider load.
const DefaultBatchSize = 50

// Per-reminder delivery failures. RunOnce logs and counts them; they never
// abort the batch.
var (
	ErrSubjectNotFound     = errors.New("reminder subject not found")
	ErrOwnerNotFound       = errors.New("reminder owner not found")
	ErrNoDeliverableTokens = errors.New("owner has no registered devices")
	ErrDispatchFailed      = errors.New("push dispatch failed")
)

const (
	reminderTitle        = "Follow-up reminder"
	reminderBodyTemplate = "Time to follow up with %s"
	reminderDataType     = "follow_up_reminder"

	// maxSubjectNameRunes keeps the notification well under the provider's
	// payload limit whatever the client is called.
	maxSubjectNameRunes = 80
)

// RunResult summarizes one delivery run.
type RunResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// DeliveryService sends the push notifications of due reminders.
type DeliveryService struct {
	store     ReminderStore
	subjects  SubjectResolver
	owners    OwnerResolver
	pruner    TokenPruner
	gateway   push.Gateway
	policy    RetryPolicy
	batchSize int
	now       func() time.Time
}

func NewDeliveryService(
	store ReminderStore,
	subjects SubjectResolver,
	owners OwnerResolver,
	pruner TokenPruner,
	gateway push.Gateway,
	policy RetryPolicy,
	batchSize int,
) *DeliveryService {
	if policy == nil {
		policy = RetryUnbounded
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DeliveryService{
		store:     store,
		subjects:  subjects,
		owners:    owners,
		pruner:    pruner,
		gateway:   gateway,
		policy:    policy,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce processes one batch of due reminders. Only a failure to read the
// batch is returned; every per-reminder failure is logged and counted.
func (s *DeliveryService) RunOnce(ctx context.Context) (RunResult, error) {
	due, err := s.store.FetchDueBatch(ctx, s.now(), s.batchSize)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch due reminders: %w", err)
	}

	result := RunResult{Attempted: len(due)}
	for i := range due {
		reminder := &due[i]
		marked, err := s.deliver(ctx, reminder)
		if err != nil {
			s.handleFailure(ctx, reminder, err)
			continue
		}
		if marked {
			result.Succeeded++
		}
	}
	result.Failed = result.Attempted - result.Succeeded

	if result.Attempted > 0 {
		logrus.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		}).Info("Reminder delivery run completed")
	}
	return result, nil
}

// deliver reports whether this call moved the reminder to sent.
func (s *DeliveryService) deliver(ctx context.Context, reminder *models.Reminder) (bool, error) {
	subject, err := s.subjects.ResolveSubject(ctx, reminder.SubjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrSubjectNotFound
	}
	if err != nil {
		return false, err
	}

	owner, err := s.owners.ResolveOwner(ctx, reminder.OwnerID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrOwnerNotFound
	}
	if err != nil {
		return false, err
	}
	if len(owner.DeviceTokens) == 0 {
		return false, ErrNoDeliverableTokens
	}

	dispatch, err := s.gateway.Dispatch(ctx, owner.DeviceTokens, reminderMessage(reminder, subject))
	s.pruneInvalid(ctx, owner.ID, dispatch)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	marked, err := s.store.MarkSent(ctx, reminder.ID)
	if err != nil {
		return false, err
	}
	if !marked {
		logrus.WithField("reminder_id", reminder.ID.Hex()).Info("Reminder left pending state during delivery, not marked sent")
	}
	return marked, nil
}

// pruneInvalid drops tokens the provider rejected, including those reported
// by a dispatch that failed part way.
func (s *DeliveryService) pruneInvalid(ctx context.Context, ownerID primitive.ObjectID, dispatch *push.DispatchResult) {
	if dispatch == nil {
		return
	}
	invalid := dispatch.InvalidTokens()
	if len(invalid) == 0 {
		return
	}
	if err := s.pruner.PruneTokens(ctx, ownerID, invalid); err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID.Hex()).Warn("Failed to prune invalid device tokens")
	}
}

func (s *DeliveryService) handleFailure(ctx context.Context, reminder *models.Reminder, cause error) {
	entry := logrus.WithError(cause).WithFields(logrus.Fields{
		"reminder_id": reminder.ID.Hex(),
		"subject_id":  reminder.SubjectID.Hex(),
		"owner_id":    reminder.OwnerID.Hex(),
	})

	if !s.policy.Abandon(cause) {
		entry.Warn("Reminder delivery failed, will retry on next run")
		return
	}

	if _, err := s.store.CancelReminder(ctx, reminder.ID, models.CancelUnresolvable); err != nil {
		entry.WithField("cancel_error", err.Error()).Error("Failed to cancel undeliverable reminder")
		return
	}
	entry.WithField("policy", s.policy.Name()).Warn("Reminder cannot be delivered, cancelled")
}

func reminderMessage(reminder *models.Reminder, subject *Subject) push.Message {
	return push.Message{
		Title: reminderTitle,
		Body:  fmt.Sprintf(reminderBodyTemplate, truncateName(subject.DisplayName)),
		Data: map[string]string{
			"type":        reminderDataType,
			"reminder_id": reminder.ID.Hex(),
			"subject_id":  reminder.SubjectID.Hex(),
		},
	}
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxSubjectNameRunes {
		return name
	}
	return string(runes[:maxSubjectNameRunes-3]) + "..."
}
