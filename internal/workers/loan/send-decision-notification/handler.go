package senddecisionnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsclients "ethoscore/internal/common/aws"
	"ethoscore/internal/common/errors"
	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/loan"
	"ethoscore/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-decision-notification"

	notificationType = "loan_decision"
)

// UserDirectory resolves contact details; *auth.KeycloakClient satisfies it.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type Handler struct {
	config       *Config
	ses          awsclients.SESAPI
	sns          awsclients.SNSAPI
	users        UserDirectory
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

// NewHandler wires the notifier. users may be nil, in which case only the
// contacts carried in the job are used.
func NewHandler(config *Config, ses awsclients.SESAPI, sns awsclients.SNSAPI, users UserDirectory, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		ses:          ses,
		sns:          sns,
		users:        users,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(fmt.Errorf("parse input: %w", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	category, err := loan.ParseCategory(input.LoanType)
	if err != nil {
		return nil, errors.NewUnknownLoanCategoryError(input.LoanType)
	}

	recipient := h.resolveRecipient(ctx, input)
	msg := buildMessage(recipient.Name, category, input.Decision, input.FairMode, input.ApplicationID)

	output := &Output{}
	payload := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"loanType":      category.String(),
		"decision":      input.Decision,
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if h.config.EmailEnabled && recipient.Email != "" {
		in := awsclients.EmailInput(h.config.FromEmail, recipient.Email, msg.Subject, msg.Body)
		if _, err := h.ses.SendEmail(ctx, in); err != nil {
			return nil, errors.NewNotificationSendFailedError(notificationType, fmt.Errorf("email: %w", err)).
				WithMetadata("channel", models.ChannelEmail)
		}
		output.EmailSent = true
	}
	output.Notifications = append(output.Notifications,
		notification(recipient.ID, models.ChannelEmail, output.EmailSent, payload, now))

	if h.config.SMSEnabled && recipient.Phone != "" {
		in := awsclients.SMSInput(recipient.Phone, msg.SMS, h.config.SenderID)
		if _, err := h.sns.Publish(ctx, in); err != nil {
			// A retry resends the email too; the email channel is the one
			// users read, so it goes first.
			return nil, errors.NewNotificationSendFailedError(notificationType, fmt.Errorf("sms: %w", err)).
				WithMetadata("channel", models.ChannelSMS).
				WithMetadata("emailSent", output.EmailSent)
		}
		output.SMSSent = true
	}
	output.Notifications = append(output.Notifications,
		notification(recipient.ID, models.ChannelSMS, output.SMSSent, payload, now))

	if output.EmailSent || output.SMSSent {
		output.SentAt = now
	}

	h.logger.Info("decision notification processed", map[string]interface{}{
		"userId":    input.UserID,
		"loanType":  category.String(),
		"emailSent": output.EmailSent,
		"smsSent":   output.SMSSent,
	})
	return output, nil
}

// notification records one channel; a channel that was switched off or had
// no contact is reported as disabled.
func notification(recipientID, channel string, sent bool, payload map[string]interface{}, at string) models.Notification {
	n := models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        notificationType,
		Channel:     channel,
		Status:      models.NotificationDisabled,
		Payload:     payload,
	}
	if sent {
		n.Status = models.NotificationSent
		n.SentAt = at
	}
	return n
}

// resolveRecipient fills missing contact details from the user directory.
// A failed lookup is not fatal; whatever the job carried is used.
func (h *Handler) resolveRecipient(ctx context.Context, input *Input) models.User {
	recipient := models.User{ID: input.UserID, Email: input.Email, Phone: input.Phone}
	if h.users == nil || input.UserID == "" || (recipient.Email != "" && recipient.Phone != "") {
		return recipient
	}

	user, err := h.users.GetUser(ctx, input.UserID)
	if err != nil {
		h.logger.Warn("recipient lookup failed", map[string]interface{}{
			"userId": input.UserID,
			"error":  err,
		})
		return recipient
	}
	if recipient.Email == "" {
		recipient.Email = user.Email
	}
	if recipient.Phone == "" {
		recipient.Phone = user.Phone
	}
	recipient.Name = user.Name
	return recipient
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
