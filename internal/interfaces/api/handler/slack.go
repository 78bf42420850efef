package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"remindme/internal/application/dto"
	"remindme/internal/application/service"
	"remindme/internal/domain/entity"
	"remindme/internal/domain/gateway"
	slackClient "remindme/internal/infrastructure/slack"
	appErrors "remindme/internal/pkg/errors"
	"remindme/internal/pkg/logger"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"
)

// submissionTimeout bounds the work done after a modal submission was acknowledged.
const submissionTimeout = time.Minute

const (
	msgZeroDelay       = "Not all values can be 0"
	msgInvalidDelay    = "Please pick a value"
	msgLookupFailed    = "An unexpected error has occurred whilst attempting to get the link of the RemindMe message. Please try again."
	msgScheduleFailed  = "An unexpected error has occurred whilst attempting to schedule the RemindMe message. Please try again."
	msgNotSaved        = "Your reminder is scheduled, but it could not be saved, so it will not show up in your reminders and cannot be changed."
	msgCreateFailed    = "An unexpected error has occurred whilst attempting to create the reminder. Please try again."
	msgCreateSucceeded = "Success! I'll remind you <!date^%d^{date_short_pretty} at {time}|%s>."
)

// SlackInteractor is the part of the Slack client used by interactions.
type SlackInteractor interface {
	OpenReminderModal(ctx context.Context, triggerID string, ref gateway.ContentRef) error
	PostEphemeral(ctx context.Context, channelID, userID, text string) error
}

// SlackHandler handles Slack interactivity requests.
type SlackHandler struct {
	slack           SlackInteractor
	reminderService service.ReminderService
	signingSecret   string
	log             logger.Logger
	// dispatch runs work that must not delay the acknowledgement to Slack.
	dispatch func(func())
}

// NewSlackHandler creates a new SlackHandler.
func NewSlackHandler(
	slackInteractor SlackInteractor,
	reminderService service.ReminderService,
	signingSecret string,
	log logger.Logger,
) *SlackHandler {
	return &SlackHandler{
		slack:           slackInteractor,
		reminderService: reminderService,
		signingSecret:   signingSecret,
		log:             log,
		dispatch:        func(f func()) { go f() },
	}
}

// HandleInteraction is the entry point for shortcuts and view submissions.
func (h *SlackHandler) HandleInteraction(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.log.Error("Failed to read Slack interaction body", err)
		return c.String(http.StatusBadRequest, "Error reading request")
	}

	if err := h.verify(c.Request().Header, body); err != nil {
		h.log.Warn(fmt.Sprintf("Invalid Slack signature received: %v", err))
		return c.String(http.StatusUnauthorized, "Invalid signature")
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return c.String(http.StatusBadRequest, "Error parsing request")
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		h.log.Error("Failed to parse Slack interaction payload", err)
		return c.String(http.StatusBadRequest, "Error parsing payload")
	}

	h.log.Info(fmt.Sprintf("Processing Slack interaction type: %s", cb.Type))
	switch {
	case cb.Type == slack.InteractionTypeMessageAction && cb.CallbackID == slackClient.ShortcutCallbackID:
		return h.handleShortcut(c, &cb)
	case cb.Type == slack.InteractionTypeViewSubmission && cb.View.CallbackID == slackClient.SubmissionCallbackID:
		return h.handleSubmission(c, &cb)
	default:
		h.log.Info(fmt.Sprintf("Unhandled Slack interaction %s/%s", cb.Type, cb.CallbackID))
		return c.NoContent(http.StatusOK)
	}
}

func (h *SlackHandler) verify(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

// handleShortcut opens the delay picker for the message the shortcut was used on.
func (h *SlackHandler) handleShortcut(c echo.Context, cb *slack.InteractionCallback) error {
	ref := gateway.ContentRef{ChannelID: cb.Channel.ID, MessageTs: cb.Message.Timestamp}
	if err := h.slack.OpenReminderModal(c.Request().Context(), cb.TriggerID, ref); err != nil {
		h.log.Error(fmt.Sprintf("Failed to open reminder modal for user %s", cb.User.ID), err)
	}
	return c.NoContent(http.StatusOK)
}

// handleSubmission validates the chosen delay, acknowledges the view, and creates
// the reminder in the background. The outcome is reported with an ephemeral message.
func (h *SlackHandler) handleSubmission(c echo.Context, cb *slack.InteractionCallback) error {
	sub, err := slackClient.ParseSubmission(cb.View)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Invalid reminder submission from user %s: %v", cb.User.ID, err))
		return c.JSON(http.StatusOK, blockErrors(msgInvalidDelay))
	}
	if sub.AllZero() {
		return c.JSON(http.StatusOK, blockErrors(msgZeroDelay))
	}

	userID := cb.User.ID
	ctx := context.WithoutCancel(c.Request().Context())
	h.dispatch(func() {
		ctx, cancel := context.WithTimeout(ctx, submissionTimeout)
		defer cancel()

		reminder, err := h.reminderService.CreateReminder(ctx, dto.CreateReminderRequest{
			ContentRef:   sub.Ref,
			CreatorID:    userID,
			DelayMinutes: sub.Minutes,
			DelayHours:   sub.Hours,
			DelayDays:    sub.Days,
		})
		text := submissionReply(reminder, err)
		if err := h.slack.PostEphemeral(ctx, sub.Ref.ChannelID, userID, text); err != nil {
			h.log.Error(fmt.Sprintf("Failed to post reminder confirmation to user %s", userID), err)
		}
	})

	return c.NoContent(http.StatusOK)
}

func submissionReply(reminder *entity.Reminder, err error) string {
	switch {
	case err == nil:
		fallback := time.Unix(reminder.PostAt, 0).UTC().Format(time.RFC1123)
		return fmt.Sprintf(msgCreateSucceeded, reminder.PostAt, fallback)
	case errors.Is(err, appErrors.ErrLookup):
		return msgLookupFailed
	case errors.Is(err, appErrors.ErrScheduling):
		return msgScheduleFailed
	case errors.Is(err, appErrors.ErrOrphanedDelivery):
		return msgNotSaved
	default:
		return msgCreateFailed
	}
}

func blockErrors(message string) *slack.ViewSubmissionResponse {
	errs := make(map[string]string, len(slackClient.DelayBlockIDs))
	for _, id := range slackClient.DelayBlockIDs {
		errs[id] = message
	}
	return slack.NewErrorsViewSubmissionResponse(errs)
}
