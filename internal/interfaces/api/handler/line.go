package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"remindme/internal/application/service"
	"remindme/internal/domain/constant"
	"remindme/internal/pkg/logger"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Operator commands understood over LINE.
const (
	commandSweep = "sweep"
	commandList  = "list"
	commandHelp  = "help"
)

// maxListedReminders caps the reminders listed in a single reply.
const maxListedReminders = 20

// LineMessenger is the part of the LINE client used by the operator webhook.
type LineMessenger interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
	SendMessages(ctx context.Context, replyToken string, messages ...linebot.SendingMessage) error
	OperatorID() string
}

// LineHandler handles LINE webhook events sent by the operator.
type LineHandler struct {
	lineClient      LineMessenger
	reminderService service.ReminderService
	log             logger.Logger
	now             func() time.Time
}

// NewLineHandler creates a new LineHandler.
func NewLineHandler(
	lineClient LineMessenger,
	reminderService service.ReminderService,
	log logger.Logger,
) *LineHandler {
	return &LineHandler{
		lineClient:      lineClient,
		reminderService: reminderService,
		log:             log,
		now:             time.Now,
	}
}

// HandleWebhook is the main entry point for webhook requests.
func (h *LineHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.lineClient.ParseRequest(c.Request())
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.log.Warn("Invalid LINE signature received")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		h.log.Error("Failed to parse LINE webhook request", err)
		return c.String(http.StatusInternalServerError, "Error parsing request")
	}

	for _, event := range events {
		if event.Type != linebot.EventTypeMessage {
			h.log.Debug(fmt.Sprintf("Unhandled LINE event type: %s", event.Type))
			continue
		}
		if event.Source == nil || event.Source.UserID != h.lineClient.OperatorID() {
			h.log.Warn("Ignoring LINE message from a user other than the operator")
			continue
		}
		message, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			continue
		}
		h.handleCommand(ctx, event.ReplyToken, message.Text)
	}

	return c.String(http.StatusOK, "OK")
}

func (h *LineHandler) handleCommand(ctx context.Context, replyToken, text string) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		h.sendHelp(ctx, replyToken)
		return
	}
	h.log.Info(fmt.Sprintf("Received operator command: %s", fields[0]))

	switch fields[0] {
	case commandSweep:
		n, err := h.reminderService.SweepExpired(ctx)
		if err != nil {
			h.reply(ctx, replyToken, fmt.Sprintf("Sweep failed: %v", err))
			return
		}
		h.reply(ctx, replyToken, fmt.Sprintf("Removed %d expired reminders.", n))
	case commandList:
		if len(fields) != 2 {
			h.reply(ctx, replyToken, "Usage: list <slack user id>")
			return
		}
		// Slack ids are upper case.
		h.sendReminderList(ctx, replyToken, strings.ToUpper(fields[1]))
	default:
		h.sendHelp(ctx, replyToken)
	}
}

func (h *LineHandler) sendReminderList(ctx context.Context, replyToken, creatorID string) {
	reminders, err := h.reminderService.ListReminders(ctx, creatorID)
	if err != nil {
		h.reply(ctx, replyToken, fmt.Sprintf("Listing reminders failed: %v", err))
		return
	}
	if len(reminders) == 0 {
		h.reply(ctx, replyToken, fmt.Sprintf("%s has no reminders.", creatorID))
		return
	}

	now := h.now()
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s has %d reminders:", creatorID, len(reminders))
	for i, r := range reminders {
		if i == maxListedReminders {
			fmt.Fprintf(&builder, "\n...and %d more", len(reminders)-i)
			break
		}
		fmt.Fprintf(&builder, "\n%s %s [%s] %s",
			time.Unix(r.PostAt, 0).UTC().Format("2006/01/02 15:04"),
			constant.StateAt(r.PostAt, now),
			r.ScheduledMessageID,
			r.ID,
		)
	}
	h.reply(ctx, replyToken, builder.String())
}

func (h *LineHandler) sendHelp(ctx context.Context, replyToken string) {
	help := `Commands:
sweep - remove expired reminders now
list <slack user id> - show a user's reminders and their delivery handles`

	quickReply := linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(commandSweep, commandSweep)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(commandHelp, commandHelp)),
	)
	message := linebot.NewTextMessage(help).WithQuickReplies(quickReply)
	if err := h.lineClient.SendMessages(ctx, replyToken, message); err != nil {
		h.log.Error("Failed to send operator help message", err)
	}
}

func (h *LineHandler) reply(ctx context.Context, replyToken, text string) {
	if err := h.lineClient.SendMessages(ctx, replyToken, linebot.NewTextMessage(text)); err != nil {
		h.log.Error(fmt.Sprintf("Failed to send operator reply: %s", text), err)
	}
}
