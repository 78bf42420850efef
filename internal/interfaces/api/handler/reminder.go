package handler

import (
	"errors"
	"fmt"
	"net/http"
	"remindme/internal/application/dto"
	"remindme/internal/application/service"
	appErrors "remindme/internal/pkg/errors"
	"remindme/internal/pkg/logger"
	"time"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the Slack user id of the caller. It is set by the
// authenticating proxy in front of the service.
const HeaderUserID = "X-Slack-User-Id"

const callerKey = "caller"

// ReminderHandler serves the reminder REST API.
type ReminderHandler struct {
	reminderService service.ReminderService
	log             logger.Logger
	now             func() time.Time
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService service.ReminderService, log logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		log:             log,
		now:             time.Now,
	}
}

// RequireCaller rejects requests without a caller identity.
func RequireCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(HeaderUserID)
		if userID == "" {
			return c.JSON(http.StatusUnauthorized, errorBody("caller", fmt.Sprintf("missing %s header", HeaderUserID)))
		}
		c.Set(callerKey, userID)
		return next(c)
	}
}

// RequireOperator admits only the listed callers. It must run after RequireCaller.
func RequireOperator(operatorIDs []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(operatorIDs))
	for _, id := range operatorIDs {
		allowed[id] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[caller(c)] {
				return c.JSON(http.StatusForbidden, errorBody("caller", "operator access required"))
			}
			return next(c)
		}
	}
}

func caller(c echo.Context) string {
	userID, _ := c.Get(callerKey).(string)
	return userID
}

// ListReminders handles GET /reminders.
func (h *ReminderHandler) ListReminders(c echo.Context) error {
	reminders, err := h.reminderService.ListReminders(c.Request().Context(), caller(c))
	if err != nil {
		return h.fail(c, err, "creator_id")
	}
	return c.JSON(http.StatusOK, dto.ToReminderResponseList(reminders, h.now()))
}

// GetReminder handles GET /reminders/:id.
func (h *ReminderHandler) GetReminder(c echo.Context) error {
	reminder, err := h.reminderService.GetReminder(c.Request().Context(), c.Param("id"), caller(c))
	if err != nil {
		return h.fail(c, err, "id")
	}
	resp := dto.ToReminderResponse(reminder, h.now())
	return c.JSON(http.StatusOK, dto.MutationResponse{Reminder: &resp})
}

// CreateReminder handles POST /reminders.
func (h *ReminderHandler) CreateReminder(c echo.Context) error {
	var req dto.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		h.log.Warn(fmt.Sprintf("Invalid create request body: %v", err))
		return c.JSON(http.StatusBadRequest, errorBody("body", "invalid request body"))
	}
	req.CreatorID = caller(c)

	reminder, err := h.reminderService.CreateReminder(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "delay")
	}
	resp := dto.ToReminderResponse(reminder, h.now())
	return c.JSON(http.StatusCreated, dto.MutationResponse{Reminder: &resp})
}

// RetargetReminder handles PATCH /reminders/:id. A stale delivery that could
// not be cancelled is reported in errors next to the updated reminder.
func (h *ReminderHandler) RetargetReminder(c echo.Context) error {
	var req dto.RetargetReminderRequest
	if err := c.Bind(&req); err != nil {
		h.log.Warn(fmt.Sprintf("Invalid retarget request body: %v", err))
		return c.JSON(http.StatusBadRequest, errorBody("body", "invalid request body"))
	}
	req.ID = c.Param("id")
	req.RequesterID = caller(c)

	result, err := h.reminderService.RetargetReminder(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "post_at")
	}

	resp := dto.ToReminderResponse(result.Reminder, h.now())
	body := dto.MutationResponse{Reminder: &resp}
	for _, warning := range result.Warnings {
		body.Errors = append(body.Errors, dto.FieldError{Field: "scheduled_message", Message: warning.Error()})
	}
	return c.JSON(http.StatusOK, body)
}

// CancelReminder handles DELETE /reminders/:id.
func (h *ReminderHandler) CancelReminder(c echo.Context) error {
	ok, err := h.reminderService.CancelReminder(c.Request().Context(), dto.CancelReminderRequest{
		ID:          c.Param("id"),
		RequesterID: caller(c),
	})
	if err != nil {
		status := statusFor(err)
		h.logFailure(c, status, err)
		return c.JSON(status, dto.CancelResponse{
			Success: false,
			Errors:  []dto.FieldError{{Field: fieldFor(err, "id"), Message: err.Error()}},
		})
	}
	return c.JSON(http.StatusOK, dto.CancelResponse{Success: ok})
}

// SweepExpired handles POST /admin/sweep.
func (h *ReminderHandler) SweepExpired(c echo.Context) error {
	n, err := h.reminderService.SweepExpired(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "reminder")
	}
	return c.JSON(http.StatusOK, dto.SweepResponse{Removed: n})
}

func (h *ReminderHandler) fail(c echo.Context, err error, field string) error {
	status := statusFor(err)
	h.logFailure(c, status, err)
	return c.JSON(status, errorBody(fieldFor(err, field), err.Error()))
}

func (h *ReminderHandler) logFailure(c echo.Context, status int, err error) {
	msg := fmt.Sprintf("%s %s failed with %d", c.Request().Method, c.Path(), status)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, err)
		return
	}
	h.log.Info(fmt.Sprintf("%s: %v", msg, err))
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	// A lost write race is a conflict whichever step reports it.
	if errors.Is(err, appErrors.ErrConsistency) {
		return http.StatusConflict
	}
	switch appErrors.KindOf(err) {
	case appErrors.ErrValidation:
		return http.StatusBadRequest
	case appErrors.ErrNotFound:
		return http.StatusNotFound
	case appErrors.ErrLookup:
		return http.StatusUnprocessableEntity
	case appErrors.ErrScheduling, appErrors.ErrCancellation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fieldFor(err error, field string) string {
	switch appErrors.KindOf(err) {
	case appErrors.ErrNotFound:
		return "id"
	case appErrors.ErrLookup:
		return "message"
	case appErrors.ErrValidation:
		return field
	default:
		return "reminder"
	}
}

func errorBody(field, message string) dto.MutationResponse {
	return dto.MutationResponse{Errors: []dto.FieldError{{Field: field, Message: message}}}
}
