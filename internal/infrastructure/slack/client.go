package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"remindme/internal/domain/gateway"
	"remindme/internal/pkg/logger"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Platform error codes meaning the referenced message cannot be seen by the bot.
var contentMissingCodes = map[string]bool{
	"message_not_found": true,
	"channel_not_found": true,
	"not_in_channel":    true,
	"thread_not_found":  true,
}

// Client talks to the Slack Web API. It resolves message content and schedules
// reminder deliveries as direct messages from the bot.
type Client struct {
	api        *slack.Client
	token      string
	apiURL     string
	httpClient *http.Client
	timeout    time.Duration
	log        logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithAPIURL points the client at another Web API base URL. It must end in a slash.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Slack client. Every API call is bounded by timeout.
func NewClient(token string, timeout time.Duration, log logger.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("slack OAuth token must be set")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid slack call timeout %s", timeout)
	}
	c := &Client{
		token:      token,
		apiURL:     slack.APIURL,
		httpClient: &http.Client{},
		timeout:    timeout,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = slack.New(token, slack.OptionAPIURL(c.apiURL), slack.OptionHTTPClient(c.httpClient))
	log.Info("Successfully created Slack client.")
	return c, nil
}

// ResolveContent looks up the permalink and a snapshot of the referenced message.
// Author and channel names are best effort; a failed name lookup leaves them empty.
func (c *Client) ResolveContent(ctx context.Context, ref gateway.ContentRef) (*gateway.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	permalink, err := c.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{
		Channel: ref.ChannelID,
		Ts:      ref.MessageTs,
	})
	if err != nil {
		return nil, classify("chat.getPermalink", err)
	}

	history, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: ref.ChannelID,
		Latest:    ref.MessageTs,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil, classify("conversations.history", err)
	}
	if len(history.Messages) == 0 || history.Messages[0].Timestamp != ref.MessageTs {
		return nil, fmt.Errorf("conversations.history: message %s in %s: %w", ref.MessageTs, ref.ChannelID, gateway.ErrContentNotFound)
	}
	msg := history.Messages[0]

	content := &gateway.Content{
		Permalink:      permalink,
		AuthorID:       msg.User,
		AuthorName:     msg.Username,
		ChannelID:      ref.ChannelID,
		MessageTs:      ref.MessageTs,
		MessageContent: msg.Text,
	}
	if content.AuthorID == "" {
		content.AuthorID = msg.BotID
	}

	if msg.User != "" {
		user, err := c.api.GetUserInfoContext(ctx, msg.User)
		if err != nil {
			c.log.Warn(fmt.Sprintf("Failed to look up author %s of message %s: %v", msg.User, ref.MessageTs, err))
		} else {
			content.AuthorName = displayName(user)
		}
	}

	channel, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: ref.ChannelID})
	if err != nil {
		c.log.Warn(fmt.Sprintf("Failed to look up channel %s: %v", ref.ChannelID, err))
	} else {
		content.ChannelName = channel.Name
	}

	return content, nil
}

// ScheduleDelivery schedules text as a direct message to targetID.
func (c *Client) ScheduleDelivery(ctx context.Context, targetID, text string, postAt int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	channelID, err := c.openDM(ctx, targetID)
	if err != nil {
		return "", err
	}

	handle, err := c.scheduleMessage(ctx, channelID, text, postAt)
	if err != nil {
		return "", fmt.Errorf("chat.scheduleMessage: %w", err)
	}
	c.log.Debug(fmt.Sprintf("Scheduled message %s in %s at %d", handle, channelID, postAt))
	return handle, nil
}

// CancelDelivery deletes a scheduled direct message to targetID.
func (c *Client) CancelDelivery(ctx context.Context, targetID, handle string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	channelID, err := c.openDM(ctx, targetID)
	if err != nil {
		return err
	}

	if _, err := c.api.DeleteScheduledMessageContext(ctx, &slack.DeleteScheduledMessageParameters{
		Channel:            channelID,
		ScheduledMessageID: handle,
	}); err != nil {
		return fmt.Errorf("chat.deleteScheduledMessage: %w", err)
	}
	c.log.Debug(fmt.Sprintf("Deleted scheduled message %s in %s", handle, channelID))
	return nil
}

// OpenReminderModal opens the delay picker for the message identified by ref.
func (c *Client) OpenReminderModal(ctx context.Context, triggerID string, ref gateway.ContentRef) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	view, err := ReminderModal(ref)
	if err != nil {
		return err
	}
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("views.open: %w", err)
	}
	return nil
}

// PostEphemeral shows text to userID only, in channelID.
func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.postEphemeral: %w", err)
	}
	return nil
}

type scheduleMessageResponse struct {
	slack.SlackResponse
	Channel            string `json:"channel"`
	ScheduledMessageID string `json:"scheduled_message_id"`
}

// scheduleMessage posts chat.scheduleMessage itself: slack-go's
// ScheduleMessageContext drops scheduled_message_id from the response.
func (c *Client) scheduleMessage(ctx context.Context, channelID, text string, postAt int64) (string, error) {
	form := url.Values{
		"channel": {channelID},
		"post_at": {strconv.FormatInt(postAt, 10)},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"chat.scheduleMessage", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 64)
		return "", &slack.RateLimitedError{RetryAfter: time.Duration(retryAfter) * time.Second}
	case resp.StatusCode != http.StatusOK:
		return "", slack.StatusCodeError{Code: resp.StatusCode, Status: resp.Status}
	}

	var body scheduleMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if err := body.Err(); err != nil {
		return "", err
	}
	if !body.Ok {
		return "", errors.New("request was not accepted")
	}
	if body.ScheduledMessageID == "" {
		return "", errors.New("response carried no scheduled_message_id")
	}
	return body.ScheduledMessageID, nil
}

// openDM returns the bot's direct message channel with userID.
func (c *Client) openDM(ctx context.Context, userID string) (string, error) {
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", fmt.Errorf("conversations.open for %s: %w", userID, err)
	}
	return channel.ID, nil
}

func classify(call string, err error) error {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) && contentMissingCodes[slackErr.Err] {
		return fmt.Errorf("%s: %s: %w", call, slackErr.Err, gateway.ErrContentNotFound)
	}
	if contentMissingCodes[err.Error()] {
		return fmt.Errorf("%s: %s: %w", call, err.Error(), gateway.ErrContentNotFound)
	}
	return fmt.Errorf("%s: %w", call, err)
}

func displayName(user *slack.User) string {
	switch {
	case user.Profile.DisplayName != "":
		return user.Profile.DisplayName
	case user.RealName != "":
		return user.RealName
	default:
		return user.Name
	}
}
