package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"remindme/internal/pkg/logger"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// maxTextLength is the LINE limit for a single text message.
const maxTextLength = 5000

// Client wraps the linebot.Client and pushes operator alerts.
type Client struct {
	*linebot.Client
	operatorID string
	log        logger.Logger
}

// NewClient creates a LINE Bot client that alerts operatorID.
func NewClient(channelSecret, channelToken, operatorID string, log logger.Logger) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, errors.New("LINE channel secret and access token must be set")
	}
	if operatorID == "" {
		return nil, errors.New("LINE operator user ID must be set")
	}

	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE Bot client: %w", err)
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{
		Client:     bot,
		operatorID: operatorID,
		log:        log,
	}, nil
}

// OperatorID returns the LINE user that receives alerts.
func (c *Client) OperatorID() string {
	return c.operatorID
}

// Notify pushes text to the operator.
func (c *Client) Notify(ctx context.Context, text string) error {
	return c.PushMessages(ctx, c.operatorID, linebot.NewTextMessage(truncate(text)))
}

// SendMessages sends one or more messages using the ReplyMessage API.
func (c *Client) SendMessages(ctx context.Context, replyToken string, messages ...linebot.SendingMessage) error {
	if _, err := c.ReplyMessage(replyToken, messages...).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug("Successfully sent reply message.")
	return nil
}

// PushMessages sends one or more messages using the PushMessage API.
func (c *Client) PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error {
	if _, err := c.PushMessage(to, messages...).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug(fmt.Sprintf("Successfully sent push message to %s.", to))
	return nil
}

// ParseRequest parses incoming webhook requests.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.Client.ParseRequest(r)
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextLength {
		return text
	}
	return string(runes[:maxTextLength-1]) + "…"
}
