package line

import (
	"context"
	"fmt"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/gateway"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"net/http"
	"net/url"
	"strings"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Client wraps the linebot.Client and delivers reminders as LINE push messages.
// Notification actions become postback quick replies.
type Client struct {
	bot *linebot.Client
	log logger.Logger
}

// NewClient creates a LINE Bot client from channel credentials.
func NewClient(channelSecret, channelToken string, log logger.Logger, options ...linebot.ClientOption) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, fmt.Errorf("CHANNEL_SECRET and CHANNEL_ACCESS_TOKEN must be set")
	}
	bot, err := linebot.New(channelSecret, channelToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE Bot client: %w", err)
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{bot: bot, log: log}, nil
}

// RequestPermission always grants: following the bot is the user's consent.
func (c *Client) RequestPermission(ctx context.Context) (gateway.Permission, error) {
	return gateway.PermissionGranted, nil
}

// Show pushes the notification to its owner.
func (c *Client) Show(ctx context.Context, n gateway.Notification) (gateway.Handle, error) {
	if n.OwnerID == "" {
		return "", fmt.Errorf("%w: notification for %s has no owner", appErrors.ErrDelivery, n.Tag)
	}

	var msg linebot.SendingMessage = linebot.NewTextMessage(n.Title + "\n" + n.Body)
	if len(n.Actions) > 0 {
		buttons := make([]*linebot.QuickReplyButton, 0, len(n.Actions))
		for _, a := range n.Actions {
			action := &linebot.PostbackAction{
				Label:       a.Title,
				Data:        ClickData(n.Data.ReminderID, constant.ClickAction(a.Action)),
				DisplayText: a.Title,
			}
			buttons = append(buttons, linebot.NewQuickReplyButton("", action))
		}
		msg = linebot.NewTextMessage(n.Title + "\n" + n.Body).WithQuickReplies(linebot.NewQuickReplyItems(buttons...))
	}

	if _, err := c.bot.PushMessage(n.OwnerID, msg).WithContext(ctx).Do(); err != nil {
		return "", fmt.Errorf("%w: %v", appErrors.ErrDelivery, err)
	}
	c.log.Debug("Successfully sent push message.")
	return gateway.Handle(n.Tag), nil
}

// Reply answers a webhook event with plain text.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if _, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug("Successfully sent reply message.")
	return nil
}

// ParseRequest parses and verifies incoming webhook requests.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

// ClickData encodes a notification action as postback data.
func ClickData(id string, action constant.ClickAction) string {
	v := url.Values{}
	v.Set("action", string(action))
	v.Set("id", id)
	return v.Encode()
}

// ParseClick decodes postback data produced by ClickData.
func ParseClick(data string) (string, constant.ClickAction, error) {
	v, err := url.ParseQuery(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", appErrors.ErrInvalidMessage, err)
	}
	id := strings.TrimSpace(v.Get("id"))
	if id == "" {
		return "", "", fmt.Errorf("%w: postback without id", appErrors.ErrInvalidMessage)
	}
	return id, constant.ClickAction(v.Get("action")), nil
}
