package handler

import (
	"context"
	"errors"
	"fmt"
	"medreminder/internal/application/service"
	"medreminder/internal/domain/constant"
	"medreminder/internal/infrastructure/line"
	"medreminder/internal/pkg/logger"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// LineHandler handles incoming LINE webhook events. Postbacks from reminder
// quick replies are notification clicks.
type LineHandler struct {
	lineClient      *line.Client
	background      service.BackgroundScheduler
	reminderService service.ReminderService
	log             logger.Logger
}

// NewLineHandler creates a new LineHandler.
func NewLineHandler(
	lineClient *line.Client,
	background service.BackgroundScheduler,
	reminderService service.ReminderService,
	log logger.Logger,
) *LineHandler {
	return &LineHandler{
		lineClient:      lineClient,
		background:      background,
		reminderService: reminderService,
		log:             log,
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
		h.log.Info(fmt.Sprintf("Processing event type: %s", event.Type))
		switch event.Type {
		case linebot.EventTypePostback:
			h.handlePostbackEvent(ctx, event)
		case linebot.EventTypeMessage:
			h.handleMessageEvent(ctx, event)
		case linebot.EventTypeFollow:
			h.reply(ctx, event.ReplyToken, fmt.Sprintf("Thanks for following! Medicine reminders for user %s will arrive here.", event.Source.UserID))
		case linebot.EventTypeUnfollow:
			h.log.Info(fmt.Sprintf("User %s unfollowed", event.Source.UserID))
		default:
			h.log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		}
	}

	return c.String(http.StatusOK, "OK")
}

func (h *LineHandler) handlePostbackEvent(ctx context.Context, event *linebot.Event) {
	id, action, err := line.ParseClick(event.Postback.Data)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Ignoring postback %q: %v", event.Postback.Data, err))
		return
	}
	if err := h.background.HandleClick(ctx, id, action); err != nil {
		h.log.Error(fmt.Sprintf("Failed to handle %q on reminder %s", action, id), err)
		h.reply(ctx, event.ReplyToken, "Sorry, that action could not be applied.")
		return
	}

	name := id
	if reminder, err := h.reminderService.Get(ctx, id); err == nil {
		name = reminder.MedicineName
	}
	switch action {
	case constant.ActionSnooze:
		h.reply(ctx, event.ReplyToken, fmt.Sprintf("Snoozed %s.", name))
	case constant.ActionTaken:
		h.reply(ctx, event.ReplyToken, fmt.Sprintf("Marked %s as taken.", name))
	}
}

func (h *LineHandler) handleMessageEvent(ctx context.Context, event *linebot.Event) {
	msg, ok := event.Message.(*linebot.TextMessage)
	if !ok {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(msg.Text), "list") {
		h.reply(ctx, event.ReplyToken, "Send \"list\" to see your medicine reminders.")
		return
	}

	reminders, err := h.reminderService.List(ctx, event.Source.UserID)
	if err != nil {
		h.reply(ctx, event.ReplyToken, "Could not load your reminders right now.")
		return
	}
	if len(reminders) == 0 {
		h.reply(ctx, event.ReplyToken, "You have no medicine reminders.")
		return
	}
	var b strings.Builder
	b.WriteString("Your medicine reminders:")
	for _, r := range reminders {
		fmt.Fprintf(&b, "\n%s %s", r.Time, r.MedicineName)
		if d := r.DosageText(); d != "" {
			fmt.Fprintf(&b, " (%s)", d)
		}
	}
	h.reply(ctx, event.ReplyToken, b.String())
}

func (h *LineHandler) reply(ctx context.Context, token, text string) {
	if token == "" {
		return
	}
	if err := h.lineClient.Reply(ctx, token, text); err != nil {
		h.log.Error("Failed to send LINE reply", err)
	}
}
