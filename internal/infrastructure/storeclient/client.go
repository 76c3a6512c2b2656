// Package storeclient reads the Reminder Store over its REST API.
package storeclient

import (
	"context"
	"fmt"
	"medreminder/internal/application/dto"
	"medreminder/internal/domain/entity"
	appErrors "medreminder/internal/pkg/errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client lists and fetches reminders from the host process.
type Client struct {
	client *resty.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &Client{client: c}
}

// List returns the reminders of owner.
func (c *Client) List(ctx context.Context, owner string) ([]*entity.Reminder, error) {
	var payloads []dto.ReminderPayload
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("user_id", owner).
		SetResult(&payloads).
		Get("/api/reminders")
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list reminders: status %d: %s", resp.StatusCode(), resp.String())
	}
	return dto.EntityList(payloads), nil
}

// Get fetches one reminder.
func (c *Client) Get(ctx context.Context, id string) (*entity.Reminder, error) {
	var payload dto.ReminderPayload
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&payload).
		Get("/api/reminders/{id}")
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return payload.Entity(), nil
	case http.StatusNotFound:
		return nil, appErrors.ErrReminderNotFound
	default:
		return nil, fmt.Errorf("get reminder: status %d: %s", resp.StatusCode(), resp.String())
	}
}
