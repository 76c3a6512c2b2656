package channel

import (
	"context"
	"fmt"
	"medreminder/internal/application/dto"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Client is the foreground side of the channel. Run keeps it connected,
// redialing with exponential backoff.
type Client struct {
	url string
	log logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	handler   Handler
	onConnect func(ctx context.Context)
	connected chan struct{}
}

// NewClient creates a client for the websocket endpoint at url.
func NewClient(url string, log logger.Logger) *Client {
	return &Client{
		url:       url,
		log:       log,
		connected: make(chan struct{}),
	}
}

// SetHandler sets the function applied to every message from the host.
func (c *Client) SetHandler(fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// OnConnect sets the function called after every successful dial.
func (c *Client) OnConnect(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// Send writes env to the host. It fails with ErrChannelClosed while disconnected.
func (c *Client) Send(ctx context.Context, env dto.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return appErrors.ErrChannelClosed
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrChannelClosed, err)
	}
	return nil
}

// Connected returns a channel closed once the first connection is up.
func (c *Client) Connected() <-chan struct{} {
	return c.connected
}

// Run dials and serves the connection until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.MaxInterval = 30 * time.Second
	exp.MaxElapsedTime = 0
	exp.Reset()

	var once sync.Once
	for {
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err == nil {
			exp.Reset()
			c.setConn(conn)
			once.Do(func() { close(c.connected) })
			c.log.Info(fmt.Sprintf("Connected to %s", c.url))

			c.mu.Lock()
			onConnect := c.onConnect
			c.mu.Unlock()
			if onConnect != nil {
				onConnect(ctx)
			}

			err = c.readLoop(ctx, conn)
			c.setConn(nil)
			conn.Close(websocket.StatusNormalClosure, "")
		}
		if ctx.Err() != nil {
			return nil
		}

		wait := exp.NextBackOff()
		c.log.Warn(fmt.Sprintf("Channel to %s lost (%v), retrying in %s", c.url, err, wait.Round(time.Millisecond)))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var env dto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler == nil {
			continue
		}
		if err := handler(ctx, env); err != nil {
			c.log.Warn(fmt.Sprintf("Failed to handle %s: %v", env.Type, err))
		}
	}
}
