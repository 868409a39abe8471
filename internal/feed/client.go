package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivoirehub/hubsync/internal/notify"
)

// defaultDialTimeout bounds the websocket handshake.
const defaultDialTimeout = 10 * time.Second

// ClientConfig holds configuration for the change-feed client.
type ClientConfig struct {
	// BaseURL is the gateway base, e.g. "http://localhost:8090". The
	// scheme is rewritten to ws/wss for the feed endpoint.
	BaseURL string

	// Dialer overrides the websocket dialer. Defaults to a dialer with
	// defaultDialTimeout.
	Dialer *websocket.Dialer

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client subscribes to the gateway's notification change feed over a
// websocket connection.
type Client struct {
	cfg    ClientConfig
	dialer *websocket.Dialer
	log    *slog.Logger
}

// NewClient creates a change-feed client for the given gateway.
func NewClient(cfg ClientConfig) *Client {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: defaultDialTimeout,
		}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		dialer: dialer,
		log:    log.With("component", "feed-client"),
	}
}

// Subscribe dials the feed endpoint for the given user and delivers insert
// events to ch until unsubscribed or the connection drops. The returned
// unsubscribe function closes the connection and never blocks on pending
// deliveries.
//
// NOTE: This implements the notify.ChangeFeed interface.
func (c *Client) Subscribe(ctx context.Context, userID string,
	ch chan<- notify.Notification) (func(), error) {

	wsURL, err := c.feedURL(userID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf(
				"feed dial failed (status %d): %w",
				resp.StatusCode, err,
			)
		}
		return nil, fmt.Errorf("feed dial failed: %w", err)
	}

	done := make(chan struct{})
	go c.readLoop(conn, userID, ch, done)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})
	}

	return unsubscribe, nil
}

// readLoop decodes feed frames and forwards inserts until the connection
// closes.
func (c *Client) readLoop(conn *websocket.Conn, userID string,
	ch chan<- notify.Notification, done <-chan struct{}) {

	defer conn.Close()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			select {
			case <-done:
				// Deliberate unsubscribe.
			default:
				c.log.Warn("Change feed connection lost",
					"user_id", userID, "err", err)
			}
			return
		}

		if event.Type != EventInsert || event.Notification == nil {
			continue
		}

		select {
		case ch <- *event.Notification:
		case <-done:
			return
		}
	}
}

// feedURL builds the websocket URL for a user's feed subscription.
func (c *Client) feedURL(userID string) (string, error) {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch {
	case parsed.Scheme == "https":
		parsed.Scheme = "wss"
	case parsed.Scheme == "http" || parsed.Scheme == "":
		parsed.Scheme = "ws"
	case strings.HasPrefix(parsed.Scheme, "ws"):
		// Already a websocket scheme.
	default:
		return "", fmt.Errorf(
			"unsupported scheme %q", parsed.Scheme,
		)
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws"
	query := parsed.Query()
	query.Set("user_id", userID)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// Ensure Client implements the synchronizer's feed contract at compile
// time.
var _ notify.ChangeFeed = (*Client)(nil)
