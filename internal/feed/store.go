package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ivoirehub/hubsync/internal/notify"
)

// defaultRequestTimeout bounds a single API request.
const defaultRequestTimeout = 15 * time.Second

// StoreClient implements the synchronizer's storage contract against the
// gateway's JSON API, for clients that do not share the daemon's database.
type StoreClient struct {
	baseURL string
	client  *http.Client
}

// NewStoreClient creates an API-backed store for the given gateway.
func NewStoreClient(baseURL string, client *http.Client) *StoreClient {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &StoreClient{
		baseURL: baseURL,
		client:  client,
	}
}

// ListNotifications implements notify.Store.
func (c *StoreClient) ListNotifications(ctx context.Context, userID string,
	limit int) ([]notify.Notification, error) {

	endpoint := fmt.Sprintf(
		"%s/api/v1/notifications?user_id=%s&limit=%d",
		c.baseURL, url.QueryEscape(userID), limit,
	)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, endpoint, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var decoded struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	if err := c.do(req, &decoded); err != nil {
		return nil, err
	}

	return decoded.Notifications, nil
}

// MarkNotificationRead implements notify.Store.
func (c *StoreClient) MarkNotificationRead(ctx context.Context, id,
	userID string) error {

	return c.post(ctx, "/api/v1/notifications/read", map[string]string{
		"id":      id,
		"user_id": userID,
	})
}

// MarkAllNotificationsRead implements notify.Store.
func (c *StoreClient) MarkAllNotificationsRead(ctx context.Context,
	userID string) error {

	return c.post(ctx, "/api/v1/notifications/read-all",
		map[string]string{"user_id": userID})
}

// Create asks the gateway to mint and fan out a new notification.
func (c *StoreClient) Create(ctx context.Context,
	n notify.Notification) (notify.Notification, error) {

	body, err := json.Marshal(n)
	if err != nil {
		return notify.Notification{},
			fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return notify.Notification{},
			fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created notify.Notification
	if err := c.do(req, &created); err != nil {
		return notify.Notification{}, err
	}

	return created, nil
}

// post issues a JSON POST with no interesting response body.
func (c *StoreClient) post(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// do executes the request, mapping API errors, and decodes a 2xx body into
// out when non-nil.
func (c *StoreClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return notify.ErrNotificationNotFound
		}

		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("gateway returned %d: %s",
				resp.StatusCode, apiErr.Error)
		}

		return fmt.Errorf("gateway returned status %d",
			resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Ensure StoreClient implements the synchronizer's storage contract at
// compile time.
var _ notify.Store = (*StoreClient)(nil)
