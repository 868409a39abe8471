package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/ivoirehub/hubsync/internal/db"
	"github.com/ivoirehub/hubsync/internal/feed"
	"github.com/ivoirehub/hubsync/internal/news"
	"github.com/ivoirehub/hubsync/internal/notify"
)

// newTestGateway brings up a gateway over a throwaway database.
func newTestGateway(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "gw.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if cfg == nil {
		cfg = DefaultConfig()
	}
	server := NewServer(cfg, store)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return server, srv
}

// postJSON posts v to the gateway and decodes the response into out (when
// non-nil), returning the status code.
func postJSON(t *testing.T, url string, v, out any) int {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func createNotification(t *testing.T, baseURL string,
	req createNotificationRequest) notify.Notification {

	t.Helper()

	var created notify.Notification
	status := postJSON(t, baseURL+"/api/v1/notifications", req, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)

	return created
}

func TestGatewayNotificationLifecycle(t *testing.T) {
	_, srv := newTestGateway(t, nil)

	first := createNotification(t, srv.URL, createNotificationRequest{
		UserID:  "user-a",
		Type:    notify.TypeNewOpportunity,
		Title:   "appel à projets",
		Message: "un nouvel appel à projets est ouvert",
	})
	createNotification(t, srv.URL, createNotificationRequest{
		UserID:  "user-a",
		Type:    notify.TypeNewEvent,
		Title:   "forum des startups",
		Message: "les inscriptions sont ouvertes",
	})

	// List is scoped per user and reports the unread count.
	var listed struct {
		Notifications []notify.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unread_count"`
	}
	resp, err := http.Get(
		srv.URL + "/api/v1/notifications?user_id=user-a",
	)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed.Notifications, 2)
	require.Equal(t, 2, listed.UnreadCount)

	// Mark one read.
	status := postJSON(t, srv.URL+"/api/v1/notifications/read",
		markReadRequest{ID: first.ID, UserID: "user-a"}, nil)
	require.Equal(t, http.StatusOK, status)

	// Wrong owner cannot mutate the row.
	status = postJSON(t, srv.URL+"/api/v1/notifications/read",
		markReadRequest{ID: first.ID, UserID: "user-b"}, nil)
	require.Equal(t, http.StatusNotFound, status)

	// Mark the rest read in bulk.
	status = postJSON(t, srv.URL+"/api/v1/notifications/read-all",
		markAllReadRequest{UserID: "user-a"}, nil)
	require.Equal(t, http.StatusOK, status)

	resp, err = http.Get(
		srv.URL + "/api/v1/notifications?user_id=user-a",
	)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Zero(t, listed.UnreadCount)
}

func TestGatewayCreateValidation(t *testing.T) {
	_, srv := newTestGateway(t, nil)

	// Missing user_id.
	status := postJSON(t, srv.URL+"/api/v1/notifications",
		createNotificationRequest{Title: "t", Type: notify.TypeComment},
		nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Unknown type.
	status = postJSON(t, srv.URL+"/api/v1/notifications",
		createNotificationRequest{
			UserID: "user-a", Title: "t", Type: "bogus",
		}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGatewayFeedDelivery(t *testing.T) {
	_, srv := newTestGateway(t, nil)

	client := feed.NewClient(feed.ClientConfig{BaseURL: srv.URL})
	ch := make(chan notify.Notification, 8)
	unsub, err := client.Subscribe(context.Background(), "user-a", ch)
	require.NoError(t, err)
	defer unsub()

	// Give the server a beat to register the subscription.
	time.Sleep(50 * time.Millisecond)

	created := createNotification(t, srv.URL, createNotificationRequest{
		UserID:  "user-a",
		Type:    notify.TypeStatusChange,
		Title:   "label approuvé",
		Message: "votre label startup a été approuvé",
	})

	// A notification for another user must not reach this feed.
	createNotification(t, srv.URL, createNotificationRequest{
		UserID:  "user-b",
		Type:    notify.TypeComment,
		Title:   "autre utilisateur",
		Message: "hors sujet",
	})

	select {
	case got := <-ch:
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, "user-a", got.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("feed delivery timed out")
	}
	require.Empty(t, ch)
}

func TestGatewayNewsFunction(t *testing.T) {
	_, srv := newTestGateway(t, nil)

	invoker := news.NewHTTPInvoker(news.InvokerConfig{
		BaseURL: srv.URL,
	}, nil)

	// The default query matches the seeded corpus broadly.
	articles, err := invoker.FetchNews(context.Background(),
		news.DefaultQuery, fn.None[string]())
	require.NoError(t, err)
	require.NotEmpty(t, articles)

	// Newest first.
	for i := 1; i < len(articles); i++ {
		require.False(t, articles[i].PublishedAt.After(
			articles[i-1].PublishedAt))
	}

	// Category filter narrows the result set.
	financement, err := invoker.FetchNews(context.Background(),
		news.DefaultQuery, fn.Some("financement"))
	require.NoError(t, err)
	require.NotEmpty(t, financement)
	for _, article := range financement {
		require.Equal(t, "financement", article.Category)
	}
	require.Less(t, len(financement), len(articles))
}

func TestGatewayNewsRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NewsRateLimit = 2
	_, srv := newTestGateway(t, cfg)

	invoker := news.NewHTTPInvoker(news.InvokerConfig{
		BaseURL: srv.URL,
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := invoker.FetchNews(context.Background(),
			news.DefaultQuery, fn.None[string]())
		require.NoError(t, err)
	}

	// The third invocation in the window blows the budget and must be
	// recognizable as rate limiting.
	_, err := invoker.FetchNews(context.Background(),
		news.DefaultQuery, fn.None[string]())
	require.ErrorIs(t, err, news.ErrRateLimited)
}

// TestGatewaySynchronizerEndToEnd wires the full client stack (store +
// websocket feed + synchronizer) against a live gateway.
func TestGatewaySynchronizerEndToEnd(t *testing.T) {
	_, srv := newTestGateway(t, nil)

	sync := notify.NewSynchronizer(notify.Config{
		Store: feed.NewStoreClient(srv.URL, nil),
		Feed:  feed.NewClient(feed.ClientConfig{BaseURL: srv.URL}),
	})

	require.NoError(t, sync.Login(context.Background(), "user-a"))
	require.Equal(t, notify.StateSynced, sync.State())
	require.Empty(t, sync.Notifications())

	created := createNotification(t, srv.URL, createNotificationRequest{
		UserID:  "user-a",
		Type:    notify.TypeRenewalReminder,
		Title:   "renouvellement du label",
		Message: "votre label expire dans 30 jours",
	})

	require.Eventually(t, func() bool {
		return sync.UnreadCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, created.ID, sync.Notifications()[0].ID)

	require.NoError(t, sync.MarkAsRead(context.Background(), created.ID))
	require.Zero(t, sync.UnreadCount())

	sync.Logout()
	require.Equal(t, notify.StateLoggedOut, sync.State())
	require.Empty(t, sync.Notifications())
}
