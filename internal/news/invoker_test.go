package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestHTTPInvokerFetch verifies the happy path including request shape.
func TestHTTPInvokerFetch(t *testing.T) {
	var gotBody invokeRequest
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/functions/v1/fetch-news", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "Bearer test-key",
				r.Header.Get("Authorization"))

			require.NoError(t,
				json.NewDecoder(r.Body).Decode(&gotBody))

			json.NewEncoder(w).Encode(invokeResponse{
				Articles: testArticles("a1", "a2"),
			})
		},
	))
	defer srv.Close()

	invoker := NewHTTPInvoker(InvokerConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, nil)

	articles, err := invoker.FetchNews(
		context.Background(),
		NormalizeQuery("fintech"),
		fn.Some("finance"),
	)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.Equal(t, "fintech "+QueryQualifier, gotBody.Query)
	require.Equal(t, "finance", gotBody.Category)
}

// TestHTTPInvokerRateLimit verifies both rate-limit signal shapes map to
// the distinguished sentinel.
func TestHTTPInvokerRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 429",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "in-band rate_limit code",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				json.NewEncoder(w).Encode(invokeResponse{
					Error: "too many requests",
					Code:  "rate_limit",
				})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			invoker := NewHTTPInvoker(
				InvokerConfig{BaseURL: srv.URL}, nil,
			)

			_, err := invoker.FetchNews(
				context.Background(), DefaultQuery,
				fn.None[string](),
			)
			require.ErrorIs(t, err, ErrRateLimited)
		})
	}
}

// TestHTTPInvokerGenericError verifies that non-429 failures are plain
// errors, not rate limits.
func TestHTTPInvokerGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	))
	defer srv.Close()

	invoker := NewHTTPInvoker(InvokerConfig{BaseURL: srv.URL}, nil)

	_, err := invoker.FetchNews(
		context.Background(), DefaultQuery, fn.None[string](),
	)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRateLimited)
}

// TestNormalizeQuery pins the query normalization rules.
func TestNormalizeQuery(t *testing.T) {
	require.Equal(t, DefaultQuery, NormalizeQuery(""))
	require.Equal(t, "fintech "+QueryQualifier, NormalizeQuery("fintech"))
}
