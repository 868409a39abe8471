package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultFunctionName is the edge function that aggregates news for
	// the portal.
	DefaultFunctionName = "fetch-news"

	// DefaultQuery is the canned query used when the user has not typed
	// anything: the landing view of the news page.
	DefaultQuery = "startups innovation Côte d'Ivoire"

	// QueryQualifier is appended to every non-empty user query to scope
	// results to the portal's geographic and thematic domain.
	QueryQualifier = "Côte d'Ivoire"

	// rateLimitErrorCode is the error code the aggregator uses for
	// request-budget rejections, alongside HTTP 429.
	rateLimitErrorCode = "rate_limit"

	// defaultInvokeTimeout bounds a single function invocation.
	defaultInvokeTimeout = 15 * time.Second
)

// Invoker is the function-invocation half of the external data gateway:
// an RPC-style call into a hosted edge function that aggregates news.
// Implementations must surface rate limiting as ErrRateLimited so callers
// can fall back to archived data with a distinct warning.
type Invoker interface {
	// FetchNews invokes the aggregation function with a normalized query
	// and an optional category filter (None means all categories).
	FetchNews(ctx context.Context, query string,
		category fn.Option[string]) ([]Article, error)
}

// NormalizeQuery converts raw user input into the query string sent to the
// aggregator: the canned default for empty input, otherwise the input with
// the fixed domain qualifier appended.
func NormalizeQuery(raw string) string {
	if raw == "" {
		return DefaultQuery
	}

	return raw + " " + QueryQualifier
}

// InvokerConfig holds configuration for the HTTP invoker.
type InvokerConfig struct {
	// BaseURL is the gateway base, e.g. "https://api.ivoirehub.ci" or a
	// local hubsyncd address.
	BaseURL string

	// FunctionName overrides DefaultFunctionName when set.
	FunctionName string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Client is the HTTP client to use. Defaults to a client with
	// defaultInvokeTimeout.
	Client *http.Client
}

// HTTPInvoker invokes the news edge function over HTTP. It is the concrete
// gateway used both against the hosted backend and against a local
// hubsyncd instance.
type HTTPInvoker struct {
	cfg    InvokerConfig
	client *http.Client
	log    *slog.Logger
}

// NewHTTPInvoker creates an invoker for the given gateway.
func NewHTTPInvoker(cfg InvokerConfig, log *slog.Logger) *HTTPInvoker {
	if log == nil {
		log = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultInvokeTimeout}
	}
	if cfg.FunctionName == "" {
		cfg.FunctionName = DefaultFunctionName
	}

	return &HTTPInvoker{
		cfg:    cfg,
		client: client,
		log:    log.With("component", "news-invoker"),
	}
}

// invokeRequest is the JSON body sent to the edge function.
type invokeRequest struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
}

// invokeResponse is the JSON body returned by the edge function. Exactly
// one of Articles or Error is populated.
type invokeResponse struct {
	Articles []Article `json:"articles"`
	Error    string    `json:"error,omitempty"`
	Code     string    `json:"code,omitempty"`
}

// FetchNews implements Invoker.
func (h *HTTPInvoker) FetchNews(ctx context.Context, query string,
	category fn.Option[string]) ([]Article, error) {

	reqBody := invokeRequest{
		Query:    query,
		Category: category.UnwrapOr(""),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf(
		"%s/functions/v1/%s", h.cfg.BaseURL, h.cfg.FunctionName,
	)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("function invocation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded invokeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The aggregator reports application-level failures in-band.
	if decoded.Error != "" {
		if decoded.Code == rateLimitErrorCode {
			return nil, fmt.Errorf(
				"%w: %s", ErrRateLimited, decoded.Error,
			)
		}

		return nil, fmt.Errorf(
			"fetch-news returned error: %s", decoded.Error,
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"fetch-news returned status %d", resp.StatusCode,
		)
	}

	h.log.Debug("Fetched news articles",
		"query", query, "count", len(decoded.Articles))

	return decoded.Articles, nil
}

// Ensure HTTPInvoker implements Invoker at compile time.
var _ Invoker = (*HTTPInvoker)(nil)
