package web

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ivoirehub/hubsync/internal/news"
)

const (
	// DefaultNewsRateLimit is the per-client invocation budget per
	// rate-limit window.
	DefaultNewsRateLimit = 30

	// newsRateWindow is the fixed rate-limit window.
	newsRateWindow = time.Minute

	// newsRateLimitCode is the error code sent alongside HTTP 429.
	newsRateLimitCode = "rate_limit"
)

// newsFunction emulates the hosted fetch-news edge function for local
// development: a seeded article corpus filtered by query and category,
// behind a fixed-window per-client rate limiter.
type newsFunction struct {
	limit int
	log   *slog.Logger

	mu      sync.Mutex
	windows map[string]*rateWindow
}

// rateWindow tracks one client's invocations in the current window.
type rateWindow struct {
	start time.Time
	count int
}

func newNewsFunction(limit int, log *slog.Logger) *newsFunction {
	if limit <= 0 {
		limit = DefaultNewsRateLimit
	}

	return &newsFunction{
		limit:   limit,
		log:     log.With("component", "news-fn"),
		windows: make(map[string]*rateWindow),
	}
}

// allow consumes one invocation from the client's budget, resetting the
// window when it has elapsed.
func (f *newsFunction) allow(client string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.windows[client]
	if w == nil || now.Sub(w.start) >= newsRateWindow {
		f.windows[client] = &rateWindow{start: now, count: 1}
		return true
	}

	if w.count >= f.limit {
		return false
	}

	w.count++
	return true
}

// newsFnRequest mirrors the invoker's request body.
type newsFnRequest struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
}

// newsFnResponse mirrors the invoker's response body.
type newsFnResponse struct {
	Articles []news.Article `json:"articles"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
}

// handleInvoke serves POST /functions/v1/fetch-news.
func (f *newsFunction) handleInvoke(w http.ResponseWriter, r *http.Request) {
	client, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		client = r.RemoteAddr
	}

	writeJSON := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	if !f.allow(client, time.Now()) {
		f.log.Warn("News invocation rate limited", "client", client)
		writeJSON(http.StatusTooManyRequests, newsFnResponse{
			Error: "news request budget exhausted, retry later",
			Code:  newsRateLimitCode,
		})
		return
	}

	var req newsFnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(http.StatusBadRequest, newsFnResponse{
			Error: "invalid JSON body",
		})
		return
	}

	articles := filterArticles(seededArticles, req.Query, req.Category)
	f.log.Debug("News invocation served", "query", req.Query,
		"category", req.Category, "count", len(articles))

	writeJSON(http.StatusOK, newsFnResponse{Articles: articles})
}

// filterArticles selects corpus articles matching the query terms and the
// category, newest first. An article matches the query when any
// whitespace-separated term appears in its title or summary.
func filterArticles(corpus []news.Article, query,
	category string) []news.Article {

	terms := strings.Fields(strings.ToLower(query))

	matched := make([]news.Article, 0, len(corpus))
	for _, article := range corpus {
		if category != "" &&
			!strings.EqualFold(article.Category, category) {

			continue
		}
		if !matchesTerms(article, terms) {
			continue
		}
		matched = append(matched, article)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})

	return matched
}

func matchesTerms(article news.Article, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	haystack := strings.ToLower(article.Title + " " + article.Summary)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}

	return false
}

// seededArticles is the local development corpus.
var seededArticles = []news.Article{
	{
		ID:          "art-001",
		Title:       "Levée de fonds record pour une fintech d'Abidjan",
		Summary:     "La startup boucle un tour de table de 5 millions de dollars pour étendre le paiement mobile en Afrique de l'Ouest.",
		URL:         "https://news.ivoirehub.ci/articles/art-001",
		Source:      "Ivoire Tech Journal",
		Category:    "financement",
		PublishedAt: time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC),
	},
	{
		ID:          "art-002",
		Title:       "Le label startup ouvre sa campagne de renouvellement",
		Summary:     "Les startups labellisées ont jusqu'à fin septembre pour déposer leur dossier de renouvellement sur le portail.",
		URL:         "https://news.ivoirehub.ci/articles/art-002",
		Source:      "Portail Ivoire Hub",
		Category:    "reglementation",
		PublishedAt: time.Date(2025, 8, 18, 14, 30, 0, 0, time.UTC),
	},
	{
		ID:          "art-003",
		Title:       "Un incubateur agritech s'installe à Yamoussoukro",
		Summary:     "Le nouvel incubateur accueillera vingt startups de l'innovation agricole dès la rentrée.",
		URL:         "https://news.ivoirehub.ci/articles/art-003",
		Source:      "AgriNews CI",
		Category:    "ecosysteme",
		PublishedAt: time.Date(2025, 8, 15, 8, 0, 0, 0, time.UTC),
	},
	{
		ID:          "art-004",
		Title:       "Forum des startups: les inscriptions sont ouvertes",
		Summary:     "Le forum annuel réunira investisseurs et startups labellisées autour de l'innovation numérique.",
		URL:         "https://news.ivoirehub.ci/articles/art-004",
		Source:      "Ivoire Tech Journal",
		Category:    "evenements",
		PublishedAt: time.Date(2025, 8, 12, 11, 0, 0, 0, time.UTC),
	},
	{
		ID:          "art-005",
		Title:       "Cinq startups ivoiriennes sélectionnées pour un programme panafricain",
		Summary:     "Le programme d'accélération couvre le financement d'amorçage et le mentorat technique.",
		URL:         "https://news.ivoirehub.ci/articles/art-005",
		Source:      "Afrique Innovation",
		Category:    "financement",
		PublishedAt: time.Date(2025, 8, 8, 16, 45, 0, 0, time.UTC),
	},
	{
		ID:          "art-006",
		Title:       "L'écosystème startup ivoirien en chiffres",
		Summary:     "Le rapport annuel recense les levées de fonds, les emplois créés et la croissance de l'écosystème.",
		URL:         "https://news.ivoirehub.ci/articles/art-006",
		Source:      "Portail Ivoire Hub",
		Category:    "ecosysteme",
		PublishedAt: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
	},
}
