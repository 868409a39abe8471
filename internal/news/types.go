// Package news implements the live news view of the Ivoire Hub portal: a
// freshness cache over externally aggregated articles, and a debounced
// query controller that turns free-text input into a bounded rate of
// edge-function invocations.
package news

import "time"

// Article is a single aggregated news item returned by the fetch-news
// edge function.
type Article struct {
	// ID uniquely identifies the article within the aggregator.
	ID string `json:"id"`

	// Title is the article headline.
	Title string `json:"title"`

	// Summary is a short excerpt or description.
	Summary string `json:"summary"`

	// URL links to the full article.
	URL string `json:"url"`

	// Source names the publication the article came from.
	Source string `json:"source"`

	// Category is the portal category the article was filed under.
	Category string `json:"category"`

	// PublishedAt is the publication time reported by the source.
	PublishedAt time.Time `json:"published_at"`
}

// Snapshot is the controller's externally visible state after a fetch
// settles. Consumers receive it via the OnUpdate callback and can also
// read the latest one with Controller.Snapshot.
type Snapshot struct {
	// Query and Category are the input pair this snapshot was produced
	// for.
	Query    string
	Category string

	// Articles is the most recent successfully fetched result set. It is
	// preserved across failed fetches so the view can keep showing the
	// last good data.
	Articles []Article

	// Live reports whether Articles came from a live fetch (or a cache
	// entry within the freshness window, which counts as live).
	Live bool

	// LastUpdated is the wall-clock time of the last successful fetch.
	LastUpdated time.Time

	// Err holds the failure of the most recent fetch, nil on success.
	// Rate limiting is distinguishable via errors.Is(err, ErrRateLimited).
	Err error
}
