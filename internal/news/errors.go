package news

import "errors"

// ErrRateLimited is returned when the news aggregator rejects an
// invocation for exceeding its request budget. Callers treat this as a
// distinguished condition: the previously displayed (or archived) articles
// stay up and the user is told why the view is not live.
var ErrRateLimited = errors.New("news aggregator rate limited")
