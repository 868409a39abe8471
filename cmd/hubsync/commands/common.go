package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ivoirehub/hubsync/internal/feed"
	"github.com/ivoirehub/hubsync/internal/notify"
)

// requireUser returns the configured identity or an error when none was
// given.
func requireUser() (string, error) {
	if userID == "" {
		return "", errors.New("no identity given, use --user")
	}

	return userID, nil
}

// newStoreClient builds the API-backed store for the configured gateway.
func newStoreClient() *feed.StoreClient {
	return feed.NewStoreClient(gatewayAddr, nil)
}

// newFeedClient builds the change-feed client for the configured gateway.
func newFeedClient() *feed.Client {
	return feed.NewClient(feed.ClientConfig{BaseURL: gatewayAddr})
}

// outputJSON pretty-prints v to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// formatNotification renders one notification for text output.
func formatNotification(n notify.Notification) string {
	marker := " "
	if !n.IsRead {
		marker = "*"
	}

	out := fmt.Sprintf("%s [%s] %s  %s\n    %s\n",
		marker, n.CreatedAt.Local().Format("2006-01-02 15:04"),
		n.Type, n.Title, n.Message)
	if n.Link != "" {
		out += fmt.Sprintf("    -> %s\n", n.Link)
	}
	out += fmt.Sprintf("    id: %s\n", n.ID)

	return out
}
