package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivoirehub/hubsync/internal/news"
)

var (
	newsCategory string
	newsFresh    bool
	newsTimeout  time.Duration
)

var newsCmd = &cobra.Command{
	Use:   "news [query...]",
	Short: "Query the news aggregation function",
	Long: `Fetch aggregated news through the gateway. Without arguments the
portal's default landing query is used; otherwise the arguments form the
search query.`,
	RunE: runNews,
}

func init() {
	newsCmd.Flags().StringVarP(&newsCategory, "category", "c",
		news.CategoryAll, "Category filter")
	newsCmd.Flags().BoolVar(&newsFresh, "fresh", false,
		"Bypass the freshness window and force a live fetch")
	newsCmd.Flags().DurationVar(&newsTimeout, "timeout", 30*time.Second,
		"How long to wait for the fetch to settle")
}

func runNews(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	updates := make(chan news.Snapshot, 1)
	controller := news.NewController(news.ControllerConfig{
		Invoker: news.NewHTTPInvoker(news.InvokerConfig{
			BaseURL: gatewayAddr,
		}, nil),
		OnUpdate: func(snap news.Snapshot) {
			select {
			case updates <- snap:
			default:
			}
		},
	})
	defer controller.Close()

	controller.SetQuery(query, newsCategory)
	if newsFresh {
		controller.Refetch()
	}

	var snap news.Snapshot
	select {
	case snap = <-updates:
	case <-time.After(newsTimeout):
		return errors.New("timed out waiting for news fetch")
	}

	if snap.Err != nil {
		if errors.Is(snap.Err, news.ErrRateLimited) {
			return fmt.Errorf(
				"news request budget exhausted, retry later: %w",
				snap.Err,
			)
		}
		return snap.Err
	}

	if outputFormat == "json" {
		return outputJSON(snap.Articles)
	}

	if len(snap.Articles) == 0 {
		fmt.Println("No articles matched.")
		return nil
	}

	fmt.Printf("%d articles (updated %s):\n\n", len(snap.Articles),
		snap.LastUpdated.Local().Format("15:04:05"))
	for _, article := range snap.Articles {
		fmt.Printf("%s  [%s] %s\n    %s\n    %s (%s)\n\n",
			article.PublishedAt.Local().Format("2006-01-02"),
			article.Category, article.Title, article.Summary,
			article.URL, article.Source)
	}

	return nil
}
