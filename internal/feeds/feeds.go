package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"eventcoder/internal/logging"
	"eventcoder/internal/sink"
)

// Columns is the header of tables built by Ingest. The first five match the
// default input columns of the pipeline.
var Columns = []string{"NewsID", "Source", "Date", "Title", "Content", "Link"}

const dateLayout = "2006-01-02"

// Ingester fetches RSS and Atom feeds and appends their items to an input
// table.
type Ingester struct {
	client *http.Client
	logger *slog.Logger
}

// Option customizes an Ingester.
type Option func(*Ingester)

// WithHTTPClient overrides the HTTP client used to fetch feeds.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Ingester) {
		if client != nil {
			i.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New constructs an Ingester. timeout bounds each feed request.
func New(timeout time.Duration, opts ...Option) *Ingester {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	i := &Ingester{
		client: &http.Client{Timeout: timeout},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.NewComponentLogger(i.logger, "feeds")
	return i
}

// Summary reports the result of one ingestion.
type Summary struct {
	Feeds   int
	Failed  int
	Items   int
	Added   int
	Present int
}

// Ingest fetches every feed and appends items not yet in out. A feed that
// cannot be fetched or parsed is logged and skipped; Ingest fails only when
// the table cannot be written or ctx is cancelled.
func (i *Ingester) Ingest(ctx context.Context, urls []string, out *sink.Sink) (Summary, error) {
	var summary Summary
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Feeds++
		feed, err := i.fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			i.logger.Warn("feed skipped", logging.String("url", url), logging.Error(err))
			continue
		}

		added := 0
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			summary.Items++
			record := Record(feed, item)
			if out.Processed(record[0]) {
				summary.Present++
				continue
			}
			if err := out.Append(record[0], record); err != nil {
				return summary, fmt.Errorf("append feed item: %w", err)
			}
			added++
		}
		summary.Added += added
		i.logger.Info("feed ingested",
			logging.String("url", url),
			logging.String("title", feed.Title),
			logging.Int("items", len(feed.Items)),
			logging.Int("added", added),
		)
	}
	return summary, nil
}

func (i *Ingester) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "eventcoder")
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Record converts a feed item into a row following Columns.
func Record(feed *gofeed.Feed, item *gofeed.Item) sink.Record {
	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}
	date := item.Published
	if item.PublishedParsed != nil {
		date = item.PublishedParsed.UTC().Format(dateLayout)
	} else if item.UpdatedParsed != nil {
		date = item.UpdatedParsed.UTC().Format(dateLayout)
	}
	source := ""
	if feed != nil {
		source = strings.TrimSpace(feed.Title)
	}
	return sink.Record{
		ItemID(feed, item),
		source,
		date,
		strings.TrimSpace(item.Title),
		PlainText(content),
		strings.TrimSpace(item.Link),
	}
}

// ItemID returns a stable identifier: the GUID, else the link, else a
// name-based UUID of the feed link and item title.
func ItemID(feed *gofeed.Feed, item *gofeed.Item) string {
	if id := strings.TrimSpace(item.GUID); id != "" {
		return id
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	base := ""
	if feed != nil {
		base = feed.Link
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(base+"\n"+item.Title)).String()
}

// PlainText strips markup from feed HTML and collapses whitespace.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
