package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"eventcoder/internal/sink"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>World Desk</title>
  <link>https://news.example/</link>
  <item>
    <title>Ministers meet</title>
    <link>https://news.example/a</link>
    <guid>news-1</guid>
    <pubDate>Mon, 31 May 2010 08:00:00 GMT</pubDate>
    <description><![CDATA[<p>The <b>foreign ministers</b> met &amp; talked.</p>]]></description>
  </item>
  <item>
    <title>Trade figures</title>
    <link>https://news.example/b</link>
    <description>Exports rose.</description>
  </item>
</channel>
</rss>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestAppendsAndResumes(t *testing.T) {
	srv := newServer(t)
	path := filepath.Join(t.TempDir(), "articles.csv")
	ingester := New(5 * time.Second)

	out, err := sink.Open(path, Columns, sink.Options{})
	if err != nil {
		t.Fatalf("sink.Open: %v", err)
	}
	summary, err := ingester.Ingest(context.Background(), []string{srv.URL + "/broken", srv.URL + "/rss"}, out)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	_ = out.Close()
	if summary.Feeds != 2 || summary.Failed != 1 || summary.Added != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out, err = sink.Open(path, Columns, sink.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer out.Close()
	if !out.Processed("news-1") || !out.Processed("https://news.example/b") {
		t.Fatalf("ids missing: %v", out.IDs())
	}
	summary, err = ingester.Ingest(context.Background(), []string{srv.URL + "/rss"}, out)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if summary.Added != 0 || summary.Present != 2 {
		t.Fatalf("unexpected second summary %+v", summary)
	}
}

func TestRecordNormalizesItem(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(rssBody)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec := Record(feed, feed.Items[0])
	want := []string{"news-1", "World Desk", "2010-05-31", "Ministers meet", "The foreign ministers met & talked.", "https://news.example/a"}
	for i := range want {
		if rec[i] != want[i] {
			t.Fatalf("field %s = %q, want %q", Columns[i], rec[i], want[i])
		}
	}
}

func TestItemIDFallsBackToNameUUID(t *testing.T) {
	feed := &gofeed.Feed{Link: "https://news.example/"}
	a := ItemID(feed, &gofeed.Item{Title: "Untitled"})
	b := ItemID(feed, &gofeed.Item{Title: "Untitled"})
	c := ItemID(feed, &gofeed.Item{Title: "Other"})
	if a != b || a == c || len(a) != 36 {
		t.Fatalf("unexpected ids %q %q %q", a, b, c)
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("  plain\n text "); got != "plain text" {
		t.Fatalf("PlainText = %q", got)
	}
	if got := PlainText("<div>a<br/>b</div>"); !strings.Contains(got, "a") || strings.Contains(got, "<") {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestIngestStopsOnCancel(t *testing.T) {
	srv := newServer(t)
	out, err := sink.Open(filepath.Join(t.TempDir(), "a.csv"), Columns, sink.Options{})
	if err != nil {
		t.Fatalf("sink.Open: %v", err)
	}
	defer out.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(time.Second).Ingest(ctx, []string{srv.URL + "/rss"}, out); err == nil {
		t.Fatal("expected cancellation error")
	}
}
