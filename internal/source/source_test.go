package source_test

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"eventcoder/internal/source"
)

var defaultColumns = source.Columns{ID: "NewsID", Content: "Content", Source: "Source", Date: "Date", Title: "Title"}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestReadAllStripsBOMAndTrimsHeaders(t *testing.T) {
	path := writeFile(t, "\ufeffNewsID,Source,Date ,Title,Content\n"+
		"1,Hurriyet,2010-06-01,Flotilla,\"Ankara recalls ambassador, \"\"sharply\"\"\"\n"+
		" 2 ,Dunya,2010-06-02,Trade,  Exports rise  \n")

	rows, err := source.ReadAll(path, defaultColumns)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.ID != "1" || first.Source != "Hurriyet" || first.Date != "2010-06-01" || first.Title != "Flotilla" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Content != `Ankara recalls ambassador, "sharply"` {
		t.Fatalf("unexpected content %q", first.Content)
	}
	if rows[1].ID != "2" || rows[1].Content != "Exports rise" {
		t.Fatalf("expected trimmed id/content, got %+v", rows[1])
	}
	if rows[1].Get("Date") != "2010-06-02" {
		t.Fatalf("expected trimmed header lookup, got %q", rows[1].Get("Date"))
	}
	if rows[1].Line != 3 {
		t.Fatalf("unexpected line %d", rows[1].Line)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := source.Open(filepath.Join(t.TempDir(), "absent.csv"), defaultColumns)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestOpenMissingRequiredColumn(t *testing.T) {
	path := writeFile(t, "NewsID,Title\n1,x\n")
	_, err := source.Open(path, defaultColumns)
	var missing *source.MissingColumnError
	if !errors.As(err, &missing) || missing.Column != "Content" {
		t.Fatalf("expected missing Content column, got %v", err)
	}
}

func TestOptionalColumnsMayBeAbsent(t *testing.T) {
	path := writeFile(t, "NewsID,Content\n1,text\n2\n")
	reader, err := source.Open(path, defaultColumns)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	row, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.Source != "" || row.Date != "" || row.Title != "" {
		t.Fatalf("expected empty optional fields, got %+v", row)
	}
	short, err := reader.Next()
	if err != nil {
		t.Fatalf("Next short row: %v", err)
	}
	if short.ID != "2" || short.Content != "" {
		t.Fatalf("unexpected short row %+v", short)
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	path := writeFile(t, "")
	if _, err := source.Open(path, defaultColumns); err == nil {
		t.Fatal("expected error for empty file")
	}
}
