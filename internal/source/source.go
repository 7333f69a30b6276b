package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Columns names the input columns the pipeline reads. Only ID and Content
// are required; the descriptive columns are passed through when present.
type Columns struct {
	ID      string
	Content string
	Source  string
	Date    string
	Title   string
}

// Row is one input article. Fields holds every column of the row keyed by
// its trimmed header name.
type Row struct {
	Line    int
	ID      string
	Content string
	Source  string
	Date    string
	Title   string
	Fields  map[string]string
}

// Get returns the value of an arbitrary column, or "" when absent.
func (r Row) Get(column string) string {
	return r.Fields[column]
}

// MissingColumnError reports a required column absent from the input header.
type MissingColumnError struct {
	Path   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("input %s: missing required column %q", e.Path, e.Column)
}

// Reader streams rows from a CSV table.
type Reader struct {
	path    string
	file    *os.File
	csv     *csv.Reader
	header  []string
	index   map[string]int
	columns Columns
	line    int
}

// Open opens path and reads its header. A leading UTF-8 byte order mark is
// discarded and header names are trimmed so "Date " matches "Date".
func Open(path string, columns Columns) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	decoded := transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("input %s: empty file", path)
		}
		return nil, fmt.Errorf("input %s: read header: %w", path, err)
	}

	r := &Reader{
		path:    path,
		file:    file,
		csv:     reader,
		header:  make([]string, len(header)),
		index:   make(map[string]int, len(header)),
		columns: columns,
		line:    1,
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		r.header[i] = name
		if _, dup := r.index[name]; !dup {
			r.index[name] = i
		}
	}

	for _, required := range []string{columns.ID, columns.Content} {
		if required == "" {
			continue
		}
		if _, ok := r.index[required]; !ok {
			file.Close()
			return nil, &MissingColumnError{Path: path, Column: required}
		}
	}
	return r, nil
}

// Header returns the trimmed header names.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Next returns the next row, or io.EOF once the table is exhausted.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("input %s: read row %d: %w", r.path, r.line+1, err)
	}
	r.line++

	fields := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			fields[name] = record[i]
		} else {
			fields[name] = ""
		}
	}

	return Row{
		Line:    r.line,
		ID:      strings.TrimSpace(r.value(fields, r.columns.ID)),
		Content: strings.TrimSpace(r.value(fields, r.columns.Content)),
		Source:  r.value(fields, r.columns.Source),
		Date:    r.value(fields, r.columns.Date),
		Title:   r.value(fields, r.columns.Title),
		Fields:  fields,
	}, nil
}

func (r *Reader) value(fields map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return fields[column]
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// ReadAll loads every row of path into memory.
func ReadAll(path string, columns Columns) ([]Row, error) {
	reader, err := Open(path, columns)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var rows []Row
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
