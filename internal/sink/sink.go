package sink

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrLocked is returned when another process holds the output table's lock.
var ErrLocked = errors.New("output table is locked by another run")

// Record is one output row; values follow the sink's column order.
type Record []string

// IDSet is the set of row identifiers already present in an output table.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Options customizes Open.
type Options struct {
	// IDColumn names the identifier column. Defaults to the first column.
	IDColumn string
	// NoBOM disables the UTF-8 byte order mark written when the file is created.
	NoBOM bool
}

// HeaderMismatchError reports an existing output table whose header differs
// from the columns the current task writes.
type HeaderMismatchError struct {
	Path string
	Want []string
	Got  []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("output %s: header mismatch: want [%s], found [%s]",
		e.Path, strings.Join(e.Want, ","), strings.Join(e.Got, ","))
}

// Sink appends records to a CSV table and remembers which row identifiers
// the table already holds.
type Sink struct {
	path     string
	columns  []string
	idIndex  int
	file     *os.File
	lock     *flock.Flock
	ids      IDSet
	created  bool
	repaired int64
}

// Open acquires an exclusive lock on path, creates the table with its header
// when it does not exist, and otherwise validates the header and loads the
// identifier column into the resume set. A torn final record left by an
// interrupted write is cut off before appending resumes, and a table torn
// inside its header is created afresh.
func Open(path string, columns []string, opts Options) (*Sink, error) {
	if len(columns) == 0 {
		return nil, errors.New("sink: no columns")
	}
	idColumn := opts.IDColumn
	if idColumn == "" {
		idColumn = columns[0]
	}
	idIndex := slices.Index(columns, idColumn)
	if idIndex < 0 {
		return nil, fmt.Errorf("sink: id column %q not in columns", idColumn)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	s := &Sink{
		path:    path,
		columns: append([]string(nil), columns...),
		idIndex: idIndex,
		lock:    lock,
		ids:     make(IDSet),
	}
	if err := s.open(opts); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Sink) open(opts Options) error {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0):
		return s.create(opts)
	case err != nil:
		return fmt.Errorf("stat output: %w", err)
	}

	cut, empty, err := repairTail(s.path)
	if err != nil {
		return err
	}
	s.repaired = cut
	if empty {
		return s.create(opts)
	}

	header, ids, err := readTable(s.path, s.idIndex)
	if err != nil {
		return err
	}
	if !slices.Equal(header, s.columns) {
		return &HeaderMismatchError{Path: s.path, Want: s.columns, Got: header}
	}
	s.ids = ids

	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	s.file = file
	return nil
}

func (s *Sink) create(opts Options) error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	var buf bytes.Buffer
	if !opts.NoBOM {
		buf.Write(bom)
	}
	if err := encode(&buf, []Record{s.columns}); err != nil {
		file.Close()
		return err
	}
	if err := writeSynced(file, buf.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("write output header: %w", err)
	}
	s.file = file
	s.created = true
	return nil
}

// Path returns the output table path.
func (s *Sink) Path() string { return s.path }

// Columns returns the header written to the table.
func (s *Sink) Columns() []string { return append([]string(nil), s.columns...) }

// Created reports whether Open created the table.
func (s *Sink) Created() bool { return s.created }

// Repaired returns the number of bytes cut from a torn final record on open.
func (s *Sink) Repaired() int64 { return s.repaired }

// Processed reports whether id already has records in the table.
func (s *Sink) Processed(id string) bool {
	return s.ids.Has(id)
}

// Len returns the size of the resume set.
func (s *Sink) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the resume set.
func (s *Sink) IDs() IDSet {
	out := make(IDSet, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Append writes every record for one row in a single write, flushes it to
// stable storage, and only then adds id to the resume set. Every record must
// carry id in the identifier column.
func (s *Sink) Append(id string, records ...Record) error {
	if s.file == nil {
		return errors.New("sink: closed")
	}
	if len(records) == 0 {
		return fmt.Errorf("sink: row %q has no records", id)
	}
	for i, record := range records {
		if len(record) != len(s.columns) {
			return fmt.Errorf("sink: row %q record %d has %d values, want %d", id, i, len(record), len(s.columns))
		}
		if record[s.idIndex] != id {
			return fmt.Errorf("sink: row %q record %d carries id %q", id, i, record[s.idIndex])
		}
	}

	var buf bytes.Buffer
	if err := encode(&buf, records); err != nil {
		return err
	}
	if err := writeSynced(s.file, buf.Bytes()); err != nil {
		return fmt.Errorf("append output: %w", err)
	}
	s.ids[id] = struct{}{}
	return nil
}

// Close closes the table and releases the lock.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	return errors.Join(errs...)
}

// LoadIDs reads the identifier column of an existing table without locking
// it. A missing file yields an empty set.
func LoadIDs(path, idColumn string) (IDSet, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return IDSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer file.Close()

	reader := newCSVReader(file)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return IDSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output header: %w", err)
	}
	idIndex := slices.Index(trimAll(header), idColumn)
	if idIndex < 0 {
		return nil, fmt.Errorf("output %s: missing column %q", path, idColumn)
	}
	return collectIDs(reader, path, idIndex)
}

func readTable(path string, idIndex int) ([]string, IDSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	defer file.Close()

	reader := newCSVReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read output header: %w", err)
	}
	ids, err := collectIDs(reader, path, idIndex)
	if err != nil {
		return nil, nil, err
	}
	return trimAll(header), ids, nil
}

func collectIDs(reader *csv.Reader, path string, idIndex int) (IDSet, error) {
	ids := make(IDSet)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read output %s: %w", path, err)
		}
		if idIndex < len(record) {
			if id := strings.TrimSpace(record[idIndex]); id != "" {
				ids[id] = struct{}{}
			}
		}
	}
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func encode(buf *bytes.Buffer, records []Record) error {
	writer := csv.NewWriter(buf)
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeSynced(file *os.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Sync()
}

// repairTail truncates path after its last complete record so a record cut
// short by a crash is not mistaken for a complete row. A newline ends a record
// only outside a quoted field. It returns the number of bytes cut and whether
// nothing beyond a byte order mark remains.
func repairTail(path string) (int64, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("read output: %w", err)
	}
	keep := completeLength(data)
	if keep < len(data) {
		if err := os.Truncate(path, int64(keep)); err != nil {
			return 0, false, fmt.Errorf("repair output: %w", err)
		}
	}
	empty := len(bytes.TrimPrefix(data[:keep], bom)) == 0
	return int64(len(data) - keep), empty, nil
}

// completeLength returns the length of the prefix of data holding whole CSV
// records. Escaped quotes are doubled, so quote parity tracks whether the
// scan is inside a quoted field.
func completeLength(data []byte) int {
	keep := 0
	quoted := false
	for i, c := range data {
		switch c {
		case '"':
			quoted = !quoted
		case '\n':
			if !quoted {
				keep = i + 1
			}
		}
	}
	return keep
}
