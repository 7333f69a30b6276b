package tasks

import (
	"context"
	"strings"

	"eventcoder/internal/classify"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
)

const filterMaxTokens = 50

var filterColumns = []string{
	IDColumn, "Date", "Title", "keyword_pass", "llm_pass", "status", "error",
}

// KeywordFilter is the cheap multilingual pre-filter. Keywords are matched
// as lowercase substrings.
type KeywordFilter struct {
	SideA     []string
	SideB     []string
	Political []string
}

// Match passes text mentioning both sides, or one side together with a
// political term.
func (k KeywordFilter) Match(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	hasA := containsAny(t, k.SideA)
	hasB := containsAny(t, k.SideB)
	if hasA && hasB {
		return true
	}
	return (hasA || hasB) && containsAny(t, k.Political)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// FilterOptions configures the two-stage filter.
type FilterOptions struct {
	Keywords KeywordFilter
	CountryA string
	CountryB string
	MaxChars int
}

// Filter runs the keyword pre-filter and, only for rows that pass it, an LLM
// relevance check.
type Filter struct {
	classifier Classifier
	opts       FilterOptions
}

type filterPayload struct {
	Relevant flexBool `json:"relevant"`
}

// NewFilter constructs the filter task.
func NewFilter(classifier Classifier, opts FilterOptions) *Filter {
	return &Filter{classifier: classifier, opts: opts}
}

func (f *Filter) Name() string { return NameFilter }

func (f *Filter) Columns() []string { return append([]string(nil), filterColumns...) }

func (f *Filter) Process(ctx context.Context, row source.Row) Outcome {
	record := sink.Record{row.ID, row.Date, row.Title, "no", "no", string(StatusNoDetections), ""}
	if !f.opts.Keywords.Match(row.Content) {
		return Outcome{Records: []sink.Record{record}, Status: StatusNoDetections}
	}
	record[3] = "yes"

	var payload filterPayload
	res := f.classifier.ClassifyJSON(ctx, classify.Call{
		Name:        "filter",
		RowID:       row.ID,
		System:      filterSystemPrompt(f.opts.CountryA, f.opts.CountryB),
		Content:     filterUserPrompt(f.opts.CountryA, f.opts.CountryB, classify.Truncate(row.Content, f.opts.MaxChars)),
		Temperature: 0,
		MaxTokens:   filterMaxTokens,
	}, &payload)

	status := StatusNoDetections
	switch {
	case !res.OK():
		status = StatusFailed
	case bool(payload.Relevant):
		record[4] = "yes"
		status = StatusOK
	}
	record[5] = string(status)
	record[6] = res.ErrorText()
	return Outcome{Records: []sink.Record{record}, Status: status, Err: res.ErrorText()}
}
