package tasks

import (
	"context"
	"fmt"
	"strings"

	"eventcoder/internal/classify"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
)

// Variant selects the relevance prompt.
type Variant string

const (
	VariantSimple Variant = "simple"
	VariantCameo  Variant = "cameo"
	VariantBroad  Variant = "broad"
)

const (
	relevanceMaxTokens = 300
	snippetRunes       = 150
	simpleSnippetRunes = 100
	noReason           = "No reason provided"
)

var relevanceColumns = []string{
	IDColumn, "Date", "Title", "Is_Relevant", "Reason", "Content_Snippet", "status", "error",
}

// RelevanceOptions configures the relevance verdict.
type RelevanceOptions struct {
	Variant  Variant
	MaxChars int
	CountryA string
	CountryB string
}

// Relevance asks whether an article concerns both configured countries and
// writes exactly one verdict per row.
type Relevance struct {
	classifier Classifier
	opts       RelevanceOptions
}

type relevancePayload struct {
	IsRelevant flexBool    `json:"is_relevant"`
	Reason     *flexString `json:"reason"`
}

// NewRelevance constructs the relevance task.
func NewRelevance(classifier Classifier, opts RelevanceOptions) (*Relevance, error) {
	if opts.Variant == "" {
		opts.Variant = VariantBroad
	}
	switch opts.Variant {
	case VariantSimple, VariantCameo, VariantBroad:
	default:
		return nil, fmt.Errorf("unknown relevance variant %q", opts.Variant)
	}
	return &Relevance{classifier: classifier, opts: opts}, nil
}

func (r *Relevance) Name() string { return NameRelevance }

func (r *Relevance) Columns() []string { return append([]string(nil), relevanceColumns...) }

func (r *Relevance) Process(ctx context.Context, row source.Row) Outcome {
	system, user := r.prompt(row)
	var payload relevancePayload
	res := r.classifier.ClassifyJSON(ctx, classify.Call{
		Name:        "relevance",
		RowID:       row.ID,
		System:      system,
		Content:     user,
		Temperature: 0,
		MaxTokens:   relevanceMaxTokens,
	}, &payload)

	record := sink.Record{row.ID, row.Date, row.Title, "False", "", r.snippet(row.Content), "", ""}
	status := StatusFailed
	if res.OK() {
		reason := noReason
		if payload.Reason != nil && payload.Reason.String() != "" {
			reason = payload.Reason.String()
		}
		record[4] = reason
		status = StatusNoDetections
		if payload.IsRelevant {
			record[3] = "True"
			status = StatusOK
		}
	}
	record[6] = string(status)
	record[7] = res.ErrorText()
	return Outcome{Records: []sink.Record{record}, Status: status, Err: res.ErrorText()}
}

func (r *Relevance) prompt(row source.Row) (string, string) {
	content := classify.Truncate(row.Content, r.opts.MaxChars)
	head := fmt.Sprintf("Title: %s\nContent: %s", row.Title, content)
	a, b := r.opts.CountryA, r.opts.CountryB
	switch r.opts.Variant {
	case VariantSimple:
		return relevanceSimpleSystem(a, b), fmt.Sprintf("Title: %s\n\nContent: %s", row.Title, content)
	case VariantCameo:
		return relevanceCameoSystem(), head + "\n\n" + relevanceCameoTask(a, b)
	default:
		return relevanceBroadSystem(a, b), head + "\n\n" + relevanceBroadTask(a, b)
	}
}

func (r *Relevance) snippet(content string) string {
	limit := snippetRunes
	if r.opts.Variant == VariantSimple {
		limit = simpleSnippetRunes
	}
	return strings.TrimSpace(classify.Truncate(content, limit))
}
