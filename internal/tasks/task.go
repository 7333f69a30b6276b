package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"eventcoder/internal/classify"
	"eventcoder/internal/config"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
)

// IDColumn is the identifier column shared by every output table.
const IDColumn = "NewsID"

// Status classifies the outcome of one row.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoDetections Status = "no_detections"
	StatusFailed       Status = "failed"
)

// Task names.
const (
	NameCameo     = "cameo"
	NameRelevance = "relevance"
	NameSentiment = "sentiment"
	NameFilter    = "filter"
)

// Classifier is the subset of classify.Classifier used by tasks.
type Classifier interface {
	Classify(ctx context.Context, call classify.Call) classify.Result
	ClassifyJSON(ctx context.Context, call classify.Call, target any) classify.Result
}

// Outcome is what one row contributes to the output table. Records always
// holds at least one record; a row without detections yields a single blank
// record so its identifier joins the resume set.
type Outcome struct {
	Records []sink.Record
	Status  Status
	Err     string
}

// Task turns one input row into output records.
type Task interface {
	Name() string
	Columns() []string
	Process(ctx context.Context, row source.Row) Outcome
}

// Names lists the available tasks in display order.
func Names() []string {
	return []string{NameCameo, NameRelevance, NameSentiment, NameFilter}
}

// New builds the named task from configuration.
func New(name string, cfg *config.Config, classifier Classifier) (Task, error) {
	if cfg == nil {
		return nil, fmt.Errorf("task %s: configuration required", name)
	}
	if classifier == nil {
		return nil, fmt.Errorf("task %s: classifier required", name)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameCameo:
		return NewCameo(classifier, CameoOptions{
			Language:         cfg.Output.Language,
			MaxChars:         cfg.Cameo.MaxChars,
			EventsMaxTokens:  cfg.Cameo.EventsMaxTokens,
			SummaryMaxTokens: cfg.Cameo.SummaryMaxTokens,
			Topics:           cfg.Cameo.Topics,
		}), nil
	case NameRelevance:
		return NewRelevance(classifier, RelevanceOptions{
			Variant:  Variant(cfg.Relevance.Variant),
			MaxChars: cfg.Relevance.MaxChars,
			CountryA: cfg.Relevance.CountryA,
			CountryB: cfg.Relevance.CountryB,
		})
	case NameSentiment:
		return NewSentiment(classifier, SentimentOptions{
			Target:           cfg.Sentiment.Target,
			Language:         cfg.Output.Language,
			MaxChars:         cfg.Sentiment.MaxChars,
			MaxTokens:        cfg.Sentiment.MaxTokens,
			SummaryMaxTokens: cfg.Sentiment.SummaryMaxTokens,
		}), nil
	case NameFilter:
		return NewFilter(classifier, FilterOptions{
			Keywords: KeywordFilter{
				SideA:     cfg.Filter.KeywordsA,
				SideB:     cfg.Filter.KeywordsB,
				Political: cfg.Filter.PoliticalTerms,
			},
			CountryA: cfg.Relevance.CountryA,
			CountryB: cfg.Relevance.CountryB,
			MaxChars: cfg.Filter.MaxChars,
		}), nil
	default:
		known := Names()
		sort.Strings(known)
		return nil, fmt.Errorf("unknown task %q (expected one of %s)", name, strings.Join(known, ", "))
	}
}

// LanguageClause returns the instruction appended to prompts that produce
// free text.
func LanguageClause(language string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(language)), "turk") {
		return "Respond in Turkish."
	}
	return "Respond in English."
}

// callErrors collects secondary call failures as "call: reason" entries.
type callErrors []string

func (e *callErrors) add(result classify.Result) {
	if result.OK() {
		return
	}
	*e = append(*e, result.Call+": "+result.ErrorText())
}

func (e callErrors) String() string {
	return strings.Join(e, "; ")
}
