package tasks

import (
	"context"

	"eventcoder/internal/classify"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
)

const noLabel = "None Detected"

var sentimentColumns = []string{
	IDColumn, "Source", "Date", "Title", "summary",
	"societal_sentiment_score", "societal_sentiment_label", "societal_acting_group",
	"societal_description", "societal_evidence",
	"status", "error",
}

// SentimentOptions configures societal sentiment scoring.
type SentimentOptions struct {
	Target           string
	Language         string
	MaxChars         int
	MaxTokens        int
	SummaryMaxTokens int
}

// Sentiment scores non-governmental sentiment towards a target country and
// writes exactly one record per row.
type Sentiment struct {
	classifier Classifier
	opts       SentimentOptions
}

type sentimentPayload struct {
	Score       flexString  `json:"sentiment_score"`
	Label       *flexString `json:"sentiment_label"`
	ActingGroup flexString  `json:"acting_group"`
	Description flexString  `json:"description"`
	Evidence    flexString  `json:"evidence"`
}

// NewSentiment constructs the sentiment task.
func NewSentiment(classifier Classifier, opts SentimentOptions) *Sentiment {
	return &Sentiment{classifier: classifier, opts: opts}
}

func (s *Sentiment) Name() string { return NameSentiment }

func (s *Sentiment) Columns() []string { return append([]string(nil), sentimentColumns...) }

func (s *Sentiment) Process(ctx context.Context, row source.Row) Outcome {
	var payload sentimentPayload
	scored := s.classifier.ClassifyJSON(ctx, classify.Call{
		Name:        "sentiment",
		RowID:       row.ID,
		System:      sentimentPrompt(s.opts.Target, s.opts.Language),
		Content:     row.Content,
		MaxChars:    s.opts.MaxChars,
		Temperature: 0,
		MaxTokens:   s.opts.MaxTokens,
	}, &payload)

	summary := s.classifier.Classify(ctx, classify.Call{
		Name:        "summary",
		RowID:       row.ID,
		System:      sentimentSummaryPrompt(s.opts.Language),
		Content:     row.Content,
		MaxChars:    s.opts.MaxChars,
		Temperature: 0,
		MaxTokens:   s.opts.SummaryMaxTokens,
	})

	var errs callErrors
	errs.add(scored)
	errs.add(summary)

	record := sink.Record{row.ID, row.Source, row.Date, row.Title, "",
		formatScore(0), "", "", "", "", "", ""}
	if summary.OK() {
		record[4] = summary.Raw
	}

	status := StatusFailed
	if scored.OK() {
		status = StatusOK
		label := noLabel
		if payload.Label != nil && payload.Label.String() != "" {
			label = payload.Label.String()
		}
		record[5] = formatScore(parseScore(payload.Score))
		record[6] = label
		record[7] = payload.ActingGroup.String()
		record[8] = payload.Description.String()
		record[9] = payload.Evidence.String()
	}
	record[10] = string(status)
	record[11] = errs.String()
	return Outcome{Records: []sink.Record{record}, Status: status, Err: errs.String()}
}
