package tasks

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"eventcoder/internal/classify"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
)

const (
	cameoSummaryWords    = 120
	cameoTopicsMaxTokens = 100
)

var cameoColumns = []string{
	IDColumn, "Source", "Date", "Title", "summary",
	"event_order", "source_actor", "target_actor", "cameo_top_level", "cameo_code",
	"event_description", "evidence", "confidence",
	"document_topics", "document_topics_json",
	"status", "error",
}

// CameoOptions configures CAMEO event coding.
type CameoOptions struct {
	Language         string
	MaxChars         int
	EventsMaxTokens  int
	SummaryMaxTokens int
	Topics           bool
}

// Cameo extracts CAMEO-coded political events, a summary, and optional
// document topics. It writes one record per event.
type Cameo struct {
	classifier Classifier
	opts       CameoOptions
}

// Event is one coded event as returned by the model.
type Event struct {
	Order            flexString `json:"event_order"`
	SourceActor      flexString `json:"source_actor"`
	TargetActor      flexString `json:"target_actor"`
	TopLevel         flexString `json:"cameo_top_level"`
	Code             flexString `json:"cameo_code"`
	EventDescription flexString `json:"event_description"`
	Evidence         flexString `json:"evidence"`
	Confidence       flexString `json:"confidence"`
}

type eventsPayload struct {
	Events []Event `json:"events"`
}

type topicsPayload struct {
	Topics []flexString `json:"topics"`
}

// NewCameo constructs the cameo task.
func NewCameo(classifier Classifier, opts CameoOptions) *Cameo {
	return &Cameo{classifier: classifier, opts: opts}
}

func (c *Cameo) Name() string { return NameCameo }

func (c *Cameo) Columns() []string { return append([]string(nil), cameoColumns...) }

func (c *Cameo) Process(ctx context.Context, row source.Row) Outcome {
	var payload eventsPayload
	events := c.classifier.ClassifyJSON(ctx, classify.Call{
		Name:        "events",
		RowID:       row.ID,
		System:      cameoEventsPrompt(c.opts.Language),
		Primer:      jsonPrimer,
		Content:     row.Content,
		MaxChars:    c.opts.MaxChars,
		Temperature: 0,
		MaxTokens:   c.opts.EventsMaxTokens,
	}, &payload)

	summary := c.classifier.Classify(ctx, classify.Call{
		Name:        "summary",
		RowID:       row.ID,
		System:      summaryPrompt(c.opts.Language, cameoSummaryWords),
		Content:     row.Content,
		MaxChars:    c.opts.MaxChars,
		Temperature: 0.3,
		MaxTokens:   c.opts.SummaryMaxTokens,
	})

	var (
		errs        callErrors
		summaryText string
		topicsText  string
		topicsJSON  string
	)
	if summary.OK() {
		summaryText = summary.Raw
	}
	errs.add(summary)

	if c.opts.Topics {
		var tp topicsPayload
		res := c.classifier.ClassifyJSON(ctx, classify.Call{
			Name:        "topics",
			RowID:       row.ID,
			System:      topicsPrompt(c.opts.Language),
			Primer:      topicsPrimer,
			Content:     row.Content,
			MaxChars:    c.opts.MaxChars,
			Temperature: 0,
			MaxTokens:   cameoTopicsMaxTokens,
		}, &tp)
		if res.OK() {
			topics := cleanTopics(tp.Topics)
			topicsText = strings.Join(topics, ", ")
			topicsJSON = marshalTopics(topics)
		}
		errs.add(res)
	}

	base := func() sink.Record {
		return sink.Record{row.ID, row.Source, row.Date, row.Title, summaryText,
			"", "", "", "", "", "", "", "",
			topicsText, topicsJSON, "", ""}
	}
	finish := func(records []sink.Record, status Status, errText string) Outcome {
		for _, rec := range records {
			rec[15] = string(status)
			rec[16] = errText
		}
		return Outcome{Records: records, Status: status, Err: errText}
	}

	if !events.OK() {
		errText := "events: " + events.ErrorText()
		if len(errs) > 0 {
			errText += "; " + errs.String()
		}
		return finish([]sink.Record{base()}, StatusFailed, errText)
	}

	ordered := SortEvents(payload.Events)
	if len(ordered) == 0 {
		return finish([]sink.Record{base()}, StatusNoDetections, errs.String())
	}

	records := make([]sink.Record, 0, len(ordered))
	for _, ev := range ordered {
		rec := base()
		rec[5] = strconv.Itoa(parseOrder(ev.Order))
		rec[6] = ev.SourceActor.String()
		rec[7] = ev.TargetActor.String()
		rec[8] = ev.TopLevel.String()
		rec[9] = ev.Code.String()
		rec[10] = ev.EventDescription.String()
		rec[11] = ev.Evidence.String()
		rec[12] = ev.Confidence.String()
		records = append(records, rec)
	}
	return finish(records, StatusOK, errs.String())
}

// SortEvents returns events stable-sorted by event_order. Events without a
// usable order sort as order 1; ties keep the model's order.
func SortEvents(events []Event) []Event {
	out := append([]Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return parseOrder(out[i].Order) < parseOrder(out[j].Order)
	})
	return out
}
