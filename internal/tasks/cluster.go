package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"eventcoder/internal/classify"
	"eventcoder/internal/source"
)

// NoTopicsReport is the report written when no usable topics exist.
const NoTopicsReport = "No topics available."

const topicsJSONColumn = "document_topics_json"

// ClusterOptions configures topic clustering.
type ClusterOptions struct {
	Language  string
	MaxTokens int
}

// CollectTopics reads per-document topics from a cameo output table. Each
// document contributes its topics once, however many event rows it has.
// Topics starting with "Error" are dropped.
func CollectTopics(path string) ([]string, error) {
	reader, err := source.Open(path, source.Columns{ID: IDColumn, Content: topicsJSONColumn})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	seen := make(map[string]struct{})
	var topics []string
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		if row.Content == "" {
			continue
		}
		var doc []string
		if err := json.Unmarshal([]byte(row.Content), &doc); err != nil {
			continue
		}
		for _, topic := range doc {
			topic = strings.TrimSpace(topic)
			if topic == "" || strings.HasPrefix(topic, "Error") {
				continue
			}
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

// Cluster groups topics into themes and returns the model's report. With no
// topics it returns NoTopicsReport without calling the model.
func Cluster(ctx context.Context, classifier Classifier, topics []string, opts ClusterOptions) (string, error) {
	if len(topics) == 0 {
		return NoTopicsReport, nil
	}
	res := classifier.Classify(ctx, classify.Call{
		Name:        "cluster",
		System:      clusterSystemPrompt,
		Content:     clusterPrompt(topics, opts.Language),
		Temperature: 0.3,
		MaxTokens:   opts.MaxTokens,
	})
	if !res.OK() {
		return "", fmt.Errorf("cluster topics: %w", res.Err)
	}
	return res.Raw, nil
}
