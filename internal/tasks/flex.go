package tasks

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexString accepts any JSON scalar and keeps its text form. Models emit
// codes and scores as numbers or strings interchangeably.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		*f = flexString(data)
	}
	return nil
}

func (f flexString) String() string { return string(f) }

// flexBool accepts true/false, "true"/"yes"/"1", and numbers.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var text flexString
	if err := text.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(text.String()) {
	case "true", "yes", "y", "1", "relevant":
		*f = true
	default:
		if n, err := strconv.ParseFloat(text.String(), 64); err == nil && n != 0 {
			*f = true
			return nil
		}
		*f = false
	}
	return nil
}

// parseOrder reads an event_order value; missing or unparsable values count
// as 1.
func parseOrder(value flexString) int {
	text := strings.TrimSpace(value.String())
	if text == "" {
		return 1
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 1
}

// parseScore reads a sentiment score clamped to [-1, 1]; unparsable values
// read as 0.
func parseScore(value flexString) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return math.Max(-1, math.Min(1, f))
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// marshalTopics renders topics as a compact JSON array with <, > and &
// left literal.
func marshalTopics(topics []string) string {
	if topics == nil {
		topics = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(topics); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}

func cleanTopics(values []flexString) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
