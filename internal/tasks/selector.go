package tasks

import "fmt"

// Selection identifies result rows flagged as relevant.
type Selection struct {
	Column string
	Value  string
}

// Stages accepted by RelevantSelection for the filter task.
const (
	StageKeyword = "keyword"
	StageFinal   = "final"
)

// RelevantSelection returns the result column and value marking a relevant
// row for task. Only relevance and filter produce verdicts.
func RelevantSelection(task, stage string) (Selection, error) {
	switch task {
	case NameRelevance:
		return Selection{Column: "Is_Relevant", Value: "True"}, nil
	case NameFilter:
		switch stage {
		case StageKeyword:
			return Selection{Column: "keyword_pass", Value: "yes"}, nil
		case "", StageFinal:
			return Selection{Column: "llm_pass", Value: "yes"}, nil
		default:
			return Selection{}, fmt.Errorf("unknown filter stage %q (expected keyword or final)", stage)
		}
	default:
		return Selection{}, fmt.Errorf("task %q does not produce relevance verdicts", task)
	}
}
