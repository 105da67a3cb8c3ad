// Package report grades a finished practice session.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTranscript is returned when there is nothing to grade.
var ErrEmptyTranscript = errors.New("report: empty transcript")

// Category is one graded dimension of the learner's speech.
type Category struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Report is the post-session feedback. Scores run 1 to 10.
type Report struct {
	Fluency    Category `json:"fluency"`
	Vocabulary Category `json:"vocabulary"`
	Grammar    Category `json:"grammar"`
	Overall    string   `json:"overall"`
}

// Grader produces a Report from a role-tagged transcript.
type Grader interface {
	Grade(ctx context.Context, transcript string) (*Report, error)
}

// decodeReport parses the model's reply, tolerating a markdown code fence
// around the JSON body.
func decodeReport(reply string) (*Report, error) {
	body := strings.TrimSpace(reply)
	if after, ok := strings.CutPrefix(body, "```json"); ok {
		body = after
	} else if after, ok := strings.CutPrefix(body, "```"); ok {
		body = after
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")

	var r Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
