package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// Classifier turns an image on disk into a classification. The worker
// process is one implementation; an in-process model could be another.
type Classifier interface {
	Classify(ctx context.Context, imagePath, modelDir string) (*ClassificationResult, error)
}

type ClassificationResult struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	ClassID     int     `json:"classId"`
}

type rawResult struct {
	Label       *string  `json:"label"`
	Probability *float64 `json:"probability"`
	ClassID     *int     `json:"classId"`
}

// ParseResult decodes a single JSON document carrying label, probability and
// classId. All three fields are required.
func ParseResult(output string) (*ClassificationResult, error) {
	trimmed := bytes.TrimSpace([]byte(output))
	if len(trimmed) == 0 {
		return nil, &ParseError{Output: output, Err: errors.New("empty output")}
	}

	var raw rawResult
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ParseError{Output: output, Err: err}
	}

	switch {
	case raw.Label == nil:
		return nil, &ParseError{Output: output, Err: errors.New("missing label")}
	case raw.Probability == nil:
		return nil, &ParseError{Output: output, Err: errors.New("missing probability")}
	case raw.ClassID == nil:
		return nil, &ParseError{Output: output, Err: errors.New("missing classId")}
	}

	return &ClassificationResult{
		Label:       *raw.Label,
		Probability: *raw.Probability,
		ClassID:     *raw.ClassID,
	}, nil
}
