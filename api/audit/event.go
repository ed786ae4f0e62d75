package audit

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
	StatusParseError   Status = "parse_error"
	StatusLaunchError  Status = "launch_error"
	StatusStorageError Status = "storage_error"
)

// ClassificationEvent is the outcome of one classify request. It is written
// after the response is decided and never read back into the request path.
type ClassificationEvent struct {
	ID          string    `json:"id"`
	TraceID     string    `json:"trace_id"`
	Status      Status    `json:"status"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	Label       string    `json:"label,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	ClassID     *int      `json:"class_id,omitempty"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	Details     string    `json:"details,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, event *ClassificationEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, *ClassificationEvent) error { return nil }

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, event *ClassificationEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
