// Package tasks runs units of work through the pool under a deadline and
// normalizes every outcome into a Result envelope.
package tasks

import (
	"context"
	stderrors "errors"
	"time"

	"subagents/internal/errors"
)

// Status is the terminal state of one task run.
type Status string

const (
	StatusOK       Status = "ok"
	StatusTimeout  Status = "timeout"
	StatusCanceled Status = "canceled"
	StatusError    Status = "error"
)

// Task is consumed exactly once by Runtime.Run.
type Task struct {
	Role string
	// Deadline overrides the runtime default when positive.
	Deadline time.Duration
	Run      func(ctx context.Context) (any, error)
}

// ErrorInfo is the serializable failure description.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Timing spans submission to settlement.
type Timing struct {
	// StartedAt is Unix milliseconds.
	StartedAt int64 `json:"startedAt"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// Result is created once per run and never mutated afterwards.
// Exactly one of Value and Error is set.
type Result struct {
	Status Status     `json:"status"`
	Value  any        `json:"value,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
	Timing Timing     `json:"timing"`
}

// OK reports whether the task succeeded.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusOK
}

func newResult(status Status, started time.Time) *Result {
	return &Result{
		Status: status,
		Timing: Timing{
			StartedAt: started.UnixMilli(),
			ElapsedMs: time.Since(started).Milliseconds(),
		},
	}
}

func okResult(v any, started time.Time) *Result {
	r := newResult(StatusOK, started)
	r.Value = v
	return r
}

func failedResult(status Status, err error, started time.Time) *Result {
	r := newResult(status, started)
	r.Error = describe(err)
	return r
}

func describe(err error) *ErrorInfo {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return &ErrorInfo{Name: e.Name(), Message: e.Message}
	}
	if err == nil {
		return &ErrorInfo{Name: "Error", Message: "unknown error"}
	}
	return &ErrorInfo{Name: "Error", Message: err.Error()}
}
