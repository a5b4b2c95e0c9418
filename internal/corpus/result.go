package corpus

import (
	"time"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/sentence"
)

// Result is the outcome of ingesting one line.
type Result struct {
	RunID    string             `json:"run_id,omitempty"`
	Line     int                `json:"line"`
	Input    string             `json:"input"`
	Sentence *sentence.Sentence `json:"sentence,omitempty"`
	Cached   bool               `json:"cached,omitempty"`
	Error    *ErrorInfo         `json:"error,omitempty"`

	err error
}

// Err returns the ingestion error of a rejected line.
func (r Result) Err() error {
	return r.err
}

// Rejected reports whether the line failed to ingest.
func (r Result) Rejected() bool {
	return r.Error != nil
}

// ErrorInfo describes why a line was rejected.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewErrorInfo classifies err.
func NewErrorInfo(err error) *ErrorInfo {
	return &ErrorInfo{Kind: errors.Kind(err), Message: err.Error()}
}

// Summary describes a finished run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Total    int           `json:"total"`
	Rejected int           `json:"rejected"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Accepted returns the number of lines ingested successfully.
func (s Summary) Accepted() int {
	return s.Total - s.Rejected
}
