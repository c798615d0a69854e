// Package company defines the records, outcomes, and collaborator interfaces
// shared by the extraction pipeline.
package company

import "errors"

// Record identifies one company homepage to extract. Records are immutable once
// read from the source.
type Record struct {
	ID  int64
	URL string
}

// errExtractionFailed stands in when a failure is reported without a cause.
var errExtractionFailed = errors.New("extraction failed")

// Outcome is the result of one extraction attempt: either success with the
// sanitized page text, or failure. The failure cause is kept for logging only.
type Outcome struct {
	text string
	err  error
}

// Succeeded builds a successful Outcome carrying text.
func Succeeded(text string) Outcome {
	return Outcome{text: text}
}

// Failed builds a failed Outcome. A nil cause is replaced with a generic error.
func Failed(err error) Outcome {
	if err == nil {
		err = errExtractionFailed
	}
	return Outcome{err: err}
}

// Success reports whether the extraction completed.
func (o Outcome) Success() bool {
	return o.err == nil
}

// Text returns the extracted text; it is empty for failures.
func (o Outcome) Text() string {
	return o.text
}

// Err returns the failure cause, or nil for a success.
func (o Outcome) Err() error {
	return o.err
}

// Label returns the metrics/log label for the outcome.
func (o Outcome) Label() string {
	if o.Success() {
		return "success"
	}
	return "failure"
}

// Envelope carries one Outcome from an extractor to the aggregator.
type Envelope struct {
	ID      int64
	URL     string
	Outcome Outcome
}

// Description is the row persisted for a successful extraction.
type Description struct {
	ID   int64
	Text string
}
