// Package fetch runs single network operations under a retry policy and reports
// their outcome as an explicit tagged Result.
package fetch

import (
	"encoding/json"
	"errors"
)

// Status tags the variant held by a Result.
type Status string

// Result variants.
const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Skip reasons shared across the report.
const (
	ReasonPrivate     = "private_account"
	ReasonUnavailable = "source_unavailable"
	ReasonDepth       = "depth_not_reached"
	ReasonNoLink      = "no_external_link"
	ReasonNoPosts     = "no_posts_available"
	ReasonNoData      = "no_data"
	ReasonStatus      = "non_ok_status"
)

// Failure describes why a fetch did not produce a value.
type Failure struct {
	err      error
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.err }

// Result is a tagged variant over Success(value), Skipped(reason) and Failed(error, attempts).
// A failed Result may still carry a partial value; Partial is set when it does.
type Result[T any] struct {
	Value   T
	Failure *Failure
	Status  Status
	Reason  string
	Partial bool
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{Status: StatusSuccess, Value: v}
}

// Skipped records that no fetch was attempted for the given reason.
func Skipped[T any](reason string) Result[T] {
	return Result[T]{Status: StatusSkipped, Reason: reason}
}

// Failed records a terminal failure after the given number of attempts.
func Failed[T any](err error, attempts int) Result[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result[T]{
		Status: StatusFailed,
		Failure: &Failure{
			Kind:     KindOf(err),
			Message:  err.Error(),
			Attempts: attempts,
			err:      err,
		},
	}
}

// FailedWithPartial records a failure while keeping the data obtained before it.
func FailedWithPartial[T any](err error, attempts int, partial T) Result[T] {
	r := Failed[T](err, attempts)
	r.Value = partial
	r.Partial = true
	return r
}

// OK reports whether the Result holds a successful value.
func (r Result[T]) OK() bool { return r.Status == StatusSuccess }

// Get returns the value and whether it is a complete, successful one.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Status == StatusSuccess
}

// Usable returns the value when it is either successful or a retained partial.
func (r Result[T]) Usable() (T, bool) {
	return r.Value, r.Status == StatusSuccess || r.Partial
}

// Err returns the failure as an error, or nil.
func (r Result[T]) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

type resultJSON[T any] struct {
	Value   *T       `json:"value,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
	Status  Status   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Partial bool     `json:"partial,omitempty"`
}

// MarshalJSON emits a value only when one was actually obtained.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := resultJSON[T]{
		Status:  r.Status,
		Reason:  r.Reason,
		Failure: r.Failure,
		Partial: r.Partial,
	}
	if r.Status == StatusSuccess || r.Partial {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a Result written by MarshalJSON.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var in resultJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result[T]{
		Status:  in.Status,
		Reason:  in.Reason,
		Failure: in.Failure,
		Partial: in.Partial,
	}
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}
