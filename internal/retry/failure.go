// ABOUTME: Closed failure taxonomy produced by external-collaborator adapters
// ABOUTME: Classifies errors as transient, rate-limited or permanent for the retry layer
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Class tags a failure with how the retry layer should treat it.
type Class int

const (
	// Permanent failures are not expected to succeed on retry.
	Permanent Class = iota
	// Transient failures (timeouts, resets, DNS, 5xx) are likely to succeed on retry.
	Transient
	// RateLimited failures require waiting a server-specified or implied cooldown.
	RateLimited
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case RateLimited:
		return "rate_limited"
	default:
		return "permanent"
	}
}

// Failure is an error tagged with its Class at the adapter boundary.
type Failure struct {
	Class Class
	// Status is the HTTP status code when the failure came from a response.
	Status int
	// RetryAfter is the server-requested wait. Zero means unspecified.
	RetryAfter time.Duration
	Err        error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Class.String() + " failure"
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// NewTransient tags err as transient.
func NewTransient(err error) error {
	return &Failure{Class: Transient, Err: err}
}

// NewRateLimited tags err as rate limited with an optional server delay.
func NewRateLimited(err error, retryAfter time.Duration) error {
	return &Failure{Class: RateLimited, Status: http.StatusTooManyRequests, RetryAfter: retryAfter, Err: err}
}

// NewPermanent tags err as permanent.
func NewPermanent(err error) error {
	return &Failure{Class: Permanent, Err: err}
}

// FromStatus tags err according to an HTTP status code: 429 is rate
// limited, 408 and 5xx are transient, everything else is permanent.
func FromStatus(status int, retryAfter time.Duration, err error) error {
	f := &Failure{Class: Permanent, Status: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		f.Class = RateLimited
		f.RetryAfter = retryAfter
	case status == http.StatusRequestTimeout, status >= 500:
		f.Class = Transient
	}
	return f
}

// ClassOf returns the class of err. Tagged failures report their own
// class; untagged network errors are transient; everything else is
// permanent.
func ClassOf(err error) Class {
	if err == nil {
		return Permanent
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Class
	}
	if errors.Is(err, context.Canceled) {
		return Permanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return Transient
	}
	return Permanent
}

// RetryAfterOf returns the server-requested delay carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var f *Failure
	if errors.As(err, &f) && f.RetryAfter > 0 {
		return f.RetryAfter, true
	}
	return 0, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var f *Failure
	if errors.As(err, &f) {
		return f.Status
	}
	return 0
}
