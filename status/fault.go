// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors used by Transport implementations (and anything else
// sitting below the session layer) to classify a failure. Errors from lower
// layers match them either by wrapping or through an Is method.
var (
	ErrConfig         = errors.New("bad configuration")
	ErrAPI            = errors.New("API failure")
	ErrCallback       = errors.New("user callback failed")
	ErrNotImplemented = errors.New("not implemented")
)

// Fault is the error returned by every fallible session operation. It always
// carries a non-Ok Code and a diagnostic message.
type Fault struct {
	Code       Code
	Diagnostic string
	Err        error
}

// NewFault creates a Fault with the supplied code and a diagnostic built from
// the format string
func NewFault(code Code, format string, a ...interface{}) *Fault {
	return &Fault{
		Code:       nonOk(code),
		Diagnostic: fmt.Sprintf(format, a...),
	}
}

// Wrap creates a Fault for err. The code is taken from Normalize(err) and the
// diagnostic is prefixed with msg. Wrapping a nil error yields nil.
func Wrap(err error, msg string) *Fault {
	if err == nil {
		return nil
	}

	diag := err.Error()
	if msg != "" {
		diag = msg + ": " + diag
	}

	return &Fault{
		Code:       nonOk(Normalize(err)),
		Diagnostic: diag,
		Err:        err,
	}
}

// WrapAs is like Wrap but forces the code
func WrapAs(code Code, err error, msg string) *Fault {
	f := Wrap(err, msg)
	if f == nil {
		return nil
	}
	f.Code = nonOk(code)
	return f
}

func (o *Fault) Error() string {
	if o.Diagnostic == "" {
		return o.Code.String()
	}
	return fmt.Sprintf("%s: %s", o.Code, o.Diagnostic)
}

func (o *Fault) Unwrap() error {
	return o.Err
}

// Is makes errors.Is(fault, ErrXXX) work on the fault's code even when the
// underlying error chain does not contain the sentinel
func (o *Fault) Is(target error) bool {
	if s, ok := sentinels[o.Code]; ok {
		return s == target
	}
	return false
}

var sentinels = map[Code]error{
	ConfigError:         ErrConfig,
	ApiError:            ErrAPI,
	CallbackError:       ErrCallback,
	NotImplementedError: ErrNotImplemented,
}

// Normalize maps any error into exactly one Code. A nil error is Ok; anything
// that cannot be classified is UnmappedError, never Ok.
func Normalize(err error) Code {
	if err == nil {
		return Ok
	}

	var f *Fault
	if errors.As(err, &f) {
		return nonOk(f.Code)
	}

	switch {
	case errors.Is(err, ErrConfig):
		return ConfigError
	case errors.Is(err, ErrCallback):
		return CallbackError
	case errors.Is(err, ErrNotImplemented):
		return NotImplementedError
	case errors.Is(err, ErrAPI):
		return ApiError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ApiError
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ApiError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ApiError
	}

	return UnmappedError
}

// nonOk guarantees a failure is never reported as Ok
func nonOk(c Code) Code {
	if c == Ok || !c.Valid() {
		return UnmappedError
	}
	return c
}
