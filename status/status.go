// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package status

import "fmt"

// Code is the closed set of outcomes reported by a challenge-response
// session operation.
type Code int

const (
	Ok Code = iota
	ConfigError
	ApiError
	CallbackError
	NotImplementedError
	UnmappedError
)

var codeNames = map[Code]string{
	Ok:                  "ok",
	ConfigError:         "config error",
	ApiError:            "api error",
	CallbackError:       "callback error",
	NotImplementedError: "not implemented",
	UnmappedError:       "unmapped error",
}

// String returns a human readable name for the code
func (o Code) String() string {
	if s, ok := codeNames[o]; ok {
		return s
	}

	return fmt.Sprintf("unknown status code %d", int(o))
}

// Valid returns true if the code is one of the known codes
func (o Code) Valid() bool {
	_, ok := codeNames[o]
	return ok
}

// FromCode converts a raw integer into a Code. Integers that are not part of
// the taxonomy degrade to UnmappedError.
func FromCode(v int) Code {
	c := Code(v)
	if !c.Valid() {
		return UnmappedError
	}
	return c
}

// FromHTTPStatus maps an HTTP response status code to a Code
func FromHTTPStatus(sc int) Code {
	switch {
	case sc >= 200 && sc < 300:
		return Ok
	case sc == 501:
		return NotImplementedError
	case sc >= 100 && sc < 600:
		return ApiError
	default:
		return UnmappedError
	}
}
