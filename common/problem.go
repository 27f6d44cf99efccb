// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/moogar0880/problems"
	"github.com/veraison/crclient/status"
)

// ProblemError is an RFC 7807 problem details object returned by the server
type ProblemError struct {
	problems.DefaultProblem
}

func (o *ProblemError) Error() string {
	return fmt.Sprintf("%d %s: %s", o.ProblemStatus(), o.ProblemTitle(), o.Detail)
}

// Is classifies the problem: a 501 matches status.ErrNotImplemented, anything
// else status.ErrAPI
func (o *ProblemError) Is(target error) bool {
	if status.FromHTTPStatus(o.ProblemStatus()) == status.NotImplementedError {
		return target == status.ErrNotImplemented
	}
	return target == status.ErrAPI
}

// CheckResponse returns nil if the response status is one of expected.
// Otherwise the body is decoded as a problem details object if the server sent
// one, or a plain error describing the status is returned.
func CheckResponse(res *http.Response, expected ...int) error {
	for _, exp := range expected {
		if res.StatusCode == exp {
			return nil
		}
	}

	if IsProblem(res) {
		var prob ProblemError

		if err := DecodeJSONBody(res, &prob.DefaultProblem); err != nil {
			return fmt.Errorf(
				"could not decode problem response (status %d): %w",
				res.StatusCode,
				err,
			)
		}

		if prob.Status == 0 {
			prob.Status = res.StatusCode
		}

		return &prob
	}

	DiscardBody(res)

	return fmt.Errorf("unexpected HTTP response code %d", res.StatusCode)
}

// IsProblem tells whether the response carries a problem details body
func IsProblem(res *http.Response) bool {
	mt, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == problems.ProblemMediaType
}
