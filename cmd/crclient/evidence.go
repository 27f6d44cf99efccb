// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"os"

	"github.com/veraison/crclient/session"
)

// fileEvidenceBuilder supplies pre-computed evidence read from a file, or
// canned demo evidence bound to the session nonce
type fileEvidenceBuilder struct {
	path      string
	mediaType string
	demo      bool
}

var _ session.EvidenceBuilder = (*fileEvidenceBuilder)(nil)

func (o fileEvidenceBuilder) BuildEvidence(nonce []byte, accept []string) ([]byte, string, error) {
	mt := o.mediaType
	if mt == "" {
		if len(accept) == 0 {
			return nil, "", errors.New("no media type set and none advertised by the server")
		}
		mt = accept[0]
	}

	if o.path == "" {
		if !o.demo {
			return nil, "", errors.New("no evidence file supplied")
		}
		return append([]byte("demo evidence "), nonce...), mt, nil
	}

	data, err := os.ReadFile(o.path)
	if err != nil {
		return nil, "", err
	}

	return data, mt, nil
}
