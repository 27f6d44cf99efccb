// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/veraison/crclient/status"
)

// Run implements the whole challenge-response exchange in one go: it opens a
// session, invokes the EvidenceBuilder with the session nonce and accepted
// media types, submits the resulting evidence and closes the session. On
// success, the received Attestation Result is returned.
func (cfg Config) Run(
	ctx context.Context,
	baseURL string,
	nonce []byte,
	builder EvidenceBuilder,
) ([]byte, error) {
	if builder == nil {
		return nil, status.NewFault(status.ConfigError, "the evidence builder is missing")
	}

	s := cfg.New()
	defer s.Close()

	if err := s.Open(ctx, baseURL, nonce); err != nil {
		return nil, err
	}

	evidence, mediaType, err := builder.BuildEvidence(s.Nonce(), s.Accept())
	if err != nil {
		return nil, s.fail(status.WrapAs(status.CallbackError, err, "evidence generation failed"))
	}

	if err := s.Submit(ctx, mediaType, evidence); err != nil {
		return nil, err
	}

	result, _ := s.Result()

	return result, nil
}
