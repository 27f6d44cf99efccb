// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import "context"

// Transport carries the protocol requests issued by a Session to the
// verification service. Implementations must report transport-level failures
// (DNS, connection refused, TLS, timeouts, undecodable bodies) as errors and
// hand back any HTTP-level outcome, successful or not, in the response
// object so that the session can validate it.
type Transport interface {
	// CreateSession asks the service at baseURL to allocate a new session.
	// If nonce is empty the server is asked to generate one of nonceSize
	// bytes (zero lets the server pick the size too).
	CreateSession(ctx context.Context, baseURL string, nonce []byte, nonceSize uint) (*CreateSessionResponse, error)

	// SubmitEvidence posts evidence of the given media type to the session
	// resource at sessionURL and returns the attestation result.
	SubmitEvidence(ctx context.Context, sessionURL, mediaType string, evidence []byte) (*SubmitEvidenceResponse, error)

	// CloseSession disposes of the session resource at sessionURL. It is
	// best effort: a failure never prevents local release.
	CloseSession(ctx context.Context, sessionURL string) error
}

// CreateSessionResponse is the outcome of a session creation request
type CreateSessionResponse struct {
	StatusCode int
	SessionURL string
	Nonce      []byte
	Accept     []string
	// Diagnostic is an optional explanation supplied by the server,
	// typically on non-2xx responses
	Diagnostic string
}

// SubmitEvidenceResponse is the outcome of an evidence submission
type SubmitEvidenceResponse struct {
	StatusCode int
	Result     []byte
	Diagnostic string
}
