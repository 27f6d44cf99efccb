// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package session implements the client side of the challenge-response
attestation protocol described in
https://github.com/veraison/veraison/tree/main/docs/api/challenge-response

A Session moves through the following states:

	Uninitialized --Open--> Open --Submit--> EvidenceSubmitted
	      |                  |       |
	      +-------+----------+-------+
	              v
	           Faulted

	any state --Close--> Closed

Every fallible call returns nil or a *status.Fault carrying one of the codes
of the status package and a diagnostic message. Close never fails.

Split operation

The caller drives each step, plugging its own Evidence generation logics
between Open and Submit:

	cfg := session.Config{
		Transport: verification.NewTransport(common.NewClient(nil)),
	}

	s := cfg.New()
	defer s.Close()

	if err := s.Open(ctx, "https://veraison.example/challenge-response/v1/newSession", nonce); err != nil {
		log.Fatal().Err(err).Str("status", status.Normalize(err).String()).Msg("open")
	}

	evidence := myAttester(s.Nonce(), s.Accept())

	if err := s.Submit(ctx, "application/psa-attestation-token", evidence); err != nil {
		...
	}

	result, _ := s.Result()

Passing an empty nonce to Open asks the server to generate one (of
Config.NonceSize bytes, or of a size of its choosing if zero), unless a
NonceGenerator is configured, in which case the nonce is produced locally.

Atomic operation

Alternatively the user provides the Evidence generation logics by
implementing the EvidenceBuilder interface and lets Run handle the whole
exchange:

	result, err := cfg.Run(ctx, baseURL, nonce, MyEvidenceBuilder{})

A Session is not safe for concurrent use. Distinct sessions share no mutable
state and may be used from different goroutines.
*/
package session
