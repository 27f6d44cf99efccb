// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package verification implements session.Transport on top of the Veraison
challenge-response REST API described in
https://github.com/veraison/veraison/tree/main/docs/api/challenge-response

A Transport wraps a common.Client, which carries the HTTP(s) configuration
and the authenticator:

	client, err := common.NewTLSClient(&auth.BasicAuthenticator{...}, []string{"ca.pem"})
	if err != nil { ... }

	tr := verification.NewTransport(client)

The session resource is requested in its JSON representation unless the CBOR
codec is selected:

	tr.Codec = verification.CodecCBOR

When the server processes the Evidence asynchronously (202 Accepted), the
session resource is polled every PollPeriod, at most MaxAttempts times. A zero
MaxAttempts disables polling and asynchronous servers are then reported as
not implemented:

	tr.PollPeriod = 500 * time.Millisecond
	tr.MaxAttempts = 10

The transport is then plugged into a session.Config:

	cfg := session.Config{Transport: tr, DeleteSession: true}

	result, err := cfg.Run(ctx, "https://veraison.example/challenge-response/v1/newSession", nil, myBuilder)

Transport failures are classified through the sentinel errors of the status
package, and RFC 7807 problem details returned by the server end up in the
session diagnostic.
*/
package verification
