// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/veraison/crclient/status"
)

// Session is the handle to one challenge-response exchange. It must not be
// copied, and calls on the same handle must be serialized by the caller. The
// zero value is a never-opened session with no configuration; use Config.New
// to get a usable one.
type Session struct {
	noCopy noCopy

	cfg   Config
	id    uuid.UUID
	state State
	log   zerolog.Logger
	store store
}

// Open is the one-shot form of New followed by Session.Open. The session is
// returned even when opening fails, so that its Faulted state and diagnostic
// can be inspected.
func (cfg Config) Open(ctx context.Context, baseURL string, nonce []byte) (*Session, error) {
	s := cfg.New()
	return s, s.Open(ctx, baseURL, nonce)
}

// Open runs the session creation part of the protocol against the
// verification service at baseURL. An empty nonce asks for one to be
// generated, locally if a NonceGenerator is configured, otherwise by the
// server. On success the session is Open and its URL, nonce and accepted
// media types are available.
func (o *Session) Open(ctx context.Context, baseURL string, nonce []byte) error {
	if o.state != Uninitialized {
		return status.NewFault(status.ConfigError, "cannot open a session in state %q", o.state)
	}

	if f := o.checkOpen(baseURL, nonce); f != nil {
		return o.fail(f)
	}

	nonce, f := o.localNonce(nonce)
	if f != nil {
		return o.fail(f)
	}

	o.log.Debug().Str("base_url", baseURL).Int("nonce_size", len(nonce)).Msg("creating session")

	res, err := o.cfg.Transport.CreateSession(ctx, baseURL, nonce, o.cfg.NonceSize)
	if err != nil {
		return o.fail(status.Wrap(err, "newSession request failed"))
	}

	if f := checkCreateSessionResponse(res, nonce); f != nil {
		return o.fail(f)
	}

	o.store.open(res.SessionURL, res.Nonce, res.Accept)
	o.transition(Open)

	o.log.Info().
		Str("session_url", res.SessionURL).
		Strs("accept", res.Accept).
		Msg("session open")

	return nil
}

// Submit runs the evidence submission part of the protocol. mediaType must be
// one of the types accepted by the server; this is checked before any request
// is made. A failed local check leaves the session Open. On success the
// session moves to EvidenceSubmitted and the attestation result is available.
func (o *Session) Submit(ctx context.Context, mediaType string, evidence []byte) error {
	if o.state != Open {
		return status.NewFault(status.ConfigError, "cannot submit evidence to a session in state %q", o.state)
	}

	if !o.store.accepts(mediaType) {
		f := status.NewFault(status.ConfigError, "media type %q is not accepted by the server (accepted: %v)",
			mediaType, o.store.accept)
		o.store.setDiagnostic(f.Diagnostic)
		return f
	}

	if len(evidence) == 0 {
		f := status.NewFault(status.ConfigError, "no evidence supplied")
		o.store.setDiagnostic(f.Diagnostic)
		return f
	}

	o.log.Debug().Str("media_type", mediaType).Int("evidence_size", len(evidence)).Msg("submitting evidence")

	res, err := o.cfg.Transport.SubmitEvidence(ctx, o.store.sessionURL, mediaType, evidence)
	if err != nil {
		return o.fail(status.Wrap(err, "evidence submission failed"))
	}

	if f := checkSubmitEvidenceResponse(res); f != nil {
		return o.fail(f)
	}

	o.store.attachResult(res.Result)
	o.store.setDiagnostic("")
	o.transition(EvidenceSubmitted)

	o.log.Info().Int("result_size", len(res.Result)).Msg("attestation result received")

	return nil
}

// Close releases every resource associated with the session. If configured
// to do so it first asks the server to dispose of the session resource,
// ignoring any failure. Close is idempotent and never fails.
func (o *Session) Close() {
	if o.state == Closed {
		return
	}

	if o.cfg.DeleteSession && o.store.hasSessionURL && o.cfg.Transport != nil {
		timeout := o.cfg.CloseTimeout
		if timeout <= 0 {
			timeout = DefaultCloseTimeout
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := o.cfg.Transport.CloseSession(ctx, o.store.sessionURL); err != nil {
			o.log.Warn().Err(err).Str("session_url", o.store.sessionURL).Msg("DELETE failed")
		}
		cancel()
	}

	o.store = store{}
	o.transition(Closed)
}

// ID returns the local identifier of the session, used in log records
func (o *Session) ID() uuid.UUID {
	return o.id
}

// State returns the current protocol state
func (o *Session) State() State {
	return o.state
}

// URL returns the server-assigned session resource URL, if the session was
// opened successfully
func (o *Session) URL() (string, bool) {
	return o.store.sessionURL, o.store.hasSessionURL
}

// Nonce returns a copy of the nonce bound to the session
func (o *Session) Nonce() []byte {
	return clone(o.store.nonce)
}

// Accept returns a copy of the media types accepted by the server, in server
// preference order
func (o *Session) Accept() []string {
	if o.store.accept == nil {
		return nil
	}
	return append(make([]string, 0, len(o.store.accept)), o.store.accept...)
}

// Result returns a copy of the attestation result, if one was received
func (o *Session) Result() ([]byte, bool) {
	return clone(o.store.result), o.store.hasResult
}

// Diagnostic returns the explanation attached by the last failure, if any
func (o *Session) Diagnostic() (string, bool) {
	return o.store.diagnostic, o.store.hasDiagnostic
}

func (o *Session) checkOpen(baseURL string, nonce []byte) *status.Fault {
	if o.cfg.Transport == nil {
		return status.NewFault(status.ConfigError, "no transport configured")
	}

	if baseURL == "" {
		return status.NewFault(status.ConfigError, "no base URL supplied")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return status.WrapAs(status.ConfigError, err, "malformed base URL")
	}

	if !u.IsAbs() || u.Host == "" {
		return status.NewFault(status.ConfigError, "base URL %q is not in absolute form", baseURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return status.NewFault(status.ConfigError, "unsupported URL scheme %q", u.Scheme)
	}

	if len(nonce) > MaxNonceSize {
		return status.NewFault(status.ConfigError, "nonce size %d exceeds the maximum (%d)", len(nonce), MaxNonceSize)
	}

	if o.cfg.NonceSize > MaxNonceSize {
		return status.NewFault(status.ConfigError, "nonce size %d exceeds the maximum (%d)", o.cfg.NonceSize, MaxNonceSize)
	}

	return nil
}

// localNonce returns the nonce to send. Without a caller nonce and a
// configured generator, it stays empty and the server generates one.
func (o *Session) localNonce(nonce []byte) ([]byte, *status.Fault) {
	if len(nonce) > 0 || o.cfg.NonceGenerator == nil {
		return nonce, nil
	}

	n, err := o.cfg.NonceGenerator.GenerateNonce(o.cfg.NonceSize)
	if err != nil {
		return nil, status.WrapAs(status.CallbackError, err, "nonce generation failed")
	}

	if len(n) == 0 || len(n) > MaxNonceSize {
		return nil, status.NewFault(status.CallbackError, "nonce generator returned %d bytes", len(n))
	}

	return n, nil
}

func checkCreateSessionResponse(res *CreateSessionResponse, nonce []byte) *status.Fault {
	if res == nil {
		return status.NewFault(status.ApiError, "newSession: no response from transport")
	}

	if f := checkStatusCode("newSession", res.StatusCode, res.Diagnostic); f != nil {
		return f
	}

	if res.SessionURL == "" {
		return status.NewFault(status.ApiError, "newSession: no session URL in response")
	}

	u, err := url.Parse(res.SessionURL)
	if err != nil || !u.IsAbs() {
		return status.NewFault(status.ApiError, "newSession: session URL %q is not an absolute URL", res.SessionURL)
	}

	if len(res.Nonce) == 0 {
		return status.NewFault(status.ApiError, "newSession: no nonce in response")
	}

	if len(nonce) > 0 && !bytes.Equal(nonce, res.Nonce) {
		return status.NewFault(status.ApiError, "newSession: nonce in response does not match the one supplied")
	}

	seen := make(map[string]bool, len(res.Accept))
	for _, mt := range res.Accept {
		if mt == "" {
			return status.NewFault(status.ApiError, "newSession: empty media type in accept list")
		}
		if seen[mt] {
			return status.NewFault(status.ApiError, "newSession: duplicate media type %q in accept list", mt)
		}
		seen[mt] = true
	}

	return nil
}

func checkSubmitEvidenceResponse(res *SubmitEvidenceResponse) *status.Fault {
	if res == nil {
		return status.NewFault(status.ApiError, "session: no response from transport")
	}

	if f := checkStatusCode("session", res.StatusCode, res.Diagnostic); f != nil {
		return f
	}

	if len(res.Result) == 0 {
		return status.NewFault(status.ApiError, "session: empty attestation result")
	}

	return nil
}

func checkStatusCode(op string, sc int, diag string) *status.Fault {
	code := status.FromHTTPStatus(sc)
	if code == status.Ok {
		return nil
	}

	if diag == "" {
		return status.NewFault(code, "%s: unexpected status %d", op, sc)
	}

	return status.NewFault(code, "%s: unexpected status %d: %s", op, sc, diag)
}

// fail moves the session to Faulted. A faulted open never populated the store;
// a faulted submit keeps the session URL so Close can still dispose of it.
func (o *Session) fail(f *status.Fault) error {
	o.store.result = nil
	o.store.hasResult = false
	o.store.setDiagnostic(f.Diagnostic)
	o.transition(Faulted)

	o.log.Error().Str("status", f.Code.String()).Msg(f.Diagnostic)

	return f
}

func (o *Session) transition(to State) {
	o.log.Debug().Stringer("from", o.state).Stringer("to", to).Msg("state transition")
	o.state = to
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
