// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/crclient/auth"
	"github.com/veraison/crclient/common"
	"github.com/veraison/crclient/internal/mockverifier"
	"github.com/veraison/crclient/session"
	"github.com/veraison/crclient/status"
	"github.com/veraison/crclient/verification"
)

var testNewSessionURL = "http://veraison.example" + mockverifier.NewSessionPath()

type testEvidenceBuilder struct{}

func (testEvidenceBuilder) BuildEvidence(nonce []byte, accept []string) ([]byte, string, error) {
	return append([]byte{0x0e, 0x0d}, nonce...), accept[0], nil
}

func newTestConfig(v *mockverifier.Verifier) (session.Config, func()) {
	client, teardown := common.NewTestingHTTPClient(v.Handler())

	tr := verification.NewTransport(client)
	tr.PollPeriod = time.Millisecond

	l := zerolog.Nop()

	return session.Config{Transport: tr, Logger: &l}, teardown
}

func TestSession_against_verifier_sync(t *testing.T) {
	v := mockverifier.New([]string{"application/psa"}, "PASS", zerolog.Nop())

	cfg, teardown := newTestConfig(v)
	defer teardown()

	s, err := cfg.Open(context.Background(), testNewSessionURL, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, session.Open, s.State())
	assert.Equal(t, []string{"application/psa"}, s.Accept())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, s.Nonce())

	u, ok := s.URL()
	require.True(t, ok)
	assert.Regexp(t, `^http://veraison\.example/challenge-response/v1/session/`, u)

	err = s.Submit(context.Background(), "application/psa", []byte{0, 1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, session.EvidenceSubmitted, s.State())

	result, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "PASS", string(result))
}

func TestSession_against_verifier_async_cbor(t *testing.T) {
	v := mockverifier.New([]string{"application/psa"}, "PASS", zerolog.Nop())
	v.Async = true
	v.Polls = 1

	client, teardown := common.NewTestingHTTPClient(v.Handler())
	defer teardown()

	tr := verification.NewTransport(client)
	tr.PollPeriod = time.Millisecond
	tr.Codec = verification.CodecCBOR

	l := zerolog.Nop()
	cfg := session.Config{Transport: tr, Logger: &l, NonceSize: 16, DeleteSession: true}

	result, err := cfg.Run(context.Background(), testNewSessionURL, nil, testEvidenceBuilder{})
	require.NoError(t, err)
	assert.Equal(t, "PASS", string(result))

	// the session resource was disposed of by Close
	assert.Equal(t, 0, v.Sessions())
}

func TestSession_against_verifier_empty_accept(t *testing.T) {
	v := mockverifier.New(nil, "PASS", zerolog.Nop())

	cfg, teardown := newTestConfig(v)
	defer teardown()

	s, err := cfg.Open(context.Background(), testNewSessionURL, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, session.Open, s.State())
	assert.Empty(t, s.Accept())
	assert.Len(t, s.Nonce(), 32)
}

func TestSession_against_verifier_server_error(t *testing.T) {
	v := mockverifier.New([]string{"application/psa"}, "PASS", zerolog.Nop())
	v.SetFail(http.StatusInternalServerError)

	cfg, teardown := newTestConfig(v)
	defer teardown()

	s, err := cfg.Open(context.Background(), testNewSessionURL, []byte{0x01, 0x02, 0x03})
	assert.Equal(t, status.ApiError, status.Normalize(err))
	assert.Equal(t, session.Faulted, s.State())

	diag, ok := s.Diagnostic()
	assert.True(t, ok)
	assert.Equal(t, "newSession: unexpected status 500: 500 Internal Server Error: injected failure", diag)

	s.Close()
	assert.Equal(t, session.Closed, s.State())
}

func TestSession_against_verifier_unsupported_evidence(t *testing.T) {
	v := mockverifier.New([]string{"application/psa", "application/cca"}, "PASS", zerolog.Nop())

	cfg, teardown := newTestConfig(v)
	defer teardown()

	s, err := cfg.Open(context.Background(), testNewSessionURL, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	// the verifier stops advertising cca between the two calls
	v.SetAccept([]string{"application/psa"})
	v.SetFail(http.StatusUnsupportedMediaType)

	err = s.Submit(context.Background(), "application/cca", []byte{0x00})
	assert.Equal(t, status.ApiError, status.Normalize(err))
	assert.Equal(t, session.Faulted, s.State())
}

func TestSession_connection_refused(t *testing.T) {
	tr := verification.NewTransport(nil)

	l := zerolog.Nop()
	cfg := session.Config{Transport: tr, Logger: &l}

	s, err := cfg.Open(context.Background(), "http://127.0.0.1:1/challenge-response/v1/newSession", nil)
	assert.Equal(t, status.ApiError, status.Normalize(err))
	assert.Equal(t, session.Faulted, s.State())

	diag, ok := s.Diagnostic()
	assert.True(t, ok)
	assert.Contains(t, diag, "newSession request failed")
}

func TestSession_concurrent_sessions_shared_config(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"s3cr3t","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	v := mockverifier.New([]string{"application/psa"}, "PASS", zerolog.Nop())
	srv := httptest.NewServer(v.Handler())
	defer srv.Close()

	a, err := auth.New(auth.MethodOauth2, map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     tokenSrv.URL,
	})
	require.NoError(t, err)

	l := zerolog.Nop()
	cfg := session.Config{
		Transport:     verification.NewTransport(common.NewClient(a)),
		Logger:        &l,
		DeleteSession: true,
	}

	const workers = 8

	results := make([][]byte, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cfg.Run(context.Background(), srv.URL+mockverifier.NewSessionPath(), []byte{byte(i + 1)}, testEvidenceBuilder{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "PASS", string(results[i]))
	}
	assert.Equal(t, 0, v.Sessions())
}
