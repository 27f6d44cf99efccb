// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/crclient/common"
	"github.com/veraison/crclient/session"
	"github.com/veraison/crclient/status"
)

const (
	SessionMediaType     = "application/vnd.veraison.challenge-response-session+json"
	SessionCBORMediaType = "application/vnd.veraison.challenge-response-session+cbor"

	DefaultPollPeriod  = 1 * time.Second
	DefaultMaxAttempts = 2
)

// Codec selects the representation of the session resource requested from
// the server
type Codec string

const (
	CodecJSON Codec = "json"
	CodecCBOR Codec = "cbor"
)

// MediaType returns the session resource media type for the codec
func (o Codec) MediaType() string {
	if o == CodecCBOR {
		return SessionCBORMediaType
	}
	return SessionMediaType
}

// Blob wraps a base64 encoded value together with its media type
// (used for evidence in rats-challenge-response-session+json)
type Blob struct {
	Type  string `json:"type" cbor:"type"`
	Value []byte `json:"value" cbor:"value"`
}

// ChallengeResponseSession models the challenge-response-session media type,
// i.e., the representation of the session resource server-side
type ChallengeResponseSession struct {
	Nonce    []byte            `json:"nonce" cbor:"nonce"`
	Expiry   string            `json:"expiry" cbor:"expiry"`
	Accept   []string          `json:"accept" cbor:"accept"`
	Status   string            `json:"status" cbor:"status"`
	Evidence *Blob             `json:"evidence,omitempty" cbor:"evidence,omitempty"`
	Result   AttestationResult `json:"result,omitempty" cbor:"result,omitempty"`
}

// AttestationResult holds the result carried in the session resource. A
// string result (e.g., a signed EAR) is stored unquoted; any other JSON value
// is kept verbatim.
type AttestationResult []byte

func (o *AttestationResult) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = AttestationResult(s)
		return nil
	}

	*o = append(AttestationResult{}, b...)
	return nil
}

func (o *AttestationResult) UnmarshalCBOR(b []byte) error {
	var v interface{}
	if err := cbor.Unmarshal(b, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*o = nil
	case string:
		*o = AttestationResult(t)
	case []byte:
		*o = append(AttestationResult{}, t...)
	default:
		return fmt.Errorf("unsupported CBOR type %T for attestation result", v)
	}

	return nil
}

// Transport implements session.Transport on top of the Veraison
// challenge-response REST API
type Transport struct {
	Client      *common.Client // HTTP(s) client connection configuration
	Codec       Codec          // session resource representation
	PollPeriod  time.Duration  // interval between polls of a session being processed
	MaxAttempts uint           // number of polls before giving up, zero disables polling
}

var _ session.Transport = (*Transport)(nil)

// NewTransport returns a Transport with default settings. A nil client is
// replaced by the default one.
func NewTransport(client *common.Client) *Transport {
	if client == nil {
		client = common.NewClient(nil)
	}

	return &Transport{
		Client:      client,
		Codec:       CodecJSON,
		PollPeriod:  DefaultPollPeriod,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// CreateSession POSTs to the newSession endpoint, passing nonce-related info
// via query parameters (either nonce=3q2+7w== or nonceSize=32). A 201
// response carries the session resource and its Location.
func (o *Transport) CreateSession(
	ctx context.Context,
	baseURL string,
	nonce []byte,
	nonceSize uint,
) (*session.CreateSessionResponse, error) {
	if o.Client == nil {
		return nil, fmt.Errorf("%w: nil client", status.ErrConfig)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed newSession URI: %v", status.ErrConfig, err)
	}

	q := u.Query()
	if len(nonce) > 0 {
		q.Set("nonce", base64.StdEncoding.EncodeToString(nonce))
	} else if nonceSize > 0 {
		q.Set("nonceSize", fmt.Sprint(nonceSize))
	}
	u.RawQuery = q.Encode()

	res, err := o.Client.PostEmptyResource(ctx, o.Codec.MediaType(), u.String())
	if err != nil {
		return nil, err
	}

	// Expect 201 and a Location header containing the URI of the newly
	// allocated session
	if res.StatusCode != http.StatusCreated && status.FromHTTPStatus(res.StatusCode) == status.Ok {
		common.DiscardBody(res)
		return nil, fmt.Errorf("%w: newSession answered %d, expected 201 Created", status.ErrAPI, res.StatusCode)
	}

	if res.StatusCode != http.StatusCreated {
		return &session.CreateSessionResponse{
			StatusCode: res.StatusCode,
			Diagnostic: diagnosticFrom(res),
		}, nil
	}

	sessionURI, err := common.ExtractLocation(res, baseURL)
	if err != nil {
		common.DiscardBody(res)
		return nil, fmt.Errorf("%w: cannot determine URI for the session resource: %v", status.ErrAPI, err)
	}

	j := ChallengeResponseSession{}

	if err := common.DecodeBody(res, &j); err != nil {
		return nil, fmt.Errorf("%w: failure decoding session resource: %v", status.ErrAPI, err)
	}

	return &session.CreateSessionResponse{
		StatusCode: res.StatusCode,
		SessionURL: sessionURI,
		Nonce:      j.Nonce,
		Accept:     j.Accept,
	}, nil
}

// SubmitEvidence POSTs the evidence to the session resource. The server
// either answers synchronously (200) with the completed session, or
// asynchronously (202) in which case the session resource is polled until it
// completes.
func (o *Transport) SubmitEvidence(
	ctx context.Context,
	uri string,
	mediaType string,
	evidence []byte,
) (*session.SubmitEvidenceResponse, error) {
	if o.Client == nil {
		return nil, fmt.Errorf("%w: nil client", status.ErrConfig)
	}

	res, err := o.Client.PostResource(ctx, evidence, mediaType, o.Codec.MediaType(), uri)
	if err != nil {
		return nil, err
	}

	switch res.StatusCode {
	case http.StatusOK:
		j := ChallengeResponseSession{}

		if err := common.DecodeBody(res, &j); err != nil {
			return nil, fmt.Errorf("%w: failure decoding session resource: %v", status.ErrAPI, err)
		}

		if j.Status != common.APIStatusComplete {
			return nil, fmt.Errorf("%w: unexpected session state: %s", status.ErrAPI, j.Status)
		}

		return &session.SubmitEvidenceResponse{StatusCode: res.StatusCode, Result: j.Result}, nil
	case http.StatusAccepted:
		common.DiscardBody(res)
		return o.pollForAttestationResult(ctx, uri)
	default:
		return &session.SubmitEvidenceResponse{
			StatusCode: res.StatusCode,
			Diagnostic: diagnosticFrom(res),
		}, nil
	}
}

// CloseSession DELETEs the session resource
func (o *Transport) CloseSession(ctx context.Context, uri string) error {
	if o.Client == nil {
		return fmt.Errorf("%w: nil client", status.ErrConfig)
	}

	return o.Client.DeleteResource(ctx, uri)
}

// pollForAttestationResult polls the supplied URI until the resource state
// transitions to "complete". If so, the attestation result is returned. If the
// resource state is still "processing" when the configured number of polls has
// been attempted, or the state of the resource transitions to "failed", an
// error is returned.
func (o *Transport) pollForAttestationResult(ctx context.Context, uri string) (*session.SubmitEvidenceResponse, error) {
	if o.MaxAttempts == 0 {
		return nil, fmt.Errorf("%w: asynchronous verification (polling disabled)", status.ErrNotImplemented)
	}

	for attempt := uint(1); attempt <= o.MaxAttempts; attempt++ {
		res, err := o.Client.GetResource(ctx, o.Codec.MediaType(), uri)
		if err != nil {
			return nil, fmt.Errorf("session resource fetch failed: %w", err)
		}

		if res.StatusCode != http.StatusOK {
			return &session.SubmitEvidenceResponse{
				StatusCode: res.StatusCode,
				Diagnostic: diagnosticFrom(res),
			}, nil
		}

		j := ChallengeResponseSession{}

		if err := common.DecodeBody(res, &j); err != nil {
			return nil, fmt.Errorf("%w: failure decoding session resource: %v", status.ErrAPI, err)
		}

		switch j.Status {
		case common.APIStatusComplete:
			return &session.SubmitEvidenceResponse{StatusCode: res.StatusCode, Result: j.Result}, nil
		case common.APIStatusFailed:
			return nil, fmt.Errorf("%w: session resource in failed state", status.ErrAPI)
		case common.APIStatusProcessing:
			if attempt == o.MaxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("polling interrupted: %w", ctx.Err())
			case <-time.After(o.PollPeriod):
			}
		default:
			return nil, fmt.Errorf("%w: session resource in unexpected state: %s", status.ErrAPI, j.Status)
		}
	}

	return nil, fmt.Errorf("%w: polling attempts exhausted, session resource state still not complete", status.ErrAPI)
}

// diagnosticFrom extracts the problem details, if any, from a failed response
func diagnosticFrom(res *http.Response) string {
	if !common.IsProblem(res) {
		common.DiscardBody(res)
		return ""
	}

	if err := common.CheckResponse(res); err != nil {
		return err.Error()
	}

	return ""
}
