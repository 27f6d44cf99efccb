// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/veraison/crclient/auth"
	"github.com/veraison/crclient/status"
	"golang.org/x/oauth2"
)

// ErrAuthorization is returned when the Authorization header cannot be
// produced. Unless the failure happened while talking to a token endpoint, the
// error also matches status.ErrConfig.
var ErrAuthorization = errors.New("authorization failed")

// DefaultTimeout bounds every request issued through a Client created by
// NewClient
const DefaultTimeout = 5 * time.Second

// Client holds configuration data associated with the HTTP(s) session
type Client struct {
	HTTPClient http.Client
	Auth       auth.IAuthenticator
}

// NewClient instantiates a new Client. A nil authenticator is replaced by the
// NullAuthenticator.
func NewClient(a auth.IAuthenticator) *Client {
	if a == nil {
		a = &auth.NullAuthenticator{}
	}

	return &Client{
		HTTPClient: http.Client{
			Timeout: DefaultTimeout,
		},
		Auth: a,
	}
}

// NewTLSClient instantiates a new Client which trusts the system roots plus
// the certificates found in caCerts
func NewTLSClient(a auth.IAuthenticator, caCerts []string) (*Client, error) {
	transport, err := auth.NewTLSTransport(caCerts)
	if err != nil {
		return nil, fmt.Errorf("TLS transport: %w", err)
	}

	c := NewClient(a)
	c.HTTPClient.Transport = transport

	return c, nil
}

// NewInsecureTLSClient instantiates a new Client that does not verify the
// server certificate
func NewInsecureTLSClient(a auth.IAuthenticator) *Client {
	c := NewClient(a)
	c.HTTPClient.Transport = auth.NewInsecureTLSTransport()

	return c
}

// DeleteResource issues a DELETE on the supplied URI. Acceptable response
// codes are 200, 202 and 204.
func (c Client) DeleteResource(ctx context.Context, uri string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, uri, nil)
	if err != nil {
		return fmt.Errorf("DELETE %q, request creation failed: %w", uri, err)
	}

	res, err := c.do(req)
	if err != nil {
		return err
	}
	defer DiscardBody(res)

	switch res.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("DELETE %q, response has unexpected status: %s", uri, res.Status)
	}
}

// PostResource POSTs body (of media type ct) to uri, asking for a response of
// media type accept
func (c Client) PostResource(ctx context.Context, body []byte, ct, accept, uri string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, uri, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("POST %q, request creation failed: %w", uri, err)
	}

	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", accept)

	return c.do(req)
}

// PostEmptyResource POSTs an empty body to uri
func (c Client) PostEmptyResource(ctx context.Context, accept, uri string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, uri, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("POST %q, request creation failed: %w", uri, err)
	}

	req.Header.Set("Accept", accept)

	return c.do(req)
}

// GetResource GETs uri asking for a response of media type accept
func (c Client) GetResource(ctx context.Context, accept, uri string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("GET %q, request creation failed: %w", uri, err)
	}

	req.Header.Set("Accept", accept)

	return c.do(req)
}

func (c Client) newRequest(ctx context.Context, method, uri string, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}

	if c.Auth != nil {
		// token requests go through the same HTTP client as the API calls
		header, err := c.Auth.EncodeHeader(context.WithValue(ctx, oauth2.HTTPClient, &c.HTTPClient))
		if err != nil {
			return nil, authorizationError(err)
		}
		if header != "" {
			req.Header.Set("Authorization", header)
		}
	}

	return req, nil
}

func (c Client) do(req *http.Request) (*http.Response, error) {
	hc := &c.HTTPClient

	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}

	if res == nil {
		return nil, errors.New("nil response")
	}

	return res, nil
}

func authorizationError(err error) error {
	var (
		urlErr *url.Error
		netErr net.Error
	)

	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrAuthorization, err)
	}

	return fmt.Errorf("%w: %w: %v", ErrAuthorization, status.ErrConfig, err)
}

// DiscardBody consumes and closes the response body so the connection can be
// reused
func DiscardBody(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
