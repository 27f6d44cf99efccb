// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
)

// NewTestingHTTPClient starts an httptest server running handler and returns
// a default Client whose connections, whatever their host, all end up at that
// server, together with the server shutdown function
func NewTestingHTTPClient(handler http.Handler) (*Client, func()) {
	srv := httptest.NewServer(handler)
	addr := srv.Listener.Addr().String()

	var d net.Dialer

	cli := NewClient(nil)
	cli.HTTPClient.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return d.DialContext(ctx, network, addr)
		},
	}

	return cli, srv.Close
}
