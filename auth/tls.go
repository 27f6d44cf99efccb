// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// NewTLSTransport returns a transport trusting the system roots plus the
// PEM certificates found in caPaths
func NewTLSTransport(caPaths []string) (*http.Transport, error) {
	roots, err := loadRoots(caPaths)
	if err != nil {
		return nil, err
	}

	return newTransport(&tls.Config{RootCAs: roots}), nil
}

// NewInsecureTLSTransport returns a transport that skips server certificate
// verification
func NewInsecureTLSTransport() *http.Transport {
	return newTransport(&tls.Config{InsecureSkipVerify: true}) // #nosec G402
}

func newTransport(cfg *tls.Config) *http.Transport {
	cfg.MinVersion = tls.VersionTLS12

	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: cfg,
	}
}

func loadRoots(caPaths []string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("loading system roots: %w", err)
	}

	for _, p := range caPaths {
		pem, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate: %w", err)
		}

		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no valid certificate in %s", p)
		}
	}

	return pool, nil
}
