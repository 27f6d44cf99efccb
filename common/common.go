// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	APIStatusFailed     = "failed"
	APIStatusProcessing = "processing"
	APIStatusComplete   = "complete"
	APIStatusWaiting    = "waiting"
)

func ResolveReference(baseURI, referenceURI string) (string, error) {
	u, err := url.Parse(referenceURI)
	if err != nil {
		return "", fmt.Errorf("parsing reference URI: %w", err)
	}

	if u.IsAbs() {
		return referenceURI, nil
	}

	base, err := url.Parse(baseURI)
	if err != nil {
		return "", fmt.Errorf("parsing base URI: %w", err)
	}

	return base.ResolveReference(u).String(), nil
}

func DecodeJSONBody(res *http.Response, j interface{}) error {
	defer res.Body.Close()

	return json.NewDecoder(res.Body).Decode(j)
}

func DecodeCBORBody(res *http.Response, j interface{}) error {
	defer res.Body.Close()

	return cbor.NewDecoder(res.Body).Decode(j)
}

// DecodeBody uses the CBOR decoder if the response Content-Type says so
// (application/cbor or a +cbor structured syntax suffix), JSON otherwise.
func DecodeBody(res *http.Response, j interface{}) error {
	if IsCBOR(res.Header.Get("Content-Type")) {
		return DecodeCBORBody(res, j)
	}

	return DecodeJSONBody(res, j)
}

// IsCBOR tells whether the media type denotes a CBOR encoding
func IsCBOR(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}

	return mt == "application/cbor" || strings.HasSuffix(mt, "+cbor")
}

// Extract Location header and resolve it to the supplied base (if non-empty)
func ExtractLocation(res *http.Response, base string) (string, error) {
	var err error

	loc := res.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("no Location header found in response")
	}

	if base != "" {
		if loc, err = ResolveReference(base, loc); err != nil {
			return "", fmt.Errorf("the returned Location %q is not a valid URI: %w", loc, err)
		}
	}

	return loc, nil
}
