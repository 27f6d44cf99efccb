// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// IAuthenticator produces the value of the Authorization header attached to
// every request sent to the verifier. EncodeHeader may be called concurrently
// by sessions sharing the authenticator; ctx bounds any network exchange it
// needs and may carry the *http.Client to use under the oauth2.HTTPClient key.
type IAuthenticator interface {
	Configure(cfg map[string]interface{}) error
	EncodeHeader(ctx context.Context) (string, error)
}

// New returns an authenticator for the given method, configured from cfg
func New(m Method, cfg map[string]interface{}) (IAuthenticator, error) {
	var a IAuthenticator

	switch m {
	case "", MethodPassthrough:
		a = &NullAuthenticator{}
	case MethodBasic:
		a = &BasicAuthenticator{}
	case MethodOauth2:
		a = &Oauth2Authenticator{}
	default:
		return nil, fmt.Errorf("unexpected Method %q", m)
	}

	if err := a.Configure(cfg); err != nil {
		return nil, fmt.Errorf("%s authenticator: %w", m, err)
	}

	return a, nil
}

// decodeConfig decodes cfg into out, which must have a ",remain" map field
// returned by rest, and rejects any key that was not consumed
func decodeConfig(cfg map[string]interface{}, out interface{}, rest func() map[string]interface{}) error {
	if err := mapstructure.Decode(cfg, out); err != nil {
		return err
	}

	if r := rest(); len(r) > 0 {
		var unexpected []string
		for k := range r {
			unexpected = append(unexpected, k)
		}
		sort.Strings(unexpected)
		return fmt.Errorf("unexpected fields in config: %s",
			strings.Join(unexpected, ", "))
	}

	return nil
}
