// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import "context"

// NullAuthenticator sends no Authorization header. It takes no configuration.
type NullAuthenticator struct{}

func (o *NullAuthenticator) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		Rest map[string]interface{} `mapstructure:",remain"`
	}{}

	return decodeConfig(cfg, &decoded, func() map[string]interface{} { return decoded.Rest })
}

func (o *NullAuthenticator) EncodeHeader(context.Context) (string, error) {
	return "", nil
}
