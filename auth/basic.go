// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"encoding/base64"
	"errors"
)

// BasicAuthenticator implements RFC 7617 basic authentication
type BasicAuthenticator struct {
	Username string
	Password string
}

func (o *BasicAuthenticator) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		Username string                 `mapstructure:"username"`
		Password string                 `mapstructure:"password"`
		Rest     map[string]interface{} `mapstructure:",remain"`
	}{}

	err := decodeConfig(cfg, &decoded, func() map[string]interface{} { return decoded.Rest })
	if err != nil {
		return err
	}

	o.Username = decoded.Username
	o.Password = decoded.Password

	return o.validate()
}

func (o *BasicAuthenticator) EncodeHeader(context.Context) (string, error) {
	if err := o.validate(); err != nil {
		return "", err
	}

	creds := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))

	return "Basic " + creds, nil
}

func (o *BasicAuthenticator) validate() error {
	if o.Username == "" {
		return errors.New("missing username")
	}

	if o.Password == "" {
		return errors.New("missing password")
	}

	return nil
}
