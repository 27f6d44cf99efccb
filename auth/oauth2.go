// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

// Oauth2Authenticator obtains a bearer token using the resource owner
// password credentials grant and refreshes it once expired. It is safe for
// concurrent use once configured.
type Oauth2Authenticator struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	mu    sync.Mutex // guards Token
	Token *oauth2.Token
}

func (o *Oauth2Authenticator) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		TokenURL     string                 `mapstructure:"token_url"`
		ClientID     string                 `mapstructure:"client_id"`
		ClientSecret string                 `mapstructure:"client_secret"`
		Username     string                 `mapstructure:"username"`
		Password     string                 `mapstructure:"password"`
		Rest         map[string]interface{} `mapstructure:",remain"`
	}{}

	err := decodeConfig(cfg, &decoded, func() map[string]interface{} { return decoded.Rest })
	if err != nil {
		return err
	}

	o.ClientID = decoded.ClientID
	o.ClientSecret = decoded.ClientSecret
	o.TokenURL = decoded.TokenURL
	o.Username = decoded.Username
	o.Password = decoded.Password

	o.mu.Lock()
	o.Token = nil
	o.mu.Unlock()

	return o.validate()
}

func (o *Oauth2Authenticator) EncodeHeader(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Token.Valid() {
		tok, err := o.obtainToken(ctx)
		if err != nil {
			return "", fmt.Errorf("obtaining access token: %w", err)
		}
		o.Token = tok
	}

	return "Bearer " + o.Token.AccessToken, nil
}

// obtainToken runs the password grant. The HTTP client is taken from ctx
// (oauth2.HTTPClient) when present.
func (o *Oauth2Authenticator) obtainToken(ctx context.Context) (*oauth2.Token, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scopes:       []string{"openid"},
		Endpoint: oauth2.Endpoint{
			TokenURL: o.TokenURL,
		},
	}

	return conf.PasswordCredentialsToken(ctx, o.Username, o.Password)
}

func (o *Oauth2Authenticator) validate() error {
	if o.ClientID == "" {
		return errors.New("missing client_id")
	}

	if o.ClientSecret == "" {
		return errors.New("missing client_secret")
	}

	if o.TokenURL == "" {
		return errors.New("missing token_url")
	}

	if _, err := url.Parse(o.TokenURL); err != nil {
		return fmt.Errorf("invalid token_url: %w", err)
	}

	if o.Username == "" {
		return errors.New("missing username")
	}

	if o.Password == "" {
		return errors.New("missing password")
	}

	return nil
}
