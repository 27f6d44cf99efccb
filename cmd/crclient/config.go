// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/veraison/crclient/auth"
	"github.com/veraison/crclient/status"
	"gopkg.in/yaml.v3"
)

// options holds the effective settings of a crclient run, merged from the
// optional YAML config file and the command line
type options struct {
	BaseURL       string                 `mapstructure:"base-url"`
	Nonce         string                 `mapstructure:"nonce"`
	NonceSize     uint                   `mapstructure:"nonce-size"`
	Evidence      string                 `mapstructure:"evidence"`
	MediaType     string                 `mapstructure:"media-type"`
	CACerts       []string               `mapstructure:"ca-cert"`
	Insecure      bool                   `mapstructure:"insecure"`
	DeleteSession bool                   `mapstructure:"delete-session"`
	CBOR          bool                   `mapstructure:"cbor"`
	Demo          bool                   `mapstructure:"demo"`
	Verbose       bool                   `mapstructure:"verbose"`
	Auth          map[string]interface{} `mapstructure:"auth"`
}

// loadConfigFile reads a YAML config file into a generic map. An empty path
// yields an empty map.
func loadConfigFile(path string) (map[string]interface{}, error) {
	m := make(map[string]interface{})

	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config: %v", status.ErrConfig, err)
	}

	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing config %s: %v", status.ErrConfig, path, err)
	}

	if m == nil {
		m = make(map[string]interface{})
	}

	return m, nil
}

// overlayFlags copies the flags explicitly set on the command line over the
// values loaded from the config file
func overlayFlags(m map[string]interface{}, fs *pflag.FlagSet) error {
	var err error

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config", "help":
			return
		case "auth":
			a, ok := m["auth"].(map[string]interface{})
			if !ok {
				a = make(map[string]interface{})
			}
			a["method"] = f.Value.String()
			m["auth"] = a
		case "ca-cert":
			var certs []string
			if certs, err = fs.GetStringSlice(f.Name); err == nil {
				m[f.Name] = certs
			}
		default:
			m[f.Name] = f.Value.String()
		}
	})

	return err
}

func decodeOptions(m map[string]interface{}) (*options, error) {
	var opts options

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &opts,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrConfig, err)
	}

	return &opts, nil
}

// authenticator builds the authenticator described by the "auth" section.
// The "method" key selects the authenticator, the remaining keys configure it.
func (o *options) authenticator() (auth.IAuthenticator, error) {
	var method auth.Method

	cfg := make(map[string]interface{}, len(o.Auth))
	for k, v := range o.Auth {
		cfg[k] = v
	}

	if v, ok := cfg["method"]; ok {
		delete(cfg, "method")
		if err := method.Set(fmt.Sprint(v)); err != nil {
			return nil, fmt.Errorf("%w: %v", status.ErrConfig, err)
		}
	}

	a, err := auth.New(method, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrConfig, err)
	}

	return a, nil
}
