// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/veraison/crclient/auth"
	"github.com/veraison/crclient/common"
	"github.com/veraison/crclient/internal/mockverifier"
	"github.com/veraison/crclient/session"
	"github.com/veraison/crclient/status"
	"github.com/veraison/crclient/verification"
)

const (
	demoMediaType = "application/vnd.parallaxsecond.key-attestation.tpm"
	demoResult    = `{"ear.status":"affirming"}`
)

func newRootCmd() *cobra.Command {
	var (
		configFile string
		method     auth.Method
	)

	cmd := &cobra.Command{
		Use:   "crclient",
		Short: "Run a challenge-response attestation session against a verifier",
		Long: `crclient opens a challenge-response session with the verifier at
--base-url, submits the evidence read from --evidence and prints the
attestation result on stdout. The exit code is the numeric status code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unexpected arguments %v", status.ErrConfig, args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadConfigFile(configFile)
			if err != nil {
				return err
			}

			if err := overlayFlags(m, cmd.Flags()); err != nil {
				return fmt.Errorf("%w: %v", status.ErrConfig, err)
			}

			opts, err := decodeOptions(m)
			if err != nil {
				return err
			}

			return run(cmd, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", status.ErrConfig, err)
	})

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.String("base-url", "", "URL of the newSession endpoint")
	f.String("nonce", "", "base64-encoded nonce")
	f.Uint("nonce-size", 0, "size of the server-generated nonce (0 lets the server choose)")
	f.String("evidence", "", "file containing the evidence")
	f.String("media-type", "", "evidence media type (defaults to the first accepted one)")
	f.Var(&method, "auth", "authentication method ("+strings.Join(auth.Methods(), ", ")+")")
	f.StringSlice("ca-cert", nil, "CA certificate(s) used to verify the server")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.Bool("delete-session", false, "DELETE the session resource when done")
	f.Bool("cbor", false, "request the CBOR session resource representation")
	f.Bool("demo", false, "run against an in-process mock verifier")
	f.BoolP("verbose", "v", false, "enable debug logging")

	return cmd
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if verbose {
		lvl = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(cmd *cobra.Command, opts *options) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	baseURL := opts.BaseURL

	if opts.Demo {
		accept := demoMediaType
		if opts.MediaType != "" {
			accept = opts.MediaType
		}

		v := mockverifier.New([]string{accept}, demoResult, logger.With().Str("component", "mockverifier").Logger())
		srv := httptest.NewServer(v.Handler())
		defer srv.Close()

		baseURL = srv.URL + mockverifier.NewSessionPath()
		logger.Info().Str("base_url", baseURL).Msg("demo verifier started")
	}

	var nonce []byte
	if opts.Nonce != "" {
		var err error
		if nonce, err = base64.StdEncoding.DecodeString(opts.Nonce); err != nil {
			return fmt.Errorf("%w: decoding nonce: %v", status.ErrConfig, err)
		}
	}

	client, err := newClient(opts)
	if err != nil {
		return err
	}

	tr := verification.NewTransport(client)
	if opts.CBOR {
		tr.Codec = verification.CodecCBOR
	}

	var cfg session.Config

	for _, set := range []func() error{
		func() error { return cfg.SetTransport(tr) },
		func() error { return cfg.SetNonceSize(opts.NonceSize) },
		func() error { return cfg.SetLogger(&logger) },
	} {
		if err := set(); err != nil {
			return fmt.Errorf("%w: %v", status.ErrConfig, err)
		}
	}
	cfg.SetDeleteSession(opts.DeleteSession)

	builder := fileEvidenceBuilder{
		path:      opts.Evidence,
		mediaType: opts.MediaType,
		demo:      opts.Demo,
	}

	result, err := cfg.Run(cmd.Context(), baseURL, nonce, builder)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(result))

	return nil
}

func newClient(opts *options) (*common.Client, error) {
	a, err := opts.authenticator()
	if err != nil {
		return nil, err
	}

	switch {
	case len(opts.CACerts) > 0:
		c, err := common.NewTLSClient(a, opts.CACerts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", status.ErrConfig, err)
		}
		return c, nil
	case opts.Insecure:
		return common.NewInsecureTLSClient(a), nil
	default:
		return common.NewClient(a), nil
	}
}
