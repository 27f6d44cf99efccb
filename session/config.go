// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxNonceSize is the largest nonce, in bytes, that can be supplied or
	// requested
	MaxNonceSize = 64

	// DefaultCloseTimeout bounds the best-effort teardown request issued by
	// Close
	DefaultCloseTimeout = 5 * time.Second
)

// Config holds the configuration shared by one or more challenge-response
// sessions
type Config struct {
	Transport      Transport       // carries the protocol requests
	NonceSize      uint            // nonce size asked to the server when no nonce is supplied
	NonceGenerator NonceGenerator  // local nonce generation, used instead of the server's
	DeleteSession  bool            // explicitly dispose of the session resource on Close
	CloseTimeout   time.Duration   // bound for the teardown request (DefaultCloseTimeout if zero)
	Logger         *zerolog.Logger // global zerolog logger if nil
}

// SetTransport sets the Transport used to reach the verification service
func (cfg *Config) SetTransport(t Transport) error {
	if t == nil {
		return errors.New("no transport supplied")
	}
	cfg.Transport = t
	return nil
}

// SetNonceSize sets the size of the nonce the server is asked to generate
func (cfg *Config) SetNonceSize(sz uint) error {
	if sz > MaxNonceSize {
		return fmt.Errorf("nonce size %d exceeds the maximum (%d)", sz, MaxNonceSize)
	}
	cfg.NonceSize = sz
	return nil
}

// SetNonceGenerator sets the callback used to produce nonces locally
func (cfg *Config) SetNonceGenerator(g NonceGenerator) error {
	if g == nil {
		return errors.New("no nonce generator supplied")
	}
	cfg.NonceGenerator = g
	return nil
}

// SetDeleteSession sets the DeleteSession parameter using the supplied val
func (cfg *Config) SetDeleteSession(val bool) {
	cfg.DeleteSession = val
}

// SetCloseTimeout sets the bound for the teardown request
func (cfg *Config) SetCloseTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid close timeout %s", d)
	}
	cfg.CloseTimeout = d
	return nil
}

// SetLogger sets the logger used by sessions created from this configuration
func (cfg *Config) SetLogger(l *zerolog.Logger) error {
	if l == nil {
		return errors.New("no logger supplied")
	}
	cfg.Logger = l
	return nil
}

// New returns a fresh session in the Uninitialized state
func (cfg Config) New() *Session {
	id := uuid.New()

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultCloseTimeout
	}

	return &Session{
		cfg:   cfg,
		id:    id,
		state: Uninitialized,
		log:   base.With().Str("session_id", id.String()).Logger(),
	}
}
