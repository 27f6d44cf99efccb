// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasic_Configure(t *testing.T) {
	tvs := []struct {
		desc     string
		cfg      map[string]interface{}
		expected string // substring of the error
	}{
		{
			desc:     "no password",
			cfg:      map[string]interface{}{"username": "user1"},
			expected: "missing password",
		},
		{
			desc:     "no username",
			cfg:      map[string]interface{}{"password": "Passw0rd!"},
			expected: "missing username",
		},
		{
			desc: "unknown fields",
			cfg: map[string]interface{}{
				"username":  "user1",
				"password":  "Passw0rd!",
				"full name": "User One",
				"age":       42,
			},
			expected: "unexpected fields in config: age, full name",
		},
		{
			desc:     "wrong type",
			cfg:      map[string]interface{}{"username": []string{"user1"}, "password": "x"},
			expected: "'username' expected type 'string'",
		},
	}

	for _, tv := range tvs {
		t.Run(tv.desc, func(t *testing.T) {
			var ba BasicAuthenticator
			assert.ErrorContains(t, ba.Configure(tv.cfg), tv.expected)
		})
	}
}

func TestBasic_EncodeHeader(t *testing.T) {
	var ba BasicAuthenticator

	_, err := ba.EncodeHeader(context.Background())
	assert.EqualError(t, err, "missing username")

	require.NoError(t, ba.Configure(map[string]interface{}{
		"username": "user1",
		"password": "Passw0rd!",
	}))
	assert.Equal(t, "user1", ba.Username)
	assert.Equal(t, "Passw0rd!", ba.Password)

	header, err := ba.EncodeHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Basic dXNlcjE6UGFzc3cwcmQh", header)
}
