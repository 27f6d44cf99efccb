// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_passthrough(t *testing.T) {
	a, err := New(MethodPassthrough, nil)
	require.NoError(t, err)
	assert.IsType(t, &NullAuthenticator{}, a)

	header, err := a.EncodeHeader(context.Background())
	require.NoError(t, err)
	assert.Empty(t, header)

	a, err = New("", nil)
	require.NoError(t, err)
	assert.IsType(t, &NullAuthenticator{}, a)

	_, err = New(MethodPassthrough, map[string]interface{}{"username": "user1"})
	assert.EqualError(t, err, "passthrough authenticator: unexpected fields in config: username")
}

func TestMethods(t *testing.T) {
	assert.Equal(t, []string{"basic", "none", "oauth2", "passthrough"}, Methods())
}

func TestNew_basic(t *testing.T) {
	a, err := New(MethodBasic, map[string]interface{}{
		"username": "user1",
		"password": "Passw0rd!",
	})
	require.NoError(t, err)
	assert.IsType(t, &BasicAuthenticator{}, a)

	_, err = New(MethodBasic, map[string]interface{}{"username": "user1"})
	assert.EqualError(t, err, "basic authenticator: missing password")
}

func TestNew_unknown_method(t *testing.T) {
	_, err := New(Method("kerberos"), nil)
	assert.EqualError(t, err, `unexpected Method "kerberos"`)
}

func TestMethod_Set(t *testing.T) {
	var m Method

	require.NoError(t, m.Set("none"))
	assert.Equal(t, MethodPassthrough, m)

	require.NoError(t, m.Set("basic"))
	assert.Equal(t, MethodBasic, m)

	require.NoError(t, m.Set("oauth2"))
	assert.Equal(t, MethodOauth2, m)
	assert.Equal(t, "oauth2", m.String())
	assert.Equal(t, "method", m.Type())

	assert.EqualError(t, m.Set("digest"), `unexpected Method "digest"`)
}

func TestNewInsecureTLSTransport(t *testing.T) {
	tr := NewInsecureTLSTransport()
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewTLSTransport_missing_cert(t *testing.T) {
	_, err := NewTLSTransport([]string{"testdata/does-not-exist.pem"})
	assert.ErrorContains(t, err, "reading CA certificate")
}

func TestNewTLSTransport_not_pem(t *testing.T) {
	p := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(p, []byte("not a certificate"), 0600))

	_, err := NewTLSTransport([]string{p})
	assert.EqualError(t, err, "no valid certificate in "+p)
}
