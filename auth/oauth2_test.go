// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0
package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOauth2_Configure(t *testing.T) {
	var oa2a Oauth2Authenticator

	err := oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     "http://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "user1", oa2a.Username)
	assert.Equal(t, "Passw0rd!", oa2a.Password)
	assert.Equal(t, "myclient", oa2a.ClientID)
	assert.Equal(t, "deadbeef", oa2a.ClientSecret)
	assert.Equal(t, "http://example.com", oa2a.TokenURL)

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"token_url":     "http://example.com",
	})
	assert.EqualError(t, err, "missing password")

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"token_url":     "http://example.com",
		"password":      "Passw0rd!",
	})
	assert.EqualError(t, err, "missing username")

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     "http://example.com",
		"full name":     "User One",
	})
	assert.EqualError(t, err, "unexpected fields in config: full name")
}

func TestOauth2_EncodeHeader(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "user1", r.PostForm.Get("username"))

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"access_token":"s3cr3t","token_type":"bearer","expires_in":3600}`))
		assert.NoError(t, err)
	}))
	defer srv.Close()

	var oa2a Oauth2Authenticator

	err := oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     srv.URL,
	})
	require.NoError(t, err)

	header, err := oa2a.EncodeHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr3t", header)

	// the cached token is reused until it expires
	header, err = oa2a.EncodeHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr3t", header)
	assert.Equal(t, 1, calls)
}

func TestOauth2_EncodeHeader_concurrent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"s3cr3t","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	var oa2a Oauth2Authenticator

	require.NoError(t, oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     srv.URL,
	}))

	const workers = 8

	headers := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headers[i], errs[i] = oa2a.EncodeHeader(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Bearer s3cr3t", headers[i])
	}

	// a single token request serves every caller
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
