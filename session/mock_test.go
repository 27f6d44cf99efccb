// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport mocks the Transport interface
type MockTransport struct {
	mock.Mock
}

// CreateSession mocks the CreateSession method
func (m *MockTransport) CreateSession(ctx context.Context, baseURL string, nonce []byte, nonceSize uint) (*CreateSessionResponse, error) {
	args := m.Called(ctx, baseURL, nonce, nonceSize)
	res, _ := args.Get(0).(*CreateSessionResponse)
	return res, args.Error(1)
}

// SubmitEvidence mocks the SubmitEvidence method
func (m *MockTransport) SubmitEvidence(ctx context.Context, sessionURL, mediaType string, evidence []byte) (*SubmitEvidenceResponse, error) {
	args := m.Called(ctx, sessionURL, mediaType, evidence)
	res, _ := args.Get(0).(*SubmitEvidenceResponse)
	return res, args.Error(1)
}

// CloseSession mocks the CloseSession method
func (m *MockTransport) CloseSession(ctx context.Context, sessionURL string) error {
	args := m.Called(ctx, sessionURL)
	return args.Error(0)
}

// MockEvidenceBuilder mocks the EvidenceBuilder interface
type MockEvidenceBuilder struct {
	mock.Mock
}

// BuildEvidence mocks the BuildEvidence method
func (m *MockEvidenceBuilder) BuildEvidence(nonce []byte, accept []string) ([]byte, string, error) {
	args := m.Called(nonce, accept)
	ev, _ := args.Get(0).([]byte)
	return ev, args.String(1), args.Error(2)
}
