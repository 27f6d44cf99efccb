// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

// store owns everything produced for one session. It is populated only by
// successful transitions and dropped as a whole by Close.
type store struct {
	sessionURL    string
	hasSessionURL bool

	nonce  []byte
	accept []string

	result    []byte
	hasResult bool

	diagnostic    string
	hasDiagnostic bool
}

func (o *store) open(sessionURL string, nonce []byte, accept []string) {
	o.sessionURL = sessionURL
	o.hasSessionURL = true
	o.nonce = clone(nonce)
	o.accept = append(make([]string, 0, len(accept)), accept...)
}

func (o *store) attachResult(result []byte) {
	o.result = clone(result)
	o.hasResult = true
}

func (o *store) setDiagnostic(msg string) {
	o.diagnostic = msg
	o.hasDiagnostic = msg != ""
}

func (o *store) accepts(mediaType string) bool {
	for _, mt := range o.accept {
		if mt == mediaType {
			return true
		}
	}
	return false
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
