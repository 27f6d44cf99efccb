// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package mockverifier is an in-process stand-in for the challenge-response
// API of a verification service. It does not appraise evidence: every
// submission to an open session yields the configured result.
package mockverifier

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moogar0880/problems"
	"github.com/rs/zerolog"
)

const (
	BasePath = "/challenge-response/v1"

	jsonMediaType = "application/vnd.veraison.challenge-response-session+json"
	cborMediaType = "application/vnd.veraison.challenge-response-session+cbor"

	defaultNonceSize = 32
	maxNonceSize     = 64
	maxBodySize      = 1024 * 1024
)

type evidence struct {
	Type  string `json:"type" cbor:"type"`
	Value []byte `json:"value" cbor:"value"`
}

type resource struct {
	Nonce    []byte    `json:"nonce" cbor:"nonce"`
	Expiry   string    `json:"expiry" cbor:"expiry"`
	Accept   []string  `json:"accept" cbor:"accept"`
	Status   string    `json:"status" cbor:"status"`
	Evidence *evidence `json:"evidence,omitempty" cbor:"evidence,omitempty"`
	Result   *string   `json:"result,omitempty" cbor:"result,omitempty"`

	pending int
}

// Verifier holds the sessions allocated by the fake service. The exported
// fields are read under the verifier lock; change them through SetFail and
// SetAccept once the handler is serving.
type Verifier struct {
	// Accept is advertised in every new session
	Accept []string
	// Result is attached to every completed session
	Result string
	// Async makes evidence submission answer 202, with the session staying
	// "processing" for Polls GETs
	Async bool
	Polls int
	// Fail, if non-zero, is the status returned for every request
	Fail int

	log zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*resource
}

// New creates a verifier advertising accept and returning result
func New(accept []string, result string, log zerolog.Logger) *Verifier {
	return &Verifier{
		Accept:   accept,
		Result:   result,
		log:      log,
		sessions: make(map[string]*resource),
	}
}

// NewSessionPath is the path of the session creation endpoint
func NewSessionPath() string {
	return BasePath + "/newSession"
}

// Handler returns the HTTP handler serving the challenge-response API
func (v *Verifier) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(v.failer)
	r.Route(BasePath, func(r chi.Router) {
		r.Post("/newSession", v.handleNewSession)
		r.Post("/session/{id}", v.handleSubmit)
		r.Get("/session/{id}", v.handleGet)
		r.Delete("/session/{id}", v.handleDelete)
	})
	return r
}

// Sessions returns the number of live session resources
func (v *Verifier) Sessions() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sessions)
}

// SetFail makes every subsequent request fail with status, zero restores
// normal operation
func (v *Verifier) SetFail(status int) {
	v.mu.Lock()
	v.Fail = status
	v.mu.Unlock()
}

// SetAccept replaces the media types advertised by new sessions
func (v *Verifier) SetAccept(accept []string) {
	v.mu.Lock()
	v.Accept = append([]string{}, accept...)
	v.mu.Unlock()
}

func (v *Verifier) failer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		fail := v.Fail
		v.mu.Unlock()

		if fail != 0 {
			writeProblem(w, fail, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) handleNewSession(w http.ResponseWriter, r *http.Request) {
	nonce, err := nonceFromQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.New().String()

	v.mu.Lock()
	res := &resource{
		Nonce:  nonce,
		Expiry: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		Accept: append([]string{}, v.Accept...),
		Status: "waiting",
	}
	v.sessions[id] = res
	v.mu.Unlock()

	v.log.Debug().Str("id", id).Msg("session created")

	w.Header().Set("Location", "session/"+id)
	writeResource(w, r, http.StatusCreated, res)
}

func (v *Verifier) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v.mu.Lock()
	defer v.mu.Unlock()

	res, ok := v.sessions[id]
	if !ok {
		writeProblem(w, http.StatusNotFound, fmt.Sprintf("no session %s", id))
		return
	}

	if res.Status != "waiting" {
		writeProblem(w, http.StatusBadRequest, fmt.Sprintf("session %s is %s", id, res.Status))
		return
	}

	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !contains(res.Accept, ct) {
		writeProblem(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported evidence type %q", ct))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(body) == 0 {
		writeProblem(w, http.StatusBadRequest, "no evidence in request body")
		return
	}

	res.Evidence = &evidence{Type: ct, Value: body}

	if v.Async {
		res.Status = "processing"
		res.pending = v.Polls
		writeResource(w, r, http.StatusAccepted, res)
		return
	}

	v.complete(res)
	writeResource(w, r, http.StatusOK, res)
}

func (v *Verifier) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v.mu.Lock()
	defer v.mu.Unlock()

	res, ok := v.sessions[id]
	if !ok {
		writeProblem(w, http.StatusNotFound, fmt.Sprintf("no session %s", id))
		return
	}

	if res.Status == "processing" {
		if res.pending > 0 {
			res.pending--
		} else {
			v.complete(res)
		}
	}

	writeResource(w, r, http.StatusOK, res)
}

func (v *Verifier) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v.mu.Lock()
	delete(v.sessions, id)
	v.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (v *Verifier) complete(res *resource) {
	result := v.Result
	res.Result = &result
	res.Status = "complete"
}

func nonceFromQuery(r *http.Request) ([]byte, error) {
	q := r.URL.Query()

	if n := q.Get("nonce"); n != "" {
		nonce, err := base64.StdEncoding.DecodeString(n)
		if err != nil {
			return nil, fmt.Errorf("malformed nonce: %w", err)
		}
		return nonce, nil
	}

	sz := defaultNonceSize
	if s := q.Get("nonceSize"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > maxNonceSize {
			return nil, fmt.Errorf("nonce size %q out of range", s)
		}
		sz = v
	}

	nonce := make([]byte, sz)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return nonce, nil
}

func writeResource(w http.ResponseWriter, r *http.Request, status int, res *resource) {
	var (
		body []byte
		err  error
		ct   string
	)

	if strings.Contains(r.Header.Get("Accept"), "+cbor") {
		ct = cborMediaType
		body, err = cbor.Marshal(res)
	} else {
		ct = jsonMediaType
		body, err = json.Marshal(res)
	}

	if err != nil {
		writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	body, _ := json.Marshal(problems.NewDetailedProblem(status, detail))

	w.Header().Set("Content-Type", problems.ProblemMediaType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
