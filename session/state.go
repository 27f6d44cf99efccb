// Copyright 2022 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package session

import "fmt"

// State is the position of a Session in the challenge-response protocol
type State int

const (
	Uninitialized State = iota
	Open
	EvidenceSubmitted
	Closed
	Faulted
)

func (o State) String() string {
	switch o {
	case Uninitialized:
		return "uninitialized"
	case Open:
		return "open"
	case EvidenceSubmitted:
		return "evidence submitted"
	case Closed:
		return "closed"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(o))
	}
}

// Terminal returns true for states from which the protocol cannot progress
func (o State) Terminal() bool {
	return o == Closed || o == Faulted
}
