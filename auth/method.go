// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"
)

// Method selects how requests to the verifier are authorized. It can be used
// directly as a command line flag value.
type Method string

const (
	MethodPassthrough Method = "passthrough"
	MethodBasic       Method = "basic"
	MethodOauth2      Method = "oauth2"
)

var _ pflag.Value = (*Method)(nil)

// names maps every accepted spelling to its Method
var names = map[string]Method{
	"none":        MethodPassthrough,
	"passthrough": MethodPassthrough,
	"basic":       MethodBasic,
	"oauth2":      MethodOauth2,
}

// Methods returns the accepted method names, sorted
func Methods() []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (o *Method) String() string {
	return string(*o)
}

func (o *Method) Set(v string) error {
	m, ok := names[v]
	if !ok {
		return fmt.Errorf("unexpected Method %q", v)
	}
	*o = m
	return nil
}

func (o *Method) Type() string {
	return "method"
}
