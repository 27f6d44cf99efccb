// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package main implements crclient, a command line client driving a single
// challenge-response attestation session.
package main

import (
	"fmt"
	"os"

	"github.com/veraison/crclient/status"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the root command and maps its outcome to an exit code
func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "crclient: %v\n", err)
	}

	return int(status.Normalize(err))
}
