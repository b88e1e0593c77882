// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. It centralizes the
// raw stderr write that happens outside the structured logger: reporting
// the error that ended main() and exiting with the right code.
//
// An error that carries an exit code (any error in the chain with an
// ExitCode() int method, such as [ExitError]) exits with that code;
// every other error exits with 1.
package process
