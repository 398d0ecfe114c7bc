// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic XSG headers, acquisition data and
// MAT-file encoding so that parser and merge tests can build inputs in
// memory instead of checking binary files into the repository.
package testutil
