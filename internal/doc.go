// Package internal holds helpers that are private to goSession.
//
// # Sub-packages
//
//   - clock: real and fake time sources
//   - loop: ticker-driven background loops
//   - authserver: an in-process auth server for tests, examples and load tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
