// Package middleware exposes HTTP adapters over a goSession.Client.
//
//   - [Guard] runs the access decision for each request and answers
//     redirects itself.
//   - [TrackActivity] turns requests into activity signals so the idle
//     clock only runs while the visitor is away.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Client calls. All decisions are
// delegated to Client.Decide; the middleware never reads tokens or storage.
package middleware
