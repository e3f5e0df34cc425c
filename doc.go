// Package goSession is a client-side session and access-control engine. It
// owns the token lifecycle of one visitor, renews tokens in the background,
// ends idle sessions and decides for every navigation whether the requested
// page may be rendered or where the visitor goes instead.
//
// A [Client] is assembled with [Builder] and is safe for concurrent use after
// [Builder.Build]. Call [Client.Initialize] once to restore a persisted
// session, then drive it with [Client.Login], [Client.Navigate] and
// [Client.Logout].
//
// # Architecture boundaries
//
// goSession is the public surface. Leaf packages do the work and never import
// it:
//
//   - storage: key-value persistence (memory, Redis)
//   - token: the persisted token pair and its expiry
//   - refresh: coalesced token renewal
//   - activity: activity signals and the idle tracker
//   - policy: the route table
//   - gate: the pure access decision
//   - authapi: the auth server contract and its HTTP client
//
// # Errors
//
// Every error a Client returns matches one of the sentinels in this package
// through errors.Is. An access denial is a [gate.Decision], never an error.
package goSession
