// Package token owns the persisted access/refresh token pair and is the single
// authority for whether the current visitor holds a usable session.
//
// # Architecture boundaries
//
// [Store] decodes access tokens with [jwt.Decode] (no signature check) and
// persists the pair through a [storage.Store]. ExpiresAt is always derived
// from the access token's exp claim. Decode and storage failures on the read
// path are logged and reported as "no session"; only [Store.SetTokens] returns
// errors.
//
// # What this package must NOT do
//
//   - Call the network. Renewal belongs to package refresh.
//   - Log token material.
//
// [jwt.Decode]: github.com/MrEthical07/goSession/jwt.Decode
// [storage.Store]: github.com/MrEthical07/goSession/storage.Store
package token
