// Package jwt decodes access-token claims for the session engine and signs
// tokens for the reference auth server.
//
// # Decoding
//
// [Decode] reads the payload segment of a compact JWT without verifying its
// signature. Verification is the issuing server's job; the client only needs
// the expiry, role and verification flag to schedule renewals and answer
// routing questions.
//
// # Signing
//
// [Signer] issues and verifies HS256 or Ed25519 tokens. It exists for the
// reference server used by tests, the demo and the load tool.
//
// # What this package must NOT do
//
//   - Persist tokens or claims.
//   - Import goSession or any storage package.
package jwt
