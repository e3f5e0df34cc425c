// Package authserver is an in-process reference implementation of the auth
// endpoints the session engine consumes. Tests, the demo binary and the load
// tool run it behind httptest or a real listener.
//
// Passwords are hashed with argon2id. Access tokens are signed by a
// [jwt.Signer]. Refresh tokens are opaque, single-use and grouped into
// families: presenting a rotated token again revokes the whole family and
// answers TOKEN_REUSE_DETECTED.
//
// [jwt.Signer]: github.com/MrEthical07/goSession/jwt.Signer
package authserver
