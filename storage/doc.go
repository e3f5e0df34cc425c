// Package storage provides the key-value persistence the session engine keeps
// its token pair, verified flag, branch selection and intended destination in.
//
// # Backends
//
// [Memory] is a mutex-guarded map for tests and single-process embedding.
// [Redis] stores values under a key prefix in any go-redis UniversalClient and
// implements [Store.Take] with GETDEL so single-use values are consumed
// atomically.
//
// # Architecture boundaries
//
// Values are opaque strings. This package does not decode tokens or know what
// any key means beyond the exported key names.
//
// # What this package must NOT do
//
//   - Import goSession, token, jwt or gate (no upward imports).
//   - Log or otherwise expose stored values.
package storage
