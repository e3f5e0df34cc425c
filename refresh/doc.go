// Package refresh coordinates access-token renewal so that at most one
// refresh request is in flight at any time.
//
// # Coalescing
//
// Every caller of [Coordinator.Refresh] that arrives while a renewal is
// running attaches to that renewal and receives the same outcome. The network
// call runs on a context detached from any single caller, so one caller giving
// up never fails the others. Once the call completes the next Refresh starts a
// fresh attempt.
//
// # Failure policy
//
// A failed renewal clears the token store and is never retried. A refresh
// token the server reports as already consumed surfaces as
// [ErrTokenReuseDetected], which also matches [ErrRefreshFailed].
//
// # What this package must NOT do
//
//   - Log out, navigate or otherwise change session state beyond the token
//     store. Callers decide what a failure means.
package refresh
