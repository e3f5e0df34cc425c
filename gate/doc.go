// Package gate decides, for one navigation, whether the target may render or
// where the visitor goes instead.
//
// [Decide] is pure: it reads a resolved policy, the requested path and a
// session [Snapshot], and returns a [Decision]. Side effects the decision
// asks for (remembering or consuming the intended destination) are applied by
// the caller.
//
// Rules are evaluated in order and the first match wins:
//
//  1. public page, anonymous visitor: render
//  2. protected page, anonymous visitor: remember the path, go to the policy redirect
//  3. role not allowed: go to the role home
//  4. branch mismatch: rewrite the branch, or go to the policy redirect when none is recorded
//  5. verified email required but missing: go to the verification page
//  6. verification page, already verified: go to the intended destination or role home
//  7. public page, signed-in visitor: go to the role home
//  8. render
package gate
