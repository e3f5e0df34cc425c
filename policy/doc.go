// Package policy maps navigation paths to access policies.
//
// A [Table] is an ordered, frozen list of [Policy] values. [Table.Resolve]
// tries an exact pattern match first, then the first registered pattern whose
// segments match one for one, where a bracketed segment such as [id] matches
// any single segment. Paths nothing matches get the policy registered for "/".
//
// Resolution is a pure function of the path and the table.
package policy
