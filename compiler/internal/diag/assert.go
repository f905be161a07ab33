// Package diag holds the internal-invariant assertion helper used by
// irgen. It is not part of the public API.
package diag

import (
	"fmt"

	"tlog.app/go/loc"
)

// Assertf panics tagged with the caller's location if cond is false. It is
// reserved for programmer-bug invariants (a malformed AST or an unknown op
// tag reaching irgen) — never for selection gaps or user-facing
// errors, which are warnings or returned errors instead, per SPEC_FULL.md §7.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf("%s: assertion failed: %s", loc.Caller(1), fmt.Sprintf(format, args...)))
}
