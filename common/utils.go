package common

import "fmt"

// Assert checks a condition and panics if it is false.
//
// Assertions guard internal invariants only: truths about operator state that must hold
// if the engine itself is correct (e.g. a cursor never goes backwards, a span computed by
// a matcher lies inside its attribute text). Anything a caller can get wrong, such as a
// misconfigured operator or an unknown attribute name, is reported with a TextDBError
// instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
