// Package progress carries human-readable status lines from long-running
// operations back to the caller. It is the only intermediate output surface
// besides database writes.
package progress

import "fmt"

// Func receives one status line per meaningful transition. A nil Func is
// always valid.
type Func func(msg string)

// Notify calls f if it is non-nil.
func Notify(f Func, format string, args ...any) {
	if f == nil {
		return
	}
	if len(args) == 0 {
		f(format)
		return
	}
	f(fmt.Sprintf(format, args...))
}
