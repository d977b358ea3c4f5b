// Package exception contains panic-containment helpers. Consensus entry
// points that handle attacker-controlled input must fail with an error, never
// crash the node.
package exception

import (
	"fmt"
	"runtime/debug"

	"lumen/logx"
)

// Recover converts an in-flight panic into an error. Use in a defer:
//
//	defer exception.Recover("chain.ProcessBlock", &err)
func Recover(name string, err *error) {
	if r := recover(); r != nil {
		logx.Error("panic", name, ": ", r, "\n", string(debug.Stack()))
		*err = fmt.Errorf("panic in %s: %v", name, r)
	}
}

// SafeGo runs fn on a new goroutine, logging instead of crashing on panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.Error("panic", name, ": ", r, "\n", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
