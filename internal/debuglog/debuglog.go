// Package debuglog gates verbose trace output behind a process-wide switch.
package debuglog

import (
	"log"
	"sync/atomic"
)

var enabled atomic.Bool

// SetEnabled turns debug output on or off.
func SetEnabled(on bool) { enabled.Store(on) }

func Enabled() bool { return enabled.Load() }

// Printf logs through the standard logger when debug output is on.
func Printf(format string, args ...any) {
	if enabled.Load() {
		log.Printf(format, args...)
	}
}
