package util

import (
	"fmt"
)

// Panicf panics with a formatted message. It marks programming errors and
// protocol violations that callers are not expected to recover from.
func Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
