//go:build windows

package signals

import (
	"os"
	"os/signal"
)

func init() {
	signal.Notify(sigChan, os.Interrupt)
}

func isReload(os.Signal) bool {
	return false
}

func isInterrupt(sig os.Signal) bool {
	return sig == os.Interrupt
}
