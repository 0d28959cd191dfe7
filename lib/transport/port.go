package transport

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/go-i2p/crypto/rand"
)

// PortName identifies one endpoint of a pipe.
type PortName uint64

func (p PortName) String() string {
	return fmt.Sprintf("%016x", uint64(p))
}

var fallbackPortCounter atomic.Uint64

// newPortName draws a random 64-bit name. If the system CSPRNG fails a
// process-local counter is used instead; names only need to be unique.
func newPortName() PortName {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		log.WithError(err).Warn("crypto/rand failed, using counter-based port name")
		return PortName(1<<63 | fallbackPortCounter.Add(1))
	}
	return PortName(binary.LittleEndian.Uint64(b[:]))
}
