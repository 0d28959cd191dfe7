// Package signals runs registered handlers when the process is asked to
// reload its configuration or shut down.
package signals

import (
	"os"
	"os/signal"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered so a signal delivered while no receiver is ready is kept.
var sigChan = make(chan os.Signal, 1)

// Handler is a function called when a signal is received.
type Handler func()

// HandlerID identifies a registration for Deregister.
type HandlerID int

type registeredHandler struct {
	id HandlerID
	fn Handler
}

type handlerList struct {
	kind     string
	handlers []registeredHandler
}

var (
	mu           sync.RWMutex
	reloaders    = &handlerList{kind: "reload"}
	interrupters = &handlerList{kind: "interrupt"}
	nextID       HandlerID
	stopOnce     sync.Once
)

func (l *handlerList) add(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	l.handlers = append(l.handlers, registeredHandler{id: id, fn: f})
	return id
}

func (l *handlerList) remove(id HandlerID) {
	mu.Lock()
	defer mu.Unlock()
	for i, h := range l.handlers {
		if h.id == id {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			return
		}
	}
}

// run calls every handler in registration order. A panicking handler is
// logged and does not stop the others.
func (l *handlerList) run() {
	mu.RLock()
	snapshot := make([]registeredHandler, len(l.handlers))
	copy(snapshot, l.handlers)
	mu.RUnlock()
	for _, h := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logger.Fields{
						"at":    "signals.run",
						"kind":  l.kind,
						"panic": r,
					}).Error("signal handler panicked")
				}
			}()
			h.fn()
		}()
	}
}

// RegisterReloadHandler registers f to run on SIGHUP. Nil handlers are
// ignored and return -1.
func RegisterReloadHandler(f Handler) HandlerID {
	return reloaders.add(f)
}

// DeregisterReloadHandler removes a reload handler.
func DeregisterReloadHandler(id HandlerID) {
	reloaders.remove(id)
}

// RegisterInterruptHandler registers f to run on SIGINT or SIGTERM. Nil
// handlers are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID {
	return interrupters.add(f)
}

// DeregisterInterruptHandler removes an interrupt handler.
func DeregisterInterruptHandler(id HandlerID) {
	interrupters.remove(id)
}

// Handle dispatches signals until StopHandle is called.
func Handle() {
	for sig := range sigChan {
		switch {
		case isReload(sig):
			log.WithField("signal", sig.String()).Info("reloading")
			reloaders.run()
		case isInterrupt(sig):
			log.WithField("signal", sig.String()).Info("shutting down")
			interrupters.run()
		}
	}
}

// StopHandle makes Handle return. Only the first call has an effect.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
