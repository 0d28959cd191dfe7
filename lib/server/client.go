package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ErrNoResponseExpected is returned by Call for requests without
// FlagExpectsResponse.
var ErrNoResponseExpected = errors.New("request does not expect a response")

// Call sends req on conn and blocks until the reply carrying the same
// request id arrives. Frames that are not that reply are discarded. The
// reply is captured through a sync response context on ctx's dispatch
// stack. req is consumed either way.
func Call(ctx context.Context, conn net.Conn, cfg config.StreamConfig, req *message.Message) (*message.Message, error) {
	if !req.ExpectsResponse() {
		req.Reset()
		return nil, ErrNoResponseExpected
	}
	id := req.RequestID()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	obj := req.TakeTransportHandle()
	if err := transport.WriteFrame(conn, obj); err != nil {
		_ = obj.Close()
		return nil, oops.Wrapf(err, "sending request %d", id)
	}

	stack := message.DispatchStackFrom(ctx)
	if stack == nil {
		stack = message.NewDispatchStack()
	}
	waiting := stack.EnterSyncResponse()
	defer waiting.Exit()

	for waiting.Response().IsNull() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		robj, err := transport.ReadFrame(conn, cfg)
		if err != nil {
			return nil, oops.Wrapf(err, "waiting for reply to request %d", id)
		}
		reply := message.FromTransport(robj)
		if reply.IsNull() {
			return nil, oops.Errorf("unreadable reply to request %d", id)
		}
		if err := reply.Validate(); err != nil {
			reply.Reset()
			return nil, oops.Wrapf(err, "invalid reply to request %d", id)
		}
		if !reply.IsResponse() || reply.RequestID() != id {
			log.WithFields(logger.Fields{
				"at":         "server.Call",
				"request_id": id,
				"name":       reply.Name(),
			}).Warn("discarding unexpected message while waiting for reply")
			reply.Reset()
			continue
		}
		stack.SetCurrentSyncResponseMessage(reply)
	}
	return waiting.TakeResponse(), nil
}

// Send writes m on conn without waiting for anything. m is consumed.
func Send(conn net.Conn, m *message.Message) error {
	name := m.Name()
	obj := m.TakeTransportHandle()
	if err := transport.WriteFrame(conn, obj); err != nil {
		_ = obj.Close()
		return oops.Wrapf(err, "sending message %d", name)
	}
	return nil
}
