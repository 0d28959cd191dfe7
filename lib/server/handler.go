package server

import (
	"context"
	"errors"

	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/samber/oops"
)

// ErrBadRequest marks handler errors that are the sender's fault. The
// request is reported as a bad message and the connection is closed.
var ErrBadRequest = errors.New("bad request")

// Handler produces the reply to a request. A nil reply sends nothing.
type Handler interface {
	Handle(ctx context.Context, req *message.Message) (*message.Message, error)
}

// Echo replies to every request that expects a response with a copy of
// its payload.
type Echo struct{}

// Compile-time interface satisfaction check
var _ Handler = Echo{}

func (Echo) Handle(_ context.Context, req *message.Message) (*message.Message, error) {
	if req.IsResponse() {
		return nil, oops.Wrapf(ErrBadRequest, "unsolicited response to request %d", req.RequestID())
	}
	if req.PayloadNumInterfaceIDs() > 0 {
		return nil, oops.Wrapf(ErrBadRequest, "associated interfaces cannot cross a stream")
	}
	if !req.ExpectsResponse() {
		return nil, nil
	}

	payload := req.Payload()
	flags := header.FlagIsResponse | req.Flags()&header.FlagIsSync
	reply, err := message.New(req.Name(), flags, len(payload), 0, nil)
	if err != nil {
		return nil, err
	}
	reply.SetRequestID(req.RequestID())
	copy(reply.Payload(), payload)
	return reply, nil
}

// receiver adapts a Handler to message.Dispatch and keeps its reply.
type receiver struct {
	handler Handler
	reply   *message.Message
	err     error
}

func (r *receiver) Accept(ctx context.Context, m *message.Message) bool {
	reply, err := r.handler.Handle(ctx, m)
	if errors.Is(err, ErrBadRequest) {
		message.ReportBadMessage(ctx, err.Error())
		return false
	}
	if err != nil {
		r.err = err
		return false
	}
	r.reply = reply
	return true
}

func (r *receiver) PrefersSerializedMessages() bool {
	return true
}
