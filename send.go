package main

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/go-i2p/go-envelope/lib/server"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	socket    string
	dump      string
	name      uint32
	payload   string
	requestID uint64
	sync      bool
	noReply   bool
	timeout   time.Duration
}

func newSendCmd() *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build a message and send it to a server, or dump it to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildMessage(opts)
			if err != nil {
				return err
			}
			if opts.dump != "" {
				return dumpMessage(opts.dump, m)
			}
			socket := opts.socket
			if socket == "" {
				socket = cfg.Serve.Socket
			}
			conn, err := net.Dial("unix", socket)
			if err != nil {
				m.Reset()
				return oops.Wrapf(err, "connecting to %s", socket)
			}
			defer conn.Close()

			if opts.noReply {
				return server.Send(conn, m)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			reply, err := server.Call(ctx, conn, cfg.Stream, m)
			if err != nil {
				return err
			}
			defer reply.Reset()
			return renderMessage(cmd.OutOrStdout(), "reply", reply)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.socket, "socket", "", "server socket (default serve.socket from config)")
	f.StringVar(&opts.dump, "dump", "", "write the framed message to this file instead of sending it")
	f.Uint32Var(&opts.name, "name", 0, "message name")
	f.StringVar(&opts.payload, "payload", "", "payload bytes")
	f.Uint64Var(&opts.requestID, "request-id", 1, "request id")
	f.BoolVar(&opts.sync, "sync", false, "mark the request synchronous")
	f.BoolVar(&opts.noReply, "no-reply", false, "send without expecting a response")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "how long to wait for the reply")
	return cmd
}

func buildMessage(opts sendOptions) (*message.Message, error) {
	var flags uint32
	if !opts.noReply {
		flags |= header.FlagExpectsResponse
	}
	if opts.sync {
		flags |= header.FlagIsSync
	}
	m, err := message.New(opts.name, flags, len(opts.payload), 0, nil)
	if err != nil {
		return nil, err
	}
	if header.ResponseFlags(flags) {
		m.SetRequestID(opts.requestID)
	}
	copy(m.Payload(), opts.payload)
	return m, nil
}

func dumpMessage(path string, m *message.Message) error {
	f, err := os.Create(path)
	if err != nil {
		m.Reset()
		return oops.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	obj := m.TakeTransportHandle()
	if err := transport.WriteFrame(f, obj); err != nil {
		_ = obj.Close()
		return err
	}
	log.WithField("path", path).Debug("wrote message frame")
	return nil
}
