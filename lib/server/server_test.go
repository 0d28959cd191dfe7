package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-i2p/go-envelope/lib/associated"
	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, maxConnections int) (*Server, string) {
	t.Helper()
	cfg := &config.EnvelopeConfig{
		Transport: config.DefaultTransportConfig,
		Stream:    config.DefaultStreamConfig,
		Serve: config.ServeConfig{
			Socket:         filepath.Join(t.TempDir(), "envelope.sock"),
			MaxConnections: maxConnections,
		},
	}
	l, err := net.Listen("unix", cfg.Serve.Socket)
	require.NoError(t, err)

	s := New(cfg, Echo{})
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		assert.NoError(t, <-done)
	})
	return s, cfg.Serve.Socket
}

func dial(t *testing.T, socket string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func request(t *testing.T, name, flags uint32, id uint64, payload string) *message.Message {
	t.Helper()
	m, err := message.New(name, flags, len(payload), 0, nil)
	require.NoError(t, err)
	if header.ResponseFlags(flags) {
		m.SetRequestID(id)
	}
	copy(m.Payload(), payload)
	return m
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := transport.ReadFrame(conn, config.DefaultStreamConfig)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEchoCall(t *testing.T) {
	_, socket := startServer(t, 0)
	conn := dial(t, socket)

	reply, err := Call(testContext(t), conn, config.DefaultStreamConfig,
		request(t, 12, header.FlagExpectsResponse|header.FlagIsSync, 77, "ping"))
	require.NoError(t, err)
	assert.Equal(t, uint32(12), reply.Name())
	assert.True(t, reply.IsResponse())
	assert.True(t, reply.IsSync())
	assert.Equal(t, uint64(77), reply.RequestID())
	assert.Equal(t, []byte("ping"), reply.Payload())
}

func TestFireAndForgetGetsNoReply(t *testing.T) {
	_, socket := startServer(t, 0)
	conn := dial(t, socket)

	require.NoError(t, Send(conn, request(t, 1, 0, 0, "note")))
	reply, err := Call(testContext(t), conn, config.DefaultStreamConfig,
		request(t, 2, header.FlagExpectsResponse, 5, "q"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), reply.Name())
}

func TestCallRequiresExpectsResponse(t *testing.T) {
	_, socket := startServer(t, 0)
	conn := dial(t, socket)
	m := request(t, 1, 0, 0, "x")
	_, err := Call(testContext(t), conn, config.DefaultStreamConfig, m)
	assert.ErrorIs(t, err, ErrNoResponseExpected)
	assert.True(t, m.IsNull())
}

func TestUnsolicitedResponseClosesConnection(t *testing.T) {
	_, socket := startServer(t, 0)
	conn := dial(t, socket)

	require.NoError(t, Send(conn, request(t, 1, header.FlagIsResponse, 9, "")))
	expectClosed(t, conn)
}

func TestMalformedHeaderClosesConnection(t *testing.T) {
	_, socket := startServer(t, 0)
	conn := dial(t, socket)

	frame := make([]byte, transport.FrameHeaderSize+header.SizeV0)
	binary.LittleEndian.PutUint32(frame, header.SizeV0)
	binary.LittleEndian.PutUint32(frame[transport.FrameHeaderSize:], header.SizeV0+1)
	_, err := conn.Write(frame)
	require.NoError(t, err)
	expectClosed(t, conn)
}

func TestConnectionLimit(t *testing.T) {
	s, socket := startServer(t, 1)
	first := dial(t, socket)
	_, err := Call(testContext(t), first, config.DefaultStreamConfig,
		request(t, 1, header.FlagExpectsResponse, 1, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, s.ActiveConnections())

	second := dial(t, socket)
	expectClosed(t, second)
}

func TestCallHonoursContext(t *testing.T) {
	client, peer := net.Pipe()
	defer client.Close()
	defer peer.Close()
	go func() {
		_, _ = transport.ReadFrame(peer, config.DefaultStreamConfig)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Call(ctx, client, config.DefaultStreamConfig,
		request(t, 1, header.FlagExpectsResponse, 1, ""))
	assert.Error(t, err)
}

func TestCallSkipsUnrelatedFrames(t *testing.T) {
	client, peer := net.Pipe()
	defer client.Close()
	defer peer.Close()
	go func() {
		if _, err := transport.ReadFrame(peer, config.DefaultStreamConfig); err != nil {
			return
		}
		for _, id := range []uint64{41, 42} {
			reply, err := message.New(3, header.FlagIsResponse, 0, 0, nil)
			if err != nil {
				return
			}
			reply.SetRequestID(id)
			if Send(peer, reply) != nil {
				return
			}
		}
	}()

	reply, err := Call(testContext(t), client, config.DefaultStreamConfig,
		request(t, 3, header.FlagExpectsResponse, 42, ""))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), reply.RequestID())
}

func TestEchoInterfaceIDs(t *testing.T) {
	local, _ := associated.NewGroupPair()
	m, err := message.New(1, header.FlagExpectsResponse, 0, 1, nil)
	require.NoError(t, err)
	m.AddAssociatedEndpointHandle(associated.NewPendingEndpointHandle("sub"))
	m.SerializeAssociatedEndpointHandles(local)

	a, b := transport.NewSerializingPipe()
	require.NoError(t, message.WriteMessage(a, m))
	req, err := message.ReadMessage(b)
	require.NoError(t, err)
	_, err = Echo{}.Handle(context.Background(), req)
	assert.ErrorIs(t, err, ErrBadRequest)

	// a reserved but unwritten table is not a table
	m, err = message.New(1, header.FlagExpectsResponse, 0, 1, nil)
	require.NoError(t, err)
	require.NoError(t, message.WriteMessage(a, m))
	req, err = message.ReadMessage(b)
	require.NoError(t, err)
	reply, err := Echo{}.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, header.Version1, reply.Version())
}
