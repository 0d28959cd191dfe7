package transport

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// FrameHeaderSize is the length prefix in front of every frame.
const FrameHeaderSize = 4

// WriteFrame serializes o if needed and writes it to w as one frame.
// Handles cannot cross a byte stream, so objects carrying any are rejected
// with ErrInvalidArgument and left with the caller. On success o is consumed.
func WriteFrame(w io.Writer, o *Object) error {
	if o == nil || o.state == nil {
		return ErrInvalidArgument
	}
	if err := o.Serialize(); err != nil && !errors.Is(err, ErrFailedPrecondition) {
		return err
	}
	if o.NumHandles() > 0 {
		return oops.Wrapf(ErrInvalidArgument, "cannot frame a message carrying %d handles", o.NumHandles())
	}
	data := o.state.(*serializedState).data
	if uint64(len(data)) > 1<<32-1 {
		return oops.Wrapf(ErrOutOfRange, "frame of %d bytes", len(data))
	}

	frame := make([]byte, FrameHeaderSize+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[FrameHeaderSize:], data)
	if _, err := w.Write(frame); err != nil {
		return oops.Wrapf(err, "writing %d byte frame", len(frame))
	}
	o.state = nil
	return nil
}

// ReadFrame reads one frame from r and returns it as a serialized object.
// Frames larger than cfg.MaxFrameBytes are rejected before any payload is read.
func ReadFrame(r io.Reader, cfg config.StreamConfig) (*Object, error) {
	var prefix [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(prefix[:])
	if uint64(n) > uint64(cfg.MaxFrameBytes) {
		log.WithFields(logger.Fields{
			"at":        "transport.ReadFrame",
			"frame":     n,
			"max_frame": cfg.MaxFrameBytes,
		}).Warn("rejecting oversized frame")
		return nil, oops.Wrapf(ErrOutOfRange, "frame of %d bytes exceeds limit %d", n, cfg.MaxFrameBytes)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, oops.Wrapf(err, "reading %d byte frame body", n)
	}
	return NewSerializedObject(data, nil)
}
