package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrClosed      = errors.New("protocol: transport closed")
	ErrAckTimeout  = errors.New("protocol: ACK timeout")
	ErrNoResponse  = errors.New("protocol: response timeout")
	ErrSeqMismatch = errors.New("protocol: ACK sequence mismatch")
)

// DefaultAckTimeout bounds how long SendCommand waits for an ACK.
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler receives every response message. data holds the message
// arguments and the rest of the frame; the handler must consume only its own
// arguments.
type ResponseHandler func(msgID uint16, data *[]byte) error

// HostTransport is the host end of the link. It sends one command frame at a
// time, waits for its ACK and delivers incoming response frames to a handler
// and to a bounded channel.
type HostTransport struct {
	port io.ReadWriteCloser

	mu  sync.Mutex // serializes commands; guards seq
	seq uint8

	hmu     sync.Mutex
	handler ResponseHandler

	acks      chan Frame
	responses chan Frame

	// Owned by the reader goroutine
	parser  FrameParser
	input   *FifoBuffer
	dropped int64

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewHostTransport starts a background reader on port.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		seq:       MessageDest,
		acks:      make(chan Frame, 1),
		responses: make(chan Frame, 32),
		input:     NewFifoBuffer(4 * MessageMax),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for its ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

// SendCommandWithTimeout is SendCommand with an explicit ACK timeout.
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	msg, err := AppendFrame(nil, t.seq, scratch.Result())
	if err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}

	// Drop a stale ACK left over from an earlier timeout
	select {
	case <-t.acks:
	default:
	}

	if n, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	} else if n != len(msg) {
		return fmt.Errorf("write command %d: short write %d/%d", cmdID, n, len(msg))
	}

	return t.waitForAck(timeout)
}

// waitForAck must be called with mu held.
func (t *HostTransport) waitForAck(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-t.acks:
		want := nextSeq(t.seq)
		if ack.Seq != want {
			return fmt.Errorf("%w: want 0x%02x, got 0x%02x", ErrSeqMismatch, want, ack.Seq)
		}
		t.seq = want
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrAckTimeout, timeout)
	case <-t.stop:
		return ErrClosed
	}
}

// ReceiveResponse returns the next response frame.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-t.responses:
		return f, nil
	case <-timer.C:
		return Frame{}, fmt.Errorf("%w after %v", ErrNoResponse, timeout)
	case <-t.stop:
		return Frame{}, ErrClosed
	}
}

// Responses exposes the response channel for select loops.
func (t *HostTransport) Responses() <-chan Frame { return t.responses }

// SetResponseHandler registers a handler called from the reader goroutine
// for every message of every response frame.
func (t *HostTransport) SetResponseHandler(h ResponseHandler) {
	t.hmu.Lock()
	t.handler = h
	t.hmu.Unlock()
}

// Sequence returns the sequence the next command will carry.
func (t *HostTransport) Sequence() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Dropped returns the number of corrupt frames discarded so far.
func (t *HostTransport) Dropped() int {
	return int(atomic.LoadInt64(&t.dropped))
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 256)
	var frames []Frame
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}

		t.input.Write(buf[:n])
		var rest []byte
		frames, rest = t.parser.Parse(t.input.Data(), frames[:0])
		atomic.StoreInt64(&t.dropped, int64(t.parser.Dropped))

		t.hmu.Lock()
		handler := t.handler
		t.hmu.Unlock()

		for _, f := range frames {
			// Payloads alias the input buffer, which is compacted below
			f.Payload = append([]byte(nil), f.Payload...)
			t.deliver(f, handler)
		}
		t.input.Pop(t.input.Available() - len(rest))
	}
}

func (t *HostTransport) deliver(f Frame, handler ResponseHandler) {
	if f.IsAck() {
		select {
		case t.acks <- f:
		default:
		}
		return
	}

	if handler != nil {
		data := f.Payload
		for len(data) > 0 {
			id, err := DecodeVLQUint(&data)
			if err != nil {
				break
			}
			if err := handler(uint16(id), &data); err != nil {
				break
			}
		}
	}

	select {
	case t.responses <- f:
	default:
		// Full: drop the oldest
		select {
		case <-t.responses:
		default:
		}
		t.responses <- f
	}
}

// Close stops the reader and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.done
	})
	return err
}

// Reset rewinds the command sequence and drains queued frames.
func (t *HostTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq = MessageDest
	for len(t.acks) > 0 {
		<-t.acks
	}
	for len(t.responses) > 0 {
		<-t.responses
	}
}
