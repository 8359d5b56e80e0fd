package protocol

import "sync/atomic"

// CommandHandler decodes and runs one command whose ID has already been
// read. It must consume exactly its own arguments from *data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link. It acknowledges host frames,
// dispatches their commands and frames outgoing responses.
//
// Receive runs from the main loop; SendCommand may also be called from the
// scan loop, so the state words are accessed atomically.
type Transport struct {
	synced  uint32 // 1 while in sync
	nextSeq uint32 // next sequence expected from the host, 0x10-0x1F

	output  OutputBuffer
	handler CommandHandler

	onReset func()
	onFlush func()

	errors uint32 // handler errors since reset
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		synced:  1,
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive consumes every complete frame available in input.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	start := len(data)

	for len(data) > 0 {
		if !t.Synced() {
			data = skipToSync(data)
			if data == nil {
				break
			}
			t.setSynced(true)
			t.sendAck()
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n, res := scan(data, true)
		if res == scanShort {
			break
		}
		if res == scanBad {
			t.setSynced(false)
			continue
		}

		seq := data[MessagePositionSeq]
		payload := data[MessageHeaderSize : n-MessageTrailerSize]
		data = data[n:]

		expected := uint8(atomic.LoadUint32(&t.nextSeq))
		if seq == MessageDest && expected != MessageDest {
			// Host restarted its sequence
			atomic.StoreUint32(&t.nextSeq, MessageDest)
			expected = MessageDest
			if t.onReset != nil {
				t.onReset()
			}
		}

		if seq == expected {
			atomic.StoreUint32(&t.nextSeq, uint32(nextSeq(seq)))
			t.dispatch(payload)
		}
		// Sent on mismatch too, where it acts as a NAK
		t.sendAck()
	}

	if consumed := start - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) dispatch(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynced(false)
		}
	}()

	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			t.setSynced(false)
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			// The rest of the frame cannot be decoded past a failed command
			atomic.AddUint32(&t.errors, 1)
			return
		}
	}
}

// sendAck writes an empty frame with the next expected sequence and flushes
// it ahead of any queued responses.
func (t *Transport) sendAck() {
	seq := uint8(atomic.LoadUint32(&t.nextSeq))
	var ack [MessageLengthMin]byte
	ack[0] = MessageLengthMin
	ack[1] = seq
	putCRC(ack[2:4], CRC16(ack[:2]))
	ack[4] = MessageValueSync
	t.output.Output(ack[:])

	if t.onFlush != nil {
		t.onFlush()
	}
}

// EncodeFrame writes one frame whose payload is produced by body.
func (t *Transport) EncodeFrame(body func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(atomic.LoadUint32(&t.nextSeq))})

	body(t.output)

	n := len(t.output.DataSince(start)) + MessageTrailerSize
	t.output.Update(start, uint8(n))

	var trailer [MessageTrailerSize]byte
	putCRC(trailer[:], CRC16(t.output.DataSince(start)))
	trailer[2] = MessageValueSync
	t.output.Output(trailer[:])
}

// SendCommand frames one message with the given ID and arguments.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, e.g. after a USB reconnect.
func (t *Transport) Reset() {
	t.setSynced(true)
	atomic.StoreUint32(&t.nextSeq, MessageDest)
	atomic.StoreUint32(&t.errors, 0)
	if t.onReset != nil {
		t.onReset()
	}
}

// HandlerErrors returns the number of commands that failed since Reset.
func (t *Transport) HandlerErrors() uint32 {
	return atomic.LoadUint32(&t.errors)
}

// SetResetCallback registers fn to run when the host restarts its sequence.
func (t *Transport) SetResetCallback(fn func()) { t.onReset = fn }

// SetFlushCallback registers fn to push ACKs out immediately.
func (t *Transport) SetFlushCallback(fn func()) { t.onFlush = fn }

func (t *Transport) Synced() bool {
	return atomic.LoadUint32(&t.synced) != 0
}

func (t *Transport) setSynced(v bool) {
	var x uint32
	if v {
		x = 1
	}
	atomic.StoreUint32(&t.synced, x)
}
