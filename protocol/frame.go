package protocol

import "errors"

var ErrFrameTooLong = errors.New("protocol: frame payload too long")

// Frame is one decoded frame.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// IsAck reports whether f carries no messages.
func (f Frame) IsAck() bool { return len(f.Payload) == 0 }

type scanResult uint8

const (
	scanFrame  scanResult = iota // a valid frame of n bytes is at the front
	scanShort                    // need more data
	scanBad                      // corrupt data at the front, resync required
)

// scan inspects the start of data, which must not begin with a sync byte.
// When requireDest is set the sequence byte must carry MessageDest.
func scan(data []byte, requireDest bool) (n int, res scanResult) {
	if len(data) < MessageLengthMin {
		return 0, scanShort
	}
	n = int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, scanBad
	}
	if requireDest && data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, scanBad
	}
	if len(data) < n {
		return 0, scanShort
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return 0, scanBad
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return 0, scanBad
	}
	return n, scanFrame
}

// skipToSync drops everything up to and including the next sync byte.
// It returns nil when no sync byte is present.
func skipToSync(data []byte) []byte {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:]
		}
	}
	return nil
}

// AppendFrame appends a complete frame carrying payload to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > MessagePayloadMax {
		return dst, ErrFrameTooLong
	}
	n := len(payload) + MessageLengthMin
	start := len(dst)
	dst = append(dst, byte(n), seq)
	dst = append(dst, payload...)
	var trailer [MessageTrailerSize]byte
	putCRC(trailer[:], CRC16(dst[start:]))
	trailer[2] = MessageValueSync
	return append(dst, trailer[:]...), nil
}

// FrameParser decodes frames out of a byte stream, resynchronising on the
// next sync byte after corrupt data. The zero value is ready to use.
type FrameParser struct {
	lost    bool
	Dropped int // frames discarded because of corruption
}

// Parse appends every complete frame at the front of data to frames and
// returns the unconsumed tail. Frame payloads alias data.
func (p *FrameParser) Parse(data []byte, frames []Frame) ([]Frame, []byte) {
	for len(data) > 0 {
		if p.lost {
			data = skipToSync(data)
			if data == nil {
				return frames, nil
			}
			p.lost = false
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		n, res := scan(data, false)
		switch res {
		case scanShort:
			return frames, data
		case scanBad:
			p.lost = true
			p.Dropped++
			continue
		}
		frames = append(frames, Frame{
			Seq:     data[MessagePositionSeq],
			Payload: data[MessageHeaderSize : n-MessageTrailerSize],
		})
		data = data[n:]
	}
	return frames, data
}

// ParseFrames decodes every complete frame in data with a fresh parser.
func ParseFrames(data []byte) ([]Frame, []byte) {
	var p FrameParser
	return p.Parse(data, nil)
}
