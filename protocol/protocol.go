// Package protocol implements the framed, VLQ-encoded link between the
// keysense firmware and host tools.
//
// Every frame is laid out as
//
//	len(1) seq(1) payload(len-5) crc16(2, big endian) sync(1) = 0x7E
//
// where len counts the whole frame and seq carries 0x10 in its high nibble
// and a 4-bit sequence number in its low nibble. A frame with an empty
// payload is an ACK (or NAK when the sequence is not the one sent). The
// payload is a series of messages, each a VLQ command or response ID
// followed by its VLQ-encoded arguments.
package protocol

// Version is the protocol/firmware version reported by identify.
const Version = "0.3.0"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E
	MessageDest      = 0x10
	MessageSeqMask   = 0x0F

	// MessageMax sizes scratch and output buffers; several frames may be
	// queued before a flush.
	MessageMax = 512
)

// nextSeq returns the sequence following seq, wrapping in the low nibble.
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
