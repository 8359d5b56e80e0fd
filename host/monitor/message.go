package monitor

import (
	"fmt"

	"keysense/protocol"
)

// Message is one decoded board message.
type Message struct {
	ID   uint16
	Name string
	Args map[string]int32
	Data []byte // the byte-string argument, if the format has one
}

// Uint returns an argument reinterpreted as unsigned.
func (m Message) Uint(name string) uint32 { return uint32(m.Args[name]) }

// Int returns an argument as signed.
func (m Message) Int(name string) int32 { return m.Args[name] }

// Bool reports whether an argument is non-zero.
func (m Message) Bool(name string) bool { return m.Args[name] != 0 }

// Decode splits a frame payload into messages. Decoding stops at the first
// message whose ID is not in the dictionary, since its length is unknown.
func (d *Dictionary) Decode(payload []byte) ([]Message, error) {
	var msgs []Message
	data := payload
	for len(data) > 0 {
		id, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return msgs, err
		}
		f, ok := d.Response(uint16(id))
		if !ok {
			return msgs, fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
		}

		m := Message{ID: f.ID, Name: f.Name, Args: make(map[string]int32, len(f.Params))}
		for _, p := range f.Params {
			if p.Kind == ParamBytes {
				b, err := protocol.DecodeVLQBytes(&data)
				if err != nil {
					return msgs, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
				}
				m.Data = append([]byte(nil), b...)
				continue
			}
			v, err := protocol.DecodeVLQInt(&data)
			if err != nil {
				return msgs, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
			m.Args[p.Name] = v
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Encode resolves a command by name and returns its ID and an argument
// writer for HostTransport.SendCommand. Only integer parameters can be sent.
func (d *Dictionary) Encode(name string, args ...uint32) (uint16, func(protocol.OutputBuffer), error) {
	f, ok := d.Command(name)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
	}
	if len(args) != len(f.Params) {
		return 0, nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, name, len(f.Params), len(args))
	}
	for _, p := range f.Params {
		if p.Kind != ParamInt {
			return 0, nil, fmt.Errorf("%s: parameter %s is not an integer", name, p.Name)
		}
	}

	return f.ID, func(output protocol.OutputBuffer) {
		for _, v := range args {
			protocol.EncodeVLQUint(output, v)
		}
	}, nil
}
