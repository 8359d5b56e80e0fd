package core

import (
	"strings"
	"testing"

	"keysense/protocol"
)

// sent is one decoded response captured from the global transport.
type sent struct {
	name string
	args map[string]int32
	data []byte
}

type harness struct {
	t   *testing.T
	out *protocol.ScratchOutput
}

// newHarness resets the global registry, dictionary and transport.
func newHarness(t *testing.T) *harness {
	t.Helper()
	globalRegistry = NewCommandRegistry()
	globalDictionary = NewDictionary(globalRegistry)
	h := &harness{t: t, out: protocol.NewScratchOutput()}
	SetGlobalTransport(protocol.NewTransport(h.out, HandleCommand))
	t.Cleanup(func() { SetGlobalTransport(nil) })
	InitCoreCommands()
	return h
}

// call dispatches a command by name with integer arguments.
func (h *harness) call(name string, args ...uint32) {
	h.t.Helper()
	cmd, ok := globalRegistry.GetCommandByName(name)
	if !ok {
		h.t.Fatalf("Command %s not registered", name)
	}
	out := protocol.NewScratchOutput()
	for _, a := range args {
		protocol.EncodeVLQUint(out, a)
	}
	data := out.Result()
	if err := globalRegistry.Dispatch(cmd.ID, &data); err != nil {
		h.t.Fatalf("%s failed: %v", name, err)
	}
	if len(data) != 0 {
		h.t.Errorf("%s left %d argument bytes", name, len(data))
	}
}

// drain decodes every response framed since the last drain.
func (h *harness) drain() []sent {
	h.t.Helper()
	frames, rest := protocol.ParseFrames(h.out.Result())
	if len(rest) != 0 {
		h.t.Fatalf("Trailing %d bytes in output", len(rest))
	}
	defer h.out.Reset()

	var msgs []sent
	for _, f := range frames {
		payload := f.Payload
		for len(payload) > 0 {
			id, err := protocol.DecodeVLQUint(&payload)
			if err != nil {
				h.t.Fatalf("Bad message ID: %v", err)
			}
			cmd, ok := globalRegistry.GetCommand(uint16(id))
			if !ok {
				h.t.Fatalf("Unknown message ID %d", id)
			}
			m := sent{name: cmd.Name, args: map[string]int32{}}
			for _, field := range strings.Fields(cmd.Format) {
				key, format, _ := strings.Cut(field, "=")
				if strings.HasSuffix(format, "s") {
					var b []byte
					b, err = protocol.DecodeVLQBytes(&payload)
					m.data = append([]byte(nil), b...)
				} else {
					m.args[key], err = protocol.DecodeVLQInt(&payload)
				}
				if err != nil {
					h.t.Fatalf("Decoding %s.%s: %v", cmd.Name, key, err)
				}
			}
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// only returns the messages named name.
func only(msgs []sent, name string) []sent {
	var out []sent
	for _, m := range msgs {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}
