// Package monitor talks to a keysense board over its framed serial link:
// it retrieves the board's message dictionary, decodes reports into typed
// values, keeps the latest value of every key and sensor and forwards the
// reports to a Publisher.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownMessage = errors.New("monitor: unknown message")
	ErrArgCount       = errors.New("monitor: wrong number of arguments")
)

// ParamKind tells how a message parameter is encoded on the wire.
type ParamKind uint8

const (
	ParamInt   ParamKind = iota // one VLQ integer (%u %c %i %hu %hi)
	ParamBytes                  // length-prefixed byte string (%s %*s %.*s)
)

// Param is one "name=%fmt" entry of a message format.
type Param struct {
	Name string
	Kind ParamKind
}

// MessageFormat describes one command or response of the dictionary.
type MessageFormat struct {
	ID        uint16
	Name      string
	Params    []Param
	Signature string
}

// Dictionary is the JSON document served by the identify command.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations"`

	commands  map[string]*MessageFormat
	responses map[uint16]*MessageFormat
	enumNames map[string]map[int]string
}

// ParseDictionary decodes the reassembled identify data.
func ParseDictionary(data []byte) (*Dictionary, error) {
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}

	d.commands = make(map[string]*MessageFormat, len(d.Commands))
	for sig, id := range d.Commands {
		f, err := parseSignature(sig, id)
		if err != nil {
			return nil, err
		}
		d.commands[f.Name] = f
	}

	d.responses = make(map[uint16]*MessageFormat, len(d.Responses))
	for sig, id := range d.Responses {
		f, err := parseSignature(sig, id)
		if err != nil {
			return nil, err
		}
		d.responses[f.ID] = f
	}

	d.enumNames = make(map[string]map[int]string, len(d.Enumerations))
	for enum, values := range d.Enumerations {
		names := make(map[int]string, len(values))
		for name, v := range values {
			names[v] = name
		}
		d.enumNames[enum] = names
	}
	return d, nil
}

func parseSignature(sig string, id int) (*MessageFormat, error) {
	if id < 0 || id > 0xffff {
		return nil, fmt.Errorf("message %q: id %d out of range", sig, id)
	}
	fields := strings.Fields(sig)
	if len(fields) == 0 {
		return nil, fmt.Errorf("message id %d: empty format", id)
	}

	f := &MessageFormat{ID: uint16(id), Name: fields[0], Signature: sig}
	for _, field := range fields[1:] {
		name, verb, ok := strings.Cut(field, "=")
		if !ok || name == "" || !strings.HasPrefix(verb, "%") {
			return nil, fmt.Errorf("message %q: bad parameter %q", f.Name, field)
		}
		kind := ParamInt
		if strings.HasSuffix(verb, "s") {
			kind = ParamBytes
		}
		f.Params = append(f.Params, Param{Name: name, Kind: kind})
	}
	return f, nil
}

// Command returns the format of the named host-to-board command.
func (d *Dictionary) Command(name string) (*MessageFormat, bool) {
	f, ok := d.commands[name]
	return f, ok
}

// Response returns the format of a board-to-host message.
func (d *Dictionary) Response(id uint16) (*MessageFormat, bool) {
	f, ok := d.responses[id]
	return f, ok
}

// CommandNames lists the commands in name order.
func (d *Dictionary) CommandNames() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constant returns a numeric entry of the config section.
func (d *Dictionary) Constant(name string) (uint32, bool) {
	s, ok := d.Config[name]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// EnumName maps an enumerated value back to its label. Unknown values are
// rendered as their number.
func (d *Dictionary) EnumName(enum string, v int) string {
	if name, ok := d.enumNames[enum][v]; ok {
		return name
	}
	return strconv.Itoa(v)
}
