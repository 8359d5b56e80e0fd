package core

import (
	"sort"
	"sync"

	"keysense/tinycompress"
)

// Dictionary serializes the message formats, constants and enumerations the
// host needs to decode reports. It is built once after registration and
// served in chunks by identify.
type Dictionary struct {
	mu           sync.RWMutex
	commandReg   *CommandRegistry
	version      string
	build        string
	constants    map[string]string
	enumerations map[string][]string
	compressed   bool
	cached       []byte
	served       []byte
}

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(reg *CommandRegistry) *Dictionary {
	return &Dictionary{
		commandReg:   reg,
		version:      "keysense",
		build:        "go-tinygo",
		constants:    make(map[string]string),
		enumerations: make(map[string][]string),
	}
}

// RegisterConstant adds a numeric constant to the global dictionary.
func RegisterConstant(name string, value uint32) {
	globalDictionary.AddConstant(name, utoa(value))
}

// RegisterEnumeration adds an enumeration to the global dictionary.
// values[i] is encoded on the wire as i; empty names are skipped.
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

func (d *Dictionary) AddConstant(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = value
	d.cached = nil
}

func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := make([]string, len(values))
	copy(v, values)
	d.enumerations[name] = v
	d.cached = nil
}

// SetCompressed selects whether identify serves the dictionary as a zlib
// stream. Generate always returns the plain JSON.
func (d *Dictionary) SetCompressed(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compressed = on
	d.cached = nil
}

func (d *Dictionary) SetVersion(version, build string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.build = build
	d.cached = nil
}

// Build serializes and caches the dictionary. Call after every command has
// been registered.
func (d *Dictionary) Build() {
	// Registry lock is taken before ours, never inside it
	cmds := d.commandReg.Commands()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = d.buildJSONLocked(cmds)
	d.served = d.cached
	if d.compressed {
		d.served = tinycompress.AppendZlib(make([]byte, 0, tinycompress.ZlibSize(len(d.cached))), d.cached)
	}
	DebugPrintln("[DICT] built " + itoa(len(d.cached)) + " bytes, " + itoa(len(cmds)) + " messages")
}

// Generate returns the serialized dictionary, building it if needed.
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cached
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}
	d.Build()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// GetChunk returns up to count bytes of the served form starting at offset.
// The chunk aliases the cached data, which is immutable once built.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	d.Generate()
	d.mu.RLock()
	data := d.served
	d.mu.RUnlock()
	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	return data[offset:end]
}

func (d *Dictionary) buildJSONLocked(cmds []*Command) []byte {
	out := make([]byte, 0, 1024)

	out = append(out, `{"version":`...)
	out = appendJSONString(out, d.version)
	out = append(out, `,"build_versions":`...)
	out = appendJSONString(out, d.build)

	out = append(out, `,"config":{`...)
	for i, name := range sortedKeys(d.constants) {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendJSONString(out, name)
		out = append(out, ':')
		out = appendJSONString(out, d.constants[name])
	}

	out = append(out, `},"commands":{`...)
	out = appendMessages(out, cmds, false)
	out = append(out, `},"responses":{`...)
	out = appendMessages(out, cmds, true)
	out = append(out, '}')

	if len(d.enumerations) > 0 {
		out = append(out, `,"enumerations":{`...)
		for i, name := range sortedKeys(d.enumerations) {
			if i > 0 {
				out = append(out, ',')
			}
			out = appendJSONString(out, name)
			out = append(out, `:{`...)
			first := true
			for v, label := range d.enumerations[name] {
				if label == "" {
					continue
				}
				if !first {
					out = append(out, ',')
				}
				out = appendJSONString(out, label)
				out = append(out, ':')
				out = append(out, itoa(v)...)
				first = false
			}
			out = append(out, '}')
		}
		out = append(out, '}')
	}

	return append(out, '}')
}

func appendMessages(out []byte, cmds []*Command, responses bool) []byte {
	first := true
	for _, c := range cmds {
		if c.IsResponse() != responses {
			continue
		}
		if !first {
			out = append(out, ',')
		}
		out = appendJSONString(out, c.Signature())
		out = append(out, ':')
		out = append(out, itoa(int(c.ID))...)
		first = false
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
