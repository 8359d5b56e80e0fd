package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"keysense/tinycompress"
)

type dictionaryJSON struct {
	Version      string                    `json:"version"`
	Config       map[string]string         `json:"config"`
	Commands     map[string]int            `json:"commands"`
	Responses    map[string]int            `json:"responses"`
	Enumerations map[string]map[string]int `json:"enumerations"`
}

func TestDictionaryJSON(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)
	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })
	dict.AddConstant("TEST_CONST", "42")
	dict.AddEnumeration("states", []string{"off", "", "on"})
	dict.SetVersion("keysense-test", "go")

	var parsed dictionaryJSON
	if err := json.Unmarshal(dict.Generate(), &parsed); err != nil {
		t.Fatalf("Dictionary is not valid JSON: %v\n%s", err, dict.Generate())
	}

	if parsed.Version != "keysense-test" {
		t.Errorf("Expected version keysense-test, got %s", parsed.Version)
	}
	if parsed.Config["TEST_CONST"] != "42" {
		t.Errorf("Expected TEST_CONST 42, got %q", parsed.Config["TEST_CONST"])
	}
	if parsed.Commands["identify offset=%u count=%c"] != 1 {
		t.Errorf("Expected identify at ID 1, got %v", parsed.Commands)
	}
	if id, ok := parsed.Responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Errorf("Expected identify_response at ID 0, got %v", parsed.Responses)
	}
	states := parsed.Enumerations["states"]
	if len(states) != 2 || states["on"] != 2 {
		t.Errorf("Expected {off:0 on:2}, got %v", states)
	}
}

func TestDictionaryChunks(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)
	dict.AddConstant("TEST", "123")
	full := dict.Generate()

	var rebuilt []byte
	for offset := uint32(0); ; offset += 40 {
		chunk := dict.GetChunk(offset, 40)
		if len(chunk) == 0 {
			break
		}
		rebuilt = append(rebuilt, chunk...)
	}
	if string(rebuilt) != string(full) {
		t.Errorf("Chunks do not rebuild the dictionary:\n%s\n%s", rebuilt, full)
	}
	if chunk := dict.GetChunk(uint32(len(full))+10, 40); chunk != nil {
		t.Errorf("Expected nil past the end, got %v", chunk)
	}
}

func TestDictionaryCompressedChunks(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("TEST", "123")
	dict.SetCompressed(true)
	full := dict.Generate()

	var served []byte
	for offset := uint32(0); ; offset += 40 {
		chunk := dict.GetChunk(offset, 40)
		if len(chunk) == 0 {
			break
		}
		served = append(served, chunk...)
	}
	if !tinycompress.IsZlib(served) {
		t.Fatalf("Expected zlib header, got % x", served[:2])
	}
	plain, err := tinycompress.Inflate(served)
	if err != nil {
		t.Fatalf("Inflate failed: %v", err)
	}
	if !bytes.Equal(plain, full) {
		t.Errorf("Served dictionary does not inflate to JSON:\n%s\n%s", plain, full)
	}
}

func TestDictionaryRebuildsAfterChange(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	before := len(dict.Generate())
	dict.AddConstant("LATE", "1")
	if len(dict.Generate()) <= before {
		t.Error("Expected dictionary to grow after adding a constant")
	}
}

func TestIdentifyServesDictionary(t *testing.T) {
	h := newHarness(t)
	dict := GetGlobalDictionary().Generate()

	var rebuilt []byte
	for offset := uint32(0); offset < uint32(len(dict)); offset += IdentifyChunkMax {
		h.call("identify", offset, IdentifyChunkMax)
		resp := only(h.drain(), "identify_response")
		if len(resp) != 1 {
			t.Fatalf("Expected one identify_response, got %d", len(resp))
		}
		if uint32(resp[0].args["offset"]) != offset {
			t.Errorf("Expected offset %d, got %d", offset, resp[0].args["offset"])
		}
		rebuilt = append(rebuilt, resp[0].data...)
	}
	if string(rebuilt) != string(dict) {
		t.Errorf("identify did not return the dictionary")
	}
}
