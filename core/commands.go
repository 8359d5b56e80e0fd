package core

import (
	"sync/atomic"

	"keysense/protocol"
)

// Bootstrap IDs fixed by the host: identify_response is 0, identify is 1.
const (
	IdentifyResponseID = 0
	IdentifyID         = 1
)

// IdentifyChunkMax bounds one identify_response chunk so the frame fits in
// MessageLengthMax.
const IdentifyChunkMax = 40

var (
	// Global transport for sending responses (set by main)
	globalTransport *protocol.Transport

	globalResetHandler func()
	resetPending       uint32 // set by reset, acted on after the ACK is out
)

// InitCoreCommands registers the protocol-level commands. It must run before
// any other registration so the bootstrap IDs hold.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("set_debug", "enable=%c", handleSetDebug)
	RegisterCommand("dump_timing", "", handleDumpTiming)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("uptime", "clock=%u cycles=%u overruns=%u")

	RegisterConstant("CLOCK_FREQ", TimerFreq)
}

func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > IdentifyChunkMax {
		count = IdentifyChunkMax
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetUptime(data *[]byte) error {
	clock := GetTime()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
		protocol.EncodeVLQUint(output, ScanCycles())
		protocol.EncodeVLQUint(output, ScanOverruns())
	})
	return nil
}

func handleSetDebug(data *[]byte) error {
	enable, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	SetDebugEnabled(enable != 0)
	return nil
}

func handleDumpTiming(data *[]byte) error {
	DebugAsync("[TIMING] dump requested")
	DumpTimingRing()
	return nil
}

// handleReset defers the actual reset until the ACK has been flushed.
func handleReset(data *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// SetResetHandler sets the platform-specific reset handler
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// CheckPendingReset runs the reset handler if a reset was requested.
// Call it from the main loop after pending output has been written.
func CheckPendingReset() {
	if atomic.SwapUint32(&resetPending, 0) != 0 && globalResetHandler != nil {
		globalResetHandler()
	}
}

// SetGlobalTransport sets the transport used by SendResponse
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse frames a registered response. Sending an unregistered name
// is a programming error and panics.
func SendResponse(name string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(name)
	if !ok {
		panic("response not registered: " + name)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

// HandleCommand is the protocol.CommandHandler for the global registry.
func HandleCommand(cmdID uint16, data *[]byte) error {
	return DispatchCommand(cmdID, data)
}
