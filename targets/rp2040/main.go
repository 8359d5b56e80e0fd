//go:build rp2040

package main

import (
	"machine"
	"time"

	"keysense/core"
	"keysense/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	scanner *core.Scanner

	// Debug counters
	msgerrors  uint32
	scanErrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left by a previous reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	InitClock()

	core.SetGPIODriver(NewRPGPIODriver())
	core.SetADCDriver(NewRPAdcDriver())

	var err error
	cfg := boardConfig()
	scanner, err = buildScanner(cfg)
	if err != nil {
		haltWithError("scanner: " + err.Error())
	}

	// Core commands first so identify keeps its fixed IDs
	core.InitCoreCommands()
	core.InitScanCommands(scanner)
	core.GetGlobalDictionary().SetCompressed(true)
	core.GetGlobalDictionary().Build()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.HandleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		if err := scanner.Reset(); err != nil {
			core.DebugPrintln("[RESET] " + err.Error())
		}
	})
	// Responses and the ACK for a frame leave in one write
	transport.SetFlushCallback(writeUSB)
	core.SetGlobalTransport(transport)

	core.SetResetHandler(func() {
		// Reset through the watchdog so USB re-enumerates
		if machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}) != nil {
			return
		}
		if machine.Watchdog.Start() != nil {
			return
		}
		for {
			time.Sleep(time.Millisecond)
		}
	})

	UpdateSystemTime()
	now := core.GetTime()
	period := core.TimerFromUS(cfg.ScanPeriodUS)
	core.ScheduleTimer(scanner.ScanTimer(now+period, period, func(err error) {
		scanErrors++
		core.DebugAsync("[SCAN] " + err.Error())
	}))

	if led, err := newStatusLED(statusLEDPin, scanner.Sensors()); err == nil {
		led.Start(now)
	} else {
		core.DebugPrintln("[LED] " + err.Error())
	}

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				in := protocol.NewSliceInputBuffer(data)
				transport.Receive(in)
				if consumed := len(data) - in.Available(); consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			core.TimerDispatch(core.GetTime())

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			// After the ACK has been written
			core.CheckPendingReset()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop moves USB bytes into the input FIFO.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(time.Millisecond)
				continue
			}

			// First byte after a disconnect starts a fresh session
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB drains the output buffer to USB. Persistent write failures mark
// the host as gone and drop stale output.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}

// haltWithError blinks the on-board LED forever.
func haltWithError(msg string) {
	core.DebugPrintln("[FATAL] " + msg)
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
