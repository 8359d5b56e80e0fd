package monitor

import (
	"net"
	"sync"
	"testing"

	"keysense/core"
	"keysense/hall"
	"keysense/matrix"
	"keysense/protocol"
)

// switchGrid models a 2x2 matrix of switches wired column to row.
type switchGrid struct {
	high   []bool
	closed map[[2]int]bool
}

type gridStrobe struct {
	g   *switchGrid
	col int
}

func (s gridStrobe) High() error { s.g.high[s.col] = true; return nil }
func (s gridStrobe) Low() error  { s.g.high[s.col] = false; return nil }

type gridSense struct {
	g   *switchGrid
	row int
}

func (s gridSense) Get() (bool, error) {
	for col, h := range s.g.high {
		if h && s.g.closed[[2]int{col, s.row}] {
			return true, nil
		}
	}
	return false, nil
}

func (s gridSense) Drain() error { return nil }

type fakeADC struct {
	values map[core.ADCChannelID]core.ADCValue
}

func (a *fakeADC) ConfigureChannel(core.ADCChannelID) error { return nil }

func (a *fakeADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	return a.values[ch], nil
}

// The core registries are process-wide, so every test shares one scanner
// and gets a fresh link to it.
type fixture struct {
	grid    *switchGrid
	adc     *fakeADC
	scanner *core.Scanner
}

var (
	fixtureOnce sync.Once
	shared      *fixture
	fixtureErr  error
)

func sharedFixture(t *testing.T) *fixture {
	t.Helper()
	fixtureOnce.Do(func() {
		grid := &switchGrid{high: make([]bool, 2), closed: map[[2]int]bool{}}
		cols := []matrix.StrobePin{gridStrobe{grid, 0}, gridStrobe{grid, 1}}
		rows := []matrix.SensePin{gridSense{grid, 0}, gridSense{grid, 1}}
		m, err := matrix.New(cols, rows, matrix.Timing{ScanPeriodUS: 1000, DebounceUS: 1000, IdleMS: 5})
		if err != nil {
			fixtureErr = err
			return
		}

		th := &hall.Thresholds{SampleCount: 4, MinMagnet: 1200, MaxSensor: 4095, MinOK: 1500, MaxOK: 3000, NoSensor: 200}
		sensors, err := hall.New(1, th, hall.LinearTable(4096, 8))
		if err != nil {
			fixtureErr = err
			return
		}

		adc := &fakeADC{values: map[core.ADCChannelID]core.ADCValue{}}
		core.SetADCDriver(adc)
		s, err := core.NewScanner(m, sensors, []core.ADCChannelID{0}, core.TransportReporter{})
		if err != nil {
			fixtureErr = err
			return
		}

		core.InitCoreCommands()
		core.InitScanCommands(s)
		core.GetGlobalDictionary().SetCompressed(true)
		core.GetGlobalDictionary().Build()
		shared = &fixture{grid: grid, adc: adc, scanner: s}
	})
	if fixtureErr != nil {
		t.Fatalf("board fixture: %v", fixtureErr)
	}
	return shared
}

// board runs the firmware transport on its own goroutine, the way the
// target main loop does, on one end of a pipe.
type board struct {
	t         *testing.T
	fx        *fixture
	conn      net.Conn
	in        *protocol.FifoBuffer
	out       *protocol.ScratchOutput
	transport *protocol.Transport

	chunks chan []byte
	do     chan func()
	done   chan struct{}
}

// newBoard returns a board and the host end of its link.
func newBoard(t *testing.T) (*board, net.Conn) {
	t.Helper()
	fx := sharedFixture(t)

	fx.grid.closed = map[[2]int]bool{}
	for i := range fx.grid.high {
		fx.grid.high[i] = false
	}
	fx.adc.values = map[core.ADCChannelID]core.ADCValue{}
	if err := fx.scanner.Reset(); err != nil {
		t.Fatalf("scanner reset: %v", err)
	}
	fx.scanner.SetReportMask(core.ReportAll)

	host, conn := net.Pipe()
	b := &board{
		t:      t,
		fx:     fx,
		conn:   conn,
		in:     protocol.NewFifoBuffer(4 * protocol.MessageMax),
		out:    protocol.NewScratchOutput(),
		chunks: make(chan []byte, 8),
		do:     make(chan func()),
		done:   make(chan struct{}),
	}
	b.transport = protocol.NewTransport(b.out, core.HandleCommand)
	b.transport.SetFlushCallback(b.flush)
	core.SetGlobalTransport(b.transport)

	go b.read()
	go b.loop()
	t.Cleanup(func() {
		conn.Close()
		<-b.done
		core.SetGlobalTransport(nil)
	})
	return b, host
}

func (b *board) read() {
	defer close(b.chunks)
	buf := make([]byte, 256)
	for {
		n, err := b.conn.Read(buf)
		if err != nil {
			return
		}
		b.chunks <- append([]byte(nil), buf[:n]...)
	}
}

func (b *board) loop() {
	defer close(b.done)
	for {
		select {
		case data, ok := <-b.chunks:
			if !ok {
				return
			}
			b.in.Write(data)
			b.transport.Receive(b.in)
		case fn := <-b.do:
			fn()
		}
		b.flush()
	}
}

func (b *board) flush() {
	if res := b.out.Result(); len(res) > 0 {
		// A closed host end only loses the output
		_, _ = b.conn.Write(res)
		b.out.Reset()
	}
}

// run executes fn on the board goroutine.
func (b *board) run(fn func()) {
	done := make(chan struct{})
	b.do <- func() {
		fn()
		close(done)
	}
	<-done
}

// cycle runs n scan cycles.
func (b *board) cycle(n int) {
	b.run(func() {
		for i := 0; i < n; i++ {
			if err := b.fx.scanner.Cycle(); err != nil {
				b.t.Errorf("Cycle %d: %v", i, err)
				return
			}
		}
	})
}

func (b *board) press(col, row int, pressed bool) {
	b.run(func() { b.fx.grid.closed[[2]int{col, row}] = pressed })
}

func (b *board) setADC(v core.ADCValue) {
	b.run(func() { b.fx.adc.values[0] = v })
}
