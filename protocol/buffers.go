package protocol

// InputBuffer is a consumable view of received bytes.
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer is an append-only frame sink that allows patching bytes
// already written, which is how frame lengths are filled in.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed slice.
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is an OutputBuffer backed by a fixed array. Writes past the
// end are dropped; Overflowed reports whether that happened.
type ScratchOutput struct {
	buf      [MessageMax]byte
	pos      int
	overflow bool
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	if n < len(data) {
		s.overflow = true
	}
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

func (s *ScratchOutput) Overflowed() bool { return s.overflow }

func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// FifoBuffer queues received bytes for frame parsing. Unlike a ring it keeps
// unread data contiguous, compacting to the front when the tail runs out, so
// Data never copies into a fresh slice.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count written.
func (f *FifoBuffer) Write(data []byte) int {
	if len(data) > len(f.buf)-f.write && f.read > 0 {
		f.compact()
	}
	n := copy(f.buf[f.write:], data)
	f.write += n
	return n
}

// Read copies out and consumes up to len(data) bytes.
func (f *FifoBuffer) Read(data []byte) int {
	n := copy(data, f.buf[f.read:f.write])
	f.Pop(n)
	return n
}

func (f *FifoBuffer) Data() []byte   { return f.buf[f.read:f.write] }
func (f *FifoBuffer) Available() int { return f.write - f.read }
func (f *FifoBuffer) Free() int      { return len(f.buf) - f.Available() }
func (f *FifoBuffer) IsEmpty() bool  { return f.read == f.write }

// Pop consumes n bytes from the front.
func (f *FifoBuffer) Pop(n int) {
	if n > f.Available() {
		n = f.Available()
	}
	f.read += n
	if f.read == f.write {
		f.read, f.write = 0, 0
	}
}

func (f *FifoBuffer) Reset() {
	f.read, f.write = 0, 0
}

func (f *FifoBuffer) compact() {
	n := copy(f.buf, f.buf[f.read:f.write])
	f.read, f.write = 0, n
}
