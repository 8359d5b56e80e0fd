package monitor

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"keysense/protocol"
	"keysense/tinycompress"
)

// Bootstrap message IDs every keysense firmware registers first.
const (
	identifyResponseID = 0
	identifyID         = 1
)

// IdentifyChunk is the dictionary chunk size requested per identify. The
// firmware caps chunks at the same size.
const IdentifyChunk = 40

const maxIdentifyChunks = 1000

var (
	ErrNoDictionary = errors.New("monitor: dictionary not loaded")
	ErrClosed       = errors.New("monitor: client closed")
)

// Client is a connection to one board. After Connect every incoming
// message is decoded and delivered on Messages, or to a pending Query.
type Client struct {
	transport *protocol.HostTransport
	log       *zap.SugaredLogger

	// Timeout bounds each identify round trip.
	Timeout time.Duration

	dict    *Dictionary
	rawDict []byte

	messages chan Message
	dropped  int64

	mu      sync.Mutex
	waiters map[string][]chan Message

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewClient wraps port without talking to the board yet.
func NewClient(port io.ReadWriteCloser, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		transport: protocol.NewHostTransport(port),
		log:       log,
		Timeout:   time.Second,
		messages:  make(chan Message, 64),
		waiters:   make(map[string][]chan Message),
		stop:      make(chan struct{}),
	}
}

// Connect retrieves the dictionary over port and starts decoding reports.
func Connect(port io.ReadWriteCloser, log *zap.SugaredLogger) (*Client, error) {
	c := NewClient(port, log)
	if err := c.RetrieveDictionary(); err != nil {
		return nil, multierr.Combine(err, c.Close())
	}
	c.Start()
	return c, nil
}

// RetrieveDictionary reads the dictionary with identify until a short
// chunk marks its end. Frames other than identify_response are skipped.
func (c *Client) RetrieveDictionary() error {
	var buf bytes.Buffer
	offset := uint32(0)

	for i := 0; i < maxIdentifyChunks; i++ {
		chunk, err := c.identify(offset)
		if err != nil {
			return fmt.Errorf("dictionary chunk at %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < IdentifyChunk {
			break
		}
	}

	data := buf.Bytes()
	compressed := tinycompress.IsZlib(data)
	if compressed {
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
	}

	dict, err := ParseDictionary(data)
	if err != nil {
		return err
	}
	c.rawDict = data
	c.dict = dict
	c.log.Infow("dictionary retrieved",
		"bytes", buf.Len(),
		"compressed", compressed,
		"version", dict.Version,
		"commands", len(dict.Commands),
		"responses", len(dict.Responses))
	return nil
}

func (c *Client) identify(offset uint32) ([]byte, error) {
	err := c.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, IdentifyChunk)
	})
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.Timeout)
	for {
		f, err := c.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return nil, err
		}

		payload := f.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil || id != identifyResponseID {
			c.log.Debugw("skipping frame during identify", "id", id)
			continue
		}
		got, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if got != offset {
			return nil, fmt.Errorf("offset mismatch: want %d, got %d", offset, got)
		}
		return protocol.DecodeVLQBytes(&payload)
	}
}

// Start begins decoding incoming frames. Connect calls it.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.dispatch()
}

func (c *Client) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case f := <-c.transport.Responses():
			msgs, err := c.dict.Decode(f.Payload)
			if err != nil {
				c.log.Warnw("undecodable frame", "seq", f.Seq, "error", err)
			}
			for _, m := range msgs {
				c.deliver(m)
			}
		}
	}
}

func (c *Client) deliver(m Message) {
	c.mu.Lock()
	if w := c.waiters[m.Name]; len(w) > 0 {
		c.waiters[m.Name] = w[1:]
		c.mu.Unlock()
		w[0] <- m
		return
	}
	c.mu.Unlock()

	select {
	case c.messages <- m:
	default:
		// Full: drop the oldest
		select {
		case <-c.messages:
			atomic.AddInt64(&c.dropped, 1)
		default:
		}
		c.messages <- m
	}
}

// Messages delivers every message not consumed by a Query.
func (c *Client) Messages() <-chan Message { return c.messages }

// Dropped returns how many messages were discarded because Messages was
// not drained.
func (c *Client) Dropped() int { return int(atomic.LoadInt64(&c.dropped)) }

// Dictionary returns the parsed dictionary, nil before RetrieveDictionary.
func (c *Client) Dictionary() *Dictionary { return c.dict }

// RawDictionary returns the dictionary JSON as served by the board.
func (c *Client) RawDictionary() []byte { return c.rawDict }

// Send sends a command by name and waits for its ACK.
func (c *Client) Send(name string, args ...uint32) error {
	if c.dict == nil {
		return ErrNoDictionary
	}
	id, enc, err := c.dict.Encode(name, args...)
	if err != nil {
		return err
	}
	if err := c.transport.SendCommand(id, enc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Query sends a command and returns the next response named response.
func (c *Client) Query(ctx context.Context, name, response string, args ...uint32) (Message, error) {
	ch := make(chan Message, 1)
	c.mu.Lock()
	c.waiters[response] = append(c.waiters[response], ch)
	c.mu.Unlock()
	defer c.cancel(response, ch)

	if err := c.Send(name, args...); err != nil {
		return Message{}, err
	}

	select {
	case m := <-ch:
		return m, nil
	case <-ctx.Done():
		return Message{}, fmt.Errorf("%s: %w", name, ctx.Err())
	case <-c.stop:
		return Message{}, ErrClosed
	}
}

func (c *Client) cancel(response string, ch chan Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.waiters[response]
	for i := range w {
		if w[i] == ch {
			c.waiters[response] = append(w[:i:i], w[i+1:]...)
			break
		}
	}
}

// Close stops decoding and closes the port.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		err = c.transport.Close()
		c.wg.Wait()
	})
	return err
}
