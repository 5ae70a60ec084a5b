// Package stream decodes the backend's chunked attention stream into
// annotation events.
//
// The wire format is line delimited. Every event line carries the prefix
// "data: " followed by a JSON payload, and the stream ends with the line
// "data: [DONE]". Byte buffers from the transport may split a line, or a
// multi-byte character, at any point.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ppiankov/llmxray/internal/model"
	"go.uber.org/zap"
)

const (
	framePrefix  = "data: "
	doneSentinel = "[DONE]"

	// DefaultMaxFrameBytes bounds a single pending line
	DefaultMaxFrameBytes = 1 << 20

	readBufferSize = 4096
)

// ErrTransport marks a stream that ended abnormally (read error, oversized
// frame). It is never returned for a normal [DONE] completion.
var ErrTransport = errors.New("stream transport failure")

type chunk struct {
	data []byte
	err  error
}

// Decoder is a lazy, finite sequence of annotation events read from one
// response body. A Decoder is single use and not safe for concurrent calls
// to Next.
type Decoder struct {
	src      io.ReadCloser
	logger   *zap.Logger
	maxFrame int

	chunks chan chunk
	stop   chan struct{}

	pending []byte
	frames  [][]byte
	dropped int
	err     error

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sets the logger used for malformed frame warnings
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMaxFrameBytes bounds the length of a single line. A longer line is
// treated as a transport failure.
func WithMaxFrameBytes(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxFrame = n
		}
	}
}

// NewDecoder creates a decoder over src. Reading starts on the first call to
// Next; the decoder owns src and closes it when the sequence ends.
func NewDecoder(src io.ReadCloser, opts ...Option) *Decoder {
	d := &Decoder{
		src:      src,
		logger:   zap.NewNop(),
		maxFrame: DefaultMaxFrameBytes,
		chunks:   make(chan chunk),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next event. It returns io.EOF once the stream completed
// normally, an error wrapping ErrTransport if the transport failed, or the
// context's error if ctx was cancelled. After any of these the same error is
// returned by every later call and no further events are produced.
func (d *Decoder) Next(ctx context.Context) (model.AnnotationEvent, error) {
	if d.err != nil {
		return model.AnnotationEvent{}, d.err
	}

	d.startOnce.Do(func() { go d.pump() })

	for {
		if err := ctx.Err(); err != nil {
			return d.finish(err)
		}

		for len(d.frames) > 0 {
			line := d.frames[0]
			d.frames = d.frames[1:]

			event, ok, done := d.parseFrame(line)
			if done {
				return d.finish(io.EOF)
			}
			if ok {
				return event, nil
			}
		}

		select {
		case <-ctx.Done():
			return d.finish(ctx.Err())

		case c, ok := <-d.chunks:
			if !ok {
				return d.finish(io.EOF)
			}
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					if len(d.pending) > 0 {
						d.logger.Debug("discarding unterminated trailing line", zap.Int("bytes", len(d.pending)))
					}
					return d.finish(io.EOF)
				}
				return d.finish(fmt.Errorf("%w: %w", ErrTransport, c.err))
			}
			if err := d.feed(c.data); err != nil {
				return d.finish(err)
			}
		}
	}
}

// Dropped returns the number of malformed frames skipped so far
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Close stops decoding and releases the underlying source. It is safe to
// call more than once.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		close(d.stop)
		d.closeErr = d.src.Close()
	})
	return d.closeErr
}

// pump forwards byte buffers from the source until it fails or the decoder
// is closed. Closing the source unblocks a pending Read.
func (d *Decoder) pump() {
	defer close(d.chunks)

	for {
		buf := make([]byte, readBufferSize)
		n, err := d.src.Read(buf)
		if n > 0 {
			select {
			case d.chunks <- chunk{data: buf[:n]}:
			case <-d.stop:
				return
			}
		}
		if err != nil {
			select {
			case d.chunks <- chunk{err: err}:
			case <-d.stop:
			}
			return
		}
	}
}

// feed appends raw bytes and moves every complete line to the frame queue.
// Lines are split on the byte '\n', which never occurs inside a multi-byte
// UTF-8 sequence, so text is only decoded once a line is whole.
func (d *Decoder) feed(data []byte) error {
	d.pending = append(d.pending, data...)

	start := 0
	for {
		idx := bytes.IndexByte(d.pending[start:], '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, d.pending[start:start+idx])
		d.frames = append(d.frames, line)
		start += idx + 1
	}

	if start > 0 {
		d.pending = append([]byte(nil), d.pending[start:]...)
	}

	if len(d.pending) > d.maxFrame {
		return fmt.Errorf("%w: frame exceeds %d bytes", ErrTransport, d.maxFrame)
	}
	return nil
}

// parseFrame interprets one complete line. ok reports a decoded event, done
// reports the [DONE] sentinel.
func (d *Decoder) parseFrame(line []byte) (event model.AnnotationEvent, ok bool, done bool) {
	if !bytes.HasPrefix(line, []byte(framePrefix)) {
		return event, false, false
	}

	payload := strings.TrimSpace(strings.ToValidUTF8(string(line[len(framePrefix):]), "�"))
	if payload == doneSentinel {
		return event, false, true
	}

	var decoded *model.AnnotationEvent
	err := json.Unmarshal([]byte(payload), &decoded)
	if err == nil && decoded == nil {
		err = errors.New("payload is null")
	}
	if err != nil {
		d.dropped++
		d.logger.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(payload)))
		return model.AnnotationEvent{}, false, false
	}

	return *decoded, true, false
}

func (d *Decoder) finish(err error) (model.AnnotationEvent, error) {
	d.err = err
	d.frames = nil
	_ = d.Close()
	return model.AnnotationEvent{}, err
}

// ForEach calls fn for every event of dec until the stream ends. It returns
// nil on normal completion and the decoder's terminal error otherwise.
func ForEach(ctx context.Context, dec *Decoder, fn func(model.AnnotationEvent)) error {
	for {
		event, err := dec.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(event)
	}
}
