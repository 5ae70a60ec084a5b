package annotate

import (
	"context"

	"github.com/ppiankov/llmxray/internal/stream"
)

// Session owns the accumulator of the current stream and the cancel func of
// its single in-flight decode. Starting a new stream supersedes the old one.
// Like Accumulator it must be driven from one goroutine.
type Session struct {
	acc    *Accumulator
	cancel context.CancelFunc
	gen    uint64
}

// NewSession creates a session around acc
func NewSession(acc *Accumulator) *Session {
	return &Session{acc: acc}
}

// Accumulator returns the session's accumulator
func (s *Session) Accumulator() *Accumulator {
	return s.acc
}

// Generation identifies the current stream
func (s *Session) Generation() uint64 {
	return s.gen
}

// Begin cancels any in-flight decode, resets the state and returns the
// context and generation for the new stream.
func (s *Session) Begin(parent context.Context) (context.Context, uint64) {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.gen++
	s.acc.Reset()
	return ctx, s.gen
}

// Apply forwards msg to the accumulator unless it belongs to a superseded
// stream. It reports whether the message was applied.
func (s *Session) Apply(gen uint64, msg Msg) bool {
	if gen != s.gen {
		return false
	}
	s.acc.Update(msg)
	return true
}

// Stop cancels the in-flight decode, if any. The accumulator keeps whatever
// partial state it reached.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Drain folds every event of dec into acc. It returns nil once the stream
// completed and the decoder's error otherwise; acc keeps its partial state
// either way.
func Drain(ctx context.Context, dec *stream.Decoder, acc *Accumulator) error {
	return stream.ForEach(ctx, dec, acc.Append)
}
