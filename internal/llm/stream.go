package llm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix  = "data:"
	doneMarker  = "[DONE]"
	contentPath = "choices.0.delta.content"
	readSize    = 4096
)

// Delta is one incremental fragment of streamed model output.
type Delta struct {
	Content string
	Raw     gjson.Result
}

// DecodeError reports a malformed JSON payload on a data: line. It is not
// recoverable per line: the stream stops and keeps returning it.
type DecodeError struct {
	Payload string
}

func (e *DecodeError) Error() string {
	p := e.Payload
	if len(p) > 120 {
		p = p[:120] + "..."
	}
	return fmt.Sprintf("stream decode: invalid JSON payload %q", p)
}

// DeltaStream decodes a text/event-stream body into content deltas. It owns
// the body, the partial-rune carry and the line buffer. It is single-pass and
// not safe for concurrent use.
type DeltaStream struct {
	body    io.ReadCloser
	buf     []byte
	carry   []byte
	line    strings.Builder
	pending []Delta
	err     error
	closed  bool
}

// NewDeltaStream wraps body. The stream closes body on Close.
func NewDeltaStream(body io.ReadCloser) *DeltaStream {
	return &DeltaStream{body: body, buf: make([]byte, readSize)}
}

// Next returns the next non-empty delta. It returns io.EOF once the stream
// sees [DONE] or the body ends, and a *DecodeError for malformed payloads.
// After the first error every call returns the same error.
func (s *DeltaStream) Next() (Delta, error) {
	for {
		if len(s.pending) > 0 {
			d := s.pending[0]
			s.pending = s.pending[1:]
			return d, nil
		}
		if s.err != nil {
			return Delta{}, s.err
		}
		s.fill()
	}
}

// Close releases the underlying body. It is safe to call more than once.
func (s *DeltaStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.err == nil {
		s.err = io.EOF
	}
	return s.body.Close()
}

// fill performs one read and queues whatever complete lines it produced.
func (s *DeltaStream) fill() {
	n, rerr := s.body.Read(s.buf)
	if n > 0 {
		s.feed(s.buf[:n])
	}
	if s.err != nil {
		return
	}
	if rerr != nil {
		if !errors.Is(rerr, io.EOF) {
			s.err = fmt.Errorf("stream read: %w", rerr)
			return
		}
		// Flush a trailing line without a terminator, then finish.
		if len(s.carry) > 0 {
			s.line.Write(s.carry)
			s.carry = nil
		}
		if s.line.Len() > 0 {
			last := s.line.String()
			s.line.Reset()
			s.process(last)
		}
		if s.err == nil {
			s.err = io.EOF
		}
	}
}

// feed decodes newly received bytes, keeping any incomplete UTF-8 sequence at
// the tail for the next read, and processes every complete line.
func (s *DeltaStream) feed(p []byte) {
	data := append(s.carry, p...)
	cut := len(data) - incompleteTail(data)
	s.carry = append([]byte(nil), data[cut:]...)
	data = data[:cut]

	for len(data) > 0 && s.err == nil {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			s.line.Write(data)
			return
		}
		s.line.Write(data[:i])
		line := s.line.String()
		s.line.Reset()
		data = data[i+1:]
		s.process(line)
	}
}

func (s *DeltaStream) process(line string) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneMarker {
		s.err = io.EOF
		return
	}
	if !gjson.Valid(payload) {
		s.err = &DecodeError{Payload: payload}
		return
	}
	raw := gjson.Parse(payload)
	if content := raw.Get(contentPath).String(); content != "" {
		s.pending = append(s.pending, Delta{Content: content, Raw: raw})
	}
}

// incompleteTail returns how many trailing bytes of p form the start of a
// multi-byte UTF-8 sequence that is not yet complete.
func incompleteTail(p []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(p); i++ {
		b := p[len(p)-i]
		if b < utf8.RuneSelf {
			return 0
		}
		if utf8.RuneStart(b) {
			if !utf8.FullRune(p[len(p)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}

// Collect drains s, calling onDelta for each fragment, and returns the
// concatenated content. io.EOF is not reported as an error.
func Collect(s *DeltaStream, onDelta func(Delta)) (string, error) {
	var sb strings.Builder
	for {
		d, err := s.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(d.Content)
		if onDelta != nil {
			onDelta(d)
		}
	}
}
