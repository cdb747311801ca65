// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package process

import (
	"bytes"
	"io"

	"github.com/hashicorp/procpipe/lib/fdio"
)

// readFunc performs a single read. A zero count with a nil error means the
// stream has ended; errors are treated the same way by stream.
type readFunc func(buf []byte) (int, error)

// stream reconstructs lines from the chunks read off one output pipe.
//
// Chunks are split as they arrive: complete lines are queued in lines with
// their terminator removed, and whatever follows the last newline is kept in
// partial, which therefore never contains a newline.
type stream struct {
	name string
	fd   fdio.Fd

	lines   [][]byte
	partial []byte

	// eof is set once the pipe reported end of stream or failed.
	eof bool
}

func newStream(name string, fd fdio.Fd) *stream {
	return &stream{name: name, fd: fd}
}

// feed splits chunk into the complete lines and the trailing partial line.
func (s *stream) feed(chunk []byte) {
	for {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.partial = append(s.partial, chunk...)
			return
		}

		line := make([]byte, 0, len(s.partial)+i)
		line = append(line, s.partial...)
		line = append(line, chunk[:i]...)
		s.lines = append(s.lines, line)
		s.partial = s.partial[:0]
		chunk = chunk[i+1:]
	}
}

// buffered reports whether data is waiting to be returned.
func (s *stream) buffered() bool {
	return len(s.lines) > 0 || len(s.partial) > 0
}

// drain returns every buffered byte, in arrival order and with the line
// terminators restored, and empties the buffers.
func (s *stream) drain() []byte {
	if !s.buffered() {
		return nil
	}

	var out []byte
	for _, line := range s.lines {
		out = append(out, line...)
		out = append(out, '\n')
	}
	out = append(out, s.partial...)

	s.lines = nil
	s.partial = nil
	return out
}

// fill performs one read into buf and feeds the result. It returns the
// number of bytes read; a zero return marks the stream as ended.
func (s *stream) fill(read readFunc, buf []byte) int {
	if s.eof {
		return 0
	}

	n, err := read(buf)
	if err != nil || n == 0 {
		s.eof = true
		return 0
	}
	s.feed(buf[:n])
	return n
}

// readLine returns the next complete line, reading until a terminator shows
// up or the stream ends. At end of stream a trailing unterminated line is
// returned as is; io.EOF is returned once nothing is left.
func (s *stream) readLine(read readFunc, buf []byte) (string, error) {
	for len(s.lines) == 0 && !s.eof {
		s.fill(read, buf)
	}

	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines[0] = nil
		s.lines = s.lines[1:]
		return string(line), nil
	}

	if len(s.partial) > 0 {
		line := string(s.partial)
		s.partial = nil
		return line, nil
	}

	return "", io.EOF
}

// readAvailable returns the buffered bytes plus the result of a single read.
// When data is already buffered the read only happens if it would not block.
func (s *stream) readAvailable(read readFunc, buf []byte) ([]byte, error) {
	out := s.drain()

	if !s.eof && (len(out) == 0 || s.readable()) {
		if n := s.fill(read, buf); n > 0 {
			out = append(out, s.drain()...)
		}
	}

	if len(out) == 0 && s.eof {
		return nil, io.EOF
	}
	return out, nil
}

// readable polls the descriptor without blocking.
func (s *stream) readable() bool {
	if s.fd == fdio.None {
		return true
	}
	ready, err := fdio.PollReadable(s.fd, 0)
	return err != nil || ready
}

// pollFd returns the descriptor to poll, or None once the stream has ended.
func (s *stream) pollFd() fdio.Fd {
	if s.eof {
		return fdio.None
	}
	return s.fd
}

// close marks the stream as ended and forgets its descriptor. Buffered data
// stays available.
func (s *stream) close() {
	s.fd = fdio.None
	s.eof = true
}
