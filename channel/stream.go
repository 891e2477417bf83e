package channel

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/codingjr/jrchat"
)

// maxFrame bounds a single line; prompts may carry whole files.
const maxFrame = 4 << 20

var errFrameTooLong = errors.New("frame exceeds size limit")

// Stream is a Channel speaking newline-delimited JSON over a byte stream,
// such as a Unix domain socket connection.
type Stream struct {
	rwc   io.ReadWriteCloser
	r     *bufio.Reader
	limit int
	out   *outbox
}

// NewStream wraps rwc. The Stream owns rwc and closes it on Close.
func NewStream(rwc io.ReadWriteCloser) *Stream {
	s := &Stream{rwc: rwc, r: bufio.NewReaderSize(rwc, 64*1024), limit: maxFrame}
	s.out = newOutbox("stream", func(env jrchat.Envelope) error {
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		slog.Debug("send", "data", string(data))
		_, err = rwc.Write(append(data, '\n'))
		return err
	})
	return s
}

func (s *Stream) Send(env jrchat.Envelope) {
	s.out.send(env)
}

// Recv returns the next well-formed message. Lines longer than the frame
// limit are discarded without ending the stream.
func (s *Stream) Recv() (jrchat.Envelope, error) {
	for {
		line, err := s.readLine()
		if errors.Is(err, errFrameTooLong) {
			slog.Warn("dropping oversize message", "limit", s.limit)
			continue
		}

		raw := bytes.TrimSpace(line)
		if len(raw) > 0 {
			slog.Debug("recv", "data", string(raw))
			var env jrchat.Envelope
			if jerr := json.Unmarshal(raw, &env); jerr != nil {
				slog.Warn("invalid message", "error", jerr)
			} else if accept(env) {
				return env, nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return jrchat.Envelope{}, ErrClosed
			}
			return jrchat.Envelope{}, fmt.Errorf("%w: %v", ErrClosed, err)
		}
	}
}

// readLine returns one line, or errFrameTooLong after consuming a line
// longer than s.limit.
func (s *Stream) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := s.r.ReadSlice('\n')
		if len(buf)+len(chunk) > s.limit {
			if errors.Is(err, bufio.ErrBufferFull) {
				err = s.discardLine()
			}
			if err != nil {
				return nil, err
			}
			return nil, errFrameTooLong
		}
		buf = append(buf, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return buf, err
		}
	}
}

func (s *Stream) discardLine() error {
	for {
		_, err := s.r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// Close flushes pending sends and closes the underlying stream.
func (s *Stream) Close() error {
	s.out.flush()
	return s.rwc.Close()
}
