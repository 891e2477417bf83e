package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// CompleteFunc returns the replacement for the line being edited when the
// user presses Tab. It may write suggestions to the terminal.
type CompleteFunc func(line string) string

// Editor is a minimal prompt editor with cursor tracking, "@" path
// completion and recall of earlier prompts.
// It reads from /dev/tty so it works even when stdout is redirected.
type Editor struct {
	tty      *os.File
	oldState *term.State
	in       io.Reader
	out      io.Writer

	// Complete is called on Tab. Nil disables completion.
	Complete CompleteFunc

	history []string
	histPos int    // index into history while browsing; len(history) when not
	draft   string // line being typed before browsing started

	buf []byte
	pos int // cursor byte offset into buf
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	e := newEditorIO(tty, tty)
	e.tty, e.oldState = tty, old
	return e, nil
}

func newEditorIO(in io.Reader, out io.Writer) *Editor {
	return &Editor{in: in, out: out}
}

// Close restores terminal state and closes the tty fd.
func (e *Editor) Close() {
	if e.tty == nil {
		return
	}
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the tty file for writing prompts/UI.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// Remember adds a submitted prompt to the recall list. Repeats of the most
// recent entry and blank lines are skipped.
func (e *Editor) Remember(line string) {
	if line == "" || (len(e.history) > 0 && e.history[len(e.history)-1] == line) {
		return
	}
	e.history = append(e.history, line)
}

// ReadLine displays the prompt and reads a line with full cursor tracking.
// Up and Down recall remembered prompts; Tab runs Complete.
// Returns io.EOF when the user presses Ctrl-D on empty input.
func (e *Editor) ReadLine(prompt string) (string, error) {
	e.buf = e.buf[:0]
	e.pos = 0
	e.histPos = len(e.history)
	e.draft = ""
	e.redraw(prompt)

	var esc [8]byte // buffer for escape sequences

	for {
		var b [1]byte
		if _, err := e.in.Read(b[:]); err != nil {
			return "", err
		}

		switch b[0] {
		case 3: // Ctrl-C
			fmt.Fprintf(e.out, "\r\n")
			return "", ErrInterrupt

		case 4: // Ctrl-D
			if len(e.buf) == 0 {
				fmt.Fprintf(e.out, "\r\n")
				return "", io.EOF
			}

		case 9: // Tab
			if e.Complete != nil {
				fmt.Fprintf(e.out, "\r\n")
				e.setLine(e.Complete(string(e.buf)))
			}

		case 13, 10: // Enter
			fmt.Fprintf(e.out, "\r\n")
			return string(e.buf), nil

		case 127, 8: // Backspace / Ctrl-H
			if e.pos > 0 {
				_, size := prevRune(e.buf, e.pos)
				copy(e.buf[e.pos-size:], e.buf[e.pos:])
				e.buf = e.buf[:len(e.buf)-size]
				e.pos -= size
			}

		case 1: // Ctrl-A (Home)
			e.pos = 0

		case 5: // Ctrl-E (End)
			e.pos = len(e.buf)

		case 21: // Ctrl-U (clear line)
			e.buf = e.buf[:0]
			e.pos = 0

		case 16: // Ctrl-P
			e.recall(-1)

		case 14: // Ctrl-N
			e.recall(1)

		case 27: // Escape sequence
			n, _ := e.in.Read(esc[:1])
			if n == 0 || esc[0] != '[' {
				continue
			}
			n, _ = e.in.Read(esc[1:2])
			if n == 0 {
				continue
			}
			switch esc[1] {
			case 'A': // Up
				e.recall(-1)
			case 'B': // Down
				e.recall(1)
			case 'D': // Left
				if e.pos > 0 {
					_, size := prevRune(e.buf, e.pos)
					e.pos -= size
				}
			case 'C': // Right
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					e.pos += size
				}
			case 'H': // Home
				e.pos = 0
			case 'F': // End
				e.pos = len(e.buf)
			case '3': // Delete key: \x1b[3~
				e.in.Read(esc[2:3]) // consume '~'
				if e.pos < len(e.buf) {
					_, size := utf8.DecodeRune(e.buf[e.pos:])
					copy(e.buf[e.pos:], e.buf[e.pos+size:])
					e.buf = e.buf[:len(e.buf)-size]
				}
			case '1': // Home: \x1b[1~
				e.in.Read(esc[2:3])
				e.pos = 0
			case '4': // End: \x1b[4~
				e.in.Read(esc[2:3])
				e.pos = len(e.buf)
			}

		default: // Printable character
			if b[0] >= 32 {
				ch := []byte{b[0]}
				if b[0] >= 0xC0 {
					tmp := make([]byte, utf8RuneLen(b[0])-1)
					io.ReadFull(e.in, tmp)
					ch = append(ch, tmp...)
				}
				e.insert(ch)
			}
		}

		e.redraw(prompt)
	}
}

// recall moves through remembered prompts; dir is -1 for older, 1 for newer.
// Moving past the newest entry restores the draft.
func (e *Editor) recall(dir int) {
	next := e.histPos + dir
	if next < 0 || next > len(e.history) {
		return
	}
	if e.histPos == len(e.history) {
		e.draft = string(e.buf)
	}
	e.histPos = next
	if next == len(e.history) {
		e.setLine(e.draft)
		return
	}
	e.setLine(e.history[next])
}

func (e *Editor) setLine(s string) {
	e.buf = append(e.buf[:0], s...)
	e.pos = len(e.buf)
}

func (e *Editor) insert(ch []byte) {
	e.buf = append(e.buf, make([]byte, len(ch))...)
	copy(e.buf[e.pos+len(ch):], e.buf[e.pos:len(e.buf)-len(ch)])
	copy(e.buf[e.pos:], ch)
	e.pos += len(ch)
}

// redraw clears the current line and redraws prompt + buffer with cursor.
func (e *Editor) redraw(prompt string) {
	// \r = carriage return, \x1b[K = clear to end of line
	fmt.Fprintf(e.out, "\r\x1b[K%s%s", prompt, string(e.buf))

	if tail := utf8.RuneCount(e.buf[e.pos:]); tail > 0 {
		fmt.Fprintf(e.out, "\x1b[%dD", tail)
	}
}

// prevRune returns the rune and byte size of the rune before pos.
func prevRune(buf []byte, pos int) (rune, int) {
	if pos <= 0 {
		return 0, 0
	}
	i := pos - 1
	for i > 0 && !utf8.RuneStart(buf[i]) {
		i--
	}
	return utf8.DecodeRune(buf[i:pos])
}

// utf8RuneLen returns the expected byte length of a UTF-8 sequence
// from its leading byte.
func utf8RuneLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	default:
		return 4
	}
}

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")
