package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/codingjr/jrchat"
	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// entry is one exchange in the TOML transcript.
type entry struct {
	Timestamp time.Time `toml:"timestamp"`
	Prompt    string    `toml:"prompt"`
	Files     []string  `toml:"files,omitempty"`
	Response  string    `toml:"response,omitempty"`
	Error     string    `toml:"error,omitempty"`
}

// renderer prints conversation updates to the tty and appends each finished
// exchange to a TOML transcript.
type renderer struct {
	tty io.Writer
	out io.Writer

	mu      sync.Mutex
	current *entry

	idle        chan struct{}
	suggestions chan []string
}

func newRenderer(tty, out io.Writer) *renderer {
	return &renderer{
		tty:         tty,
		out:         out,
		idle:        make(chan struct{}, 1),
		suggestions: make(chan []string, 1),
	}
}

// submitted records the prompt the next reply belongs to.
func (r *renderer) submitted(text string, files map[string]jrchat.FileContext) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	r.mu.Lock()
	r.current = &entry{Timestamp: time.Now(), Prompt: text, Files: paths}
	r.mu.Unlock()
}

// history prints a restored conversation.
func (r *renderer) history(msgs []jrchat.Message) {
	for _, m := range msgs {
		fmt.Fprint(r.tty, formatMessage(m))
	}
}

func (r *renderer) Message(msg jrchat.Message) {
	// The user already sees what they typed.
	if msg.Role == jrchat.RoleUser {
		return
	}
	fmt.Fprint(r.tty, formatMessage(msg))

	r.mu.Lock()
	e := r.current
	r.current = nil
	r.mu.Unlock()
	if e != nil {
		e.Response = msg.Content
		writeEntry(r.out, e)
	}
}

func (r *renderer) Error(text string) {
	fmt.Fprintf(r.tty, "error: %s\r\n\r\n", text)

	r.mu.Lock()
	e := r.current
	r.current = nil
	r.mu.Unlock()
	if e != nil {
		e.Error = text
		writeEntry(r.out, e)
	}
}

func (r *renderer) Suggestions(prefix string, paths []string) {
	select {
	case r.suggestions <- paths:
	default:
		// Nobody is waiting; show them anyway.
		printSuggestions(r.tty, prefix, paths)
	}
}

func (r *renderer) Busy(busy bool) {
	if busy {
		return
	}
	select {
	case r.idle <- struct{}{}:
	default:
	}
}

func formatMessage(m jrchat.Message) string {
	label := "you"
	if m.Role == jrchat.RoleAssistant {
		label = "assistant"
	}
	body := strings.ReplaceAll(m.Content, "\n", "\r\n  ")
	return fmt.Sprintf("%s:\r\n  %s\r\n\r\n", label, body)
}

func printSuggestions(w io.Writer, prefix string, paths []string) {
	if len(paths) == 0 {
		fmt.Fprintf(w, "(no files match @%s)\r\n", prefix)
		return
	}
	for _, p := range paths {
		fmt.Fprintf(w, "  @%s\r\n", p)
	}
}

// writeEntry writes a single TOML-formatted exchange to w.
func writeEntry(w io.Writer, e *entry) {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))
	fmt.Fprintln(w, "[[exchange]]")
	enc := toml.NewEncoder(w)
	if err := enc.Encode(e); err != nil {
		fmt.Fprintf(w, "# encode error: %v\n", err)
	}
	fmt.Fprintln(w)
}
