// Command jrchat-repl is a terminal chat surface for the jrchat host.
// It uses raw terminal input, restores the conversation saved under the
// "repl" key, and writes a TOML transcript of each exchange to stdout.
//
// Usage:
//
//	./jrchat-repl             # interactive, transcript on screen
//	./jrchat-repl > log.toml  # prompt on screen, transcript to file
//
// Reference workspace files with @[path]; press Tab after "@prefix" to
// complete a path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/codingjr/jrchat"
	"github.com/codingjr/jrchat/channel"
	"github.com/codingjr/jrchat/generate"
	"github.com/codingjr/jrchat/session"
	"github.com/codingjr/jrchat/surface"
	"github.com/codingjr/jrchat/workspace"
)

const prompt = "> "

func main() {
	socketPath := flag.String("socket", jrchat.SocketPath(), "host socket path")
	flag.Parse()

	cfg, err := jrchat.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; using defaults\n", err)
		cfg = jrchat.DefaultConfig()
	}
	root := jrchat.ResolveWorkspaceRoot(cfg)

	conn, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach jrchatd at %s: %v\n", *socketPath, err)
		os.Exit(1)
	}
	ch := channel.NewStream(conn)
	defer ch.Close()

	slot, closeSlot, err := session.OpenSlot(cfg.Storage, "repl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeSlot()

	editor, err := NewEditor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	tty := editor.Tty()
	// slog would otherwise write bare \n into the raw-mode terminal.
	slog.SetDefault(slog.New(slog.NewTextHandler(&crlfWriter{w: os.Stderr}, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := session.Open(ctx, slot)
	render := newRenderer(tty, termWriter(os.Stdout))
	client := surface.New(ch, store, render)

	fmt.Fprintf(tty, "\033[2J\033[H") // clear screen
	fmt.Fprintf(tty, "jrchat repl\r\n")
	fmt.Fprintf(tty, "workspace: %s\r\n", root)
	fmt.Fprintf(tty, "\r\ncommands:\r\n")
	fmt.Fprintf(tty, "  :files <prefix>  list workspace files\r\n")
	fmt.Fprintf(tty, "  :clear           start a new conversation\r\n")
	fmt.Fprintf(tty, "  :quit            exit\r\n\r\n")
	render.history(store.Messages())
	for _, m := range store.Messages() {
		if m.Role == jrchat.RoleUser {
			editor.Remember(m.Content)
		}
	}
	editor.Complete = func(line string) string {
		return complete(client, render, line)
	}

	hostGone := make(chan struct{})
	go func() {
		defer close(hostGone)
		if err := client.Run(ctx); err != nil {
			slog.Warn("connection error", "error", err)
		}
	}()

	for {
		text, err := editor.ReadLine(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case text == ":quit" || text == ":q":
			return
		case text == ":clear":
			if err := store.Persist(ctx, jrchat.ConversationState{
				Messages: []jrchat.Message{{Role: jrchat.RoleAssistant, Content: session.Greeting()}},
			}); err != nil {
				fmt.Fprintf(tty, "error: %v\r\n", err)
			}
			fmt.Fprintf(tty, "\033[2J\033[H")
			render.history(store.Messages())
			continue
		case strings.HasPrefix(text, ":files"):
			prefix := strings.TrimSpace(strings.TrimPrefix(text, ":files"))
			printSuggestions(tty, prefix, requestSuggestions(client, render, prefix))
			continue
		}

		editor.Remember(text)
		files, errs := attachments(root, text)
		for _, err := range errs {
			fmt.Fprintf(tty, "warning: %v\r\n", err)
		}
		render.submitted(text, files)
		if err := client.Submit(text, files); err != nil {
			fmt.Fprintf(tty, "error: %v\r\n", err)
			continue
		}

		select {
		case <-render.idle:
		case <-hostGone:
			fmt.Fprintf(tty, "connection to jrchatd closed\r\n")
			return
		}
	}
}

// attachments reads the files referenced as @[path] in text.
func attachments(root, text string) (map[string]jrchat.FileContext, []error) {
	refs := surface.FileRefs(text)
	if len(refs) == 0 {
		return nil, nil
	}
	return workspace.ReadFiles(root, refs, generate.DetectLanguage)
}

// complete asks the host for files matching the "@prefix" at the end of text.
// A single match is inserted; otherwise the matches are listed and the text
// is returned unchanged.
func complete(client *surface.Client, render *renderer, text string) string {
	prefix, ok := surface.ActivePrefix(text)
	if !ok {
		return text
	}
	paths := requestSuggestions(client, render, prefix)
	if len(paths) == 1 {
		return surface.CompleteFilePath(text, prefix, paths[0])
	}
	printSuggestions(render.tty, prefix, paths)
	return text
}

func requestSuggestions(client *surface.Client, render *renderer, prefix string) []string {
	// Drop a reply left over from an earlier request that timed out.
	select {
	case <-render.suggestions:
	default:
	}
	client.RequestFileList(prefix)
	select {
	case paths := <-render.suggestions:
		return paths
	case <-time.After(3 * time.Second):
		return nil
	}
}
