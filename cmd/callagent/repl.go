package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harjas-romana/calling-agent/internal/app"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

const replHelp = `Commands:
  :listen <file.wav>   route a recorded utterance
  :backup              write the knowledge base to the backup directory
  :restore <file>      load a knowledge backup (.json, .yaml)
  :help                show this help
Anything else is sent to the assistant. Say "goodbye" to end the call.`

// repl drives one call from a line-oriented terminal.
type repl struct {
	app      *app.App
	audioDir string
	in       io.Reader
	out      io.Writer

	callID string
	// clips counts the audio files written.
	clips int
}

func newREPL(a *app.App, audioDir string, in io.Reader, out io.Writer) *repl {
	return &repl{app: a, audioDir: audioDir, in: in, out: out}
}

// run greets the caller and handles lines until the call ends, input closes
// or ctx is cancelled.
func (r *repl) run(ctx context.Context) error {
	if r.audioDir != "" {
		if err := os.MkdirAll(r.audioDir, 0o755); err != nil {
			return fmt.Errorf("create audio dir: %w", err)
		}
	}

	info, greeting := r.app.StartCall(ctx)
	r.callID = info.ID
	r.reply(greeting)
	fmt.Fprintln(r.out, "(type :help for commands)")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				_, err := r.app.EndCall(ctx, r.callID)
				return err
			}
			done, err := r.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether the call is over.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case ":help":
		fmt.Fprintln(r.out, replHelp)
		return false, nil
	case ":backup":
		path, err := r.app.Backup()
		if err != nil {
			fmt.Fprintf(r.out, "backup failed: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "knowledge saved to %s\n", path)
		}
		return false, nil
	case ":restore":
		if err := r.app.Knowledge().Restore(arg); err != nil {
			fmt.Fprintf(r.out, "restore failed: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "knowledge restored from %s\n", arg)
		}
		return false, nil
	case ":listen":
		audio, err := readWAV(arg)
		if err != nil {
			fmt.Fprintf(r.out, "cannot read %s: %v\n", arg, err)
			return false, nil
		}
		turn, err := r.app.Listen(ctx, r.callID, audio)
		if err != nil {
			return false, err
		}
		if turn.Transcript != "" {
			fmt.Fprintf(r.out, "you said: %s\n", turn.Transcript)
		}
		r.reply(turn)
		return turn.End, nil
	}

	turn, err := r.app.Say(ctx, r.callID, line)
	if err != nil {
		return false, err
	}
	r.reply(turn)
	return turn.End, nil
}

// reply prints the assistant's line and stores its audio.
func (r *repl) reply(turn app.Turn) {
	fmt.Fprintf(r.out, "%s: %s\n", r.app.Domain().Business, turn.Reply)
	if r.audioDir == "" || len(turn.Audio) == 0 {
		return
	}
	r.clips++
	path := filepath.Join(r.audioDir, strconv.Itoa(r.clips)+".mp3")
	if err := os.WriteFile(path, turn.Audio, 0o644); err != nil {
		slog.Warn("write reply audio failed", "path", path, "err", err)
		return
	}
	slog.Debug("reply audio written", "path", path)
}

func readWAV(path string) (stt.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return stt.Audio{}, err
	}
	defer f.Close()
	return stt.DecodeWAV(f)
}
