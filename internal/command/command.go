// Package command accepts control commands through a watched file.
//
// External tools (hotkey daemons, overlay scripts) drop a single word into
// the command file; the watcher picks it up, clears the file so the command
// cannot re-fire, and delivers it on a channel. The HTTP control API covers
// the same operations; this channel exists for tools that cannot speak HTTP.
package command

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Command is one control verb.
type Command string

const (
	Start Command = "start" // resume counting
	Pause Command = "pause" // pause counting
	Reset Command = "reset" // zero the count
	Quit  Command = "quit"  // shut the tracker down
)

const (
	// settleDelay lets the writer finish before the file is read.
	settleDelay = 50 * time.Millisecond

	// fallbackPollInterval drives the polling path when fsnotify is
	// unavailable.
	fallbackPollInterval = time.Second

	cmdBufSize = 8
)

// Watcher delivers commands written to a file.
type Watcher struct {
	path string
	cmds chan Command
}

// NewWatcher creates a watcher for the given command file path.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: path, cmds: make(chan Command, cmdBufSize)}
}

// Commands returns the delivery channel.
func (w *Watcher) Commands() <-chan Command {
	return w.cmds
}

// Run watches the command file until ctx is cancelled. It prefers fsnotify
// and degrades to polling when the filesystem cannot be watched.
func (w *Watcher) Run(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify unavailable, polling command file", "error", err)
		w.pollLoop(ctx)
		return
	}
	defer fw.Close()

	// Watch the directory: editors and atomic writers replace the file,
	// which would invalidate a watch on the file itself.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		slog.Warn("cannot watch command directory, polling instead", "error", err)
		w.pollLoop(ctx)
		return
	}
	slog.Info("command watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-fw.Events:
			if !ok {
				w.pollLoop(ctx)
				return
			}
			if evt.Name != w.path || !evt.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			time.Sleep(settleDelay)
			w.deliver()
		case err, ok := <-fw.Errors:
			if !ok {
				w.pollLoop(ctx)
				return
			}
			slog.Debug("command watcher error", "error", err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(fallbackPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.deliver()
		}
	}
}

func (w *Watcher) deliver() {
	cmd, err := w.read()
	if err != nil {
		slog.Warn("read command file failed", "error", err)
		return
	}
	if cmd == "" {
		return
	}
	select {
	case w.cmds <- cmd:
	default:
		slog.Debug("command channel full, dropping", "command", cmd)
	}
}

// read consumes the pending command, clearing the file so it cannot fire
// twice. Unknown words are ignored.
func (w *Watcher) read() (Command, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	if err := os.WriteFile(w.path, nil, 0o644); err != nil {
		return "", err
	}

	cmd := Command(strings.TrimSpace(string(data)))
	switch cmd {
	case Start, Pause, Reset, Quit:
		return cmd, nil
	case "":
		return "", nil
	default:
		slog.Debug("ignoring unknown command", "command", string(cmd))
		return "", nil
	}
}

// Write drops a command for a running tracker instance.
func Write(path string, cmd Command) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(string(cmd)), 0o644)
}
