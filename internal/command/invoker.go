package command

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry records one executed command.
type Entry struct {
	Command string
	At      time.Time
	Err     error
}

// MarshalJSON renders Err as its message.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := struct {
		Command string    `json:"command"`
		At      time.Time `json:"at"`
		Error   string    `json:"error,omitempty"`
	}{Command: e.Command, At: e.At}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return json.Marshal(out)
}

// Invoker executes commands and appends each one to an in-memory history.
// The history is informational; commands are never replayed or undone.
type Invoker struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	history []Entry
}

// NewInvoker creates an invoker. A nil clock uses real time.
func NewInvoker(clock clockwork.Clock, logger *slog.Logger) *Invoker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Invoker{clock: clock, logger: logger}
}

// Execute runs cmd and records it, whether or not it succeeded.
func (i *Invoker) Execute(ctx context.Context, cmd Command) (any, error) {
	result, err := cmd.Execute(ctx)

	entry := Entry{Command: cmd.Label(), At: i.clock.Now(), Err: err}
	i.mu.Lock()
	i.history = append(i.history, entry)
	i.mu.Unlock()

	if err != nil {
		i.logger.Warn("command failed", "command", entry.Command, "error", err)
	} else {
		i.logger.Debug("command executed", "command", entry.Command)
	}
	return result, err
}

// History returns a copy of the executed commands, oldest first.
func (i *Invoker) History() []Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Entry, len(i.history))
	copy(out, i.history)
	return out
}
